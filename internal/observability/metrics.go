// Package observability provides Prometheus metrics for the live
// trading loop.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	BarsProcessed  prometheus.Counter
	DataGaps       prometheus.Counter
	FeedReconnects prometheus.Counter

	// Decision metrics
	SignalsProduced *prometheus.CounterVec
	Rejections      *prometheus.CounterVec

	// Trading metrics
	TradesOpened   prometheus.Counter
	TradesResolved *prometheus.CounterVec
	TradesAborted  prometheus.Counter

	// Account metrics
	Equity       prometheus.Gauge
	DailyPnL     prometheus.Gauge
	ModelPWin    prometheus.Histogram
	PayoutQuoted prometheus.Histogram

	// Broker metrics
	BrokerRetries  prometheus.Counter
	BrokerFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered on the default
// Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered on reg. Tests
// pass a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "binary_options_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		BarsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_processed_total",
			Help:      "Total number of bars processed",
		}),
		DataGaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "data_gaps_total",
			Help:      "Total number of detected bar stream gaps",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket feed reconnects",
		}),

		SignalsProduced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "signals_total",
			Help:      "Total number of candidate signals by strategy",
		}, []string{"strategy"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "rejections_total",
			Help:      "Total number of rejected opportunities by reason",
		}, []string{"reason"}),

		TradesOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_opened_total",
			Help:      "Total number of trades opened",
		}),
		TradesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_resolved_total",
			Help:      "Total number of trades resolved by outcome",
		}, []string{"outcome"}),
		TradesAborted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_aborted_total",
			Help:      "Total number of trades aborted without an outcome",
		}),

		Equity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "equity",
			Help:      "Current account equity",
		}),
		DailyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "daily_pnl",
			Help:      "Realized profit and loss since the last day boundary",
		}),
		ModelPWin: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "p_win",
			Help:      "Estimated win probability of evaluated candidates",
			Buckets:   prometheus.LinearBuckets(0.0, 0.05, 21),
		}),
		PayoutQuoted: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "payout_quoted",
			Help:      "Payout quoted at evaluation time",
			Buckets:   prometheus.LinearBuckets(0.70, 0.025, 11),
		}),

		BrokerRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "retries_total",
			Help:      "Total number of retried broker calls",
		}),
		BrokerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "failures_total",
			Help:      "Total number of broker calls that exhausted retries",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
