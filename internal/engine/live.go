package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"binary-options-lab/internal/broker"
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/feed"
	"binary-options-lab/internal/idhash"
	"binary-options-lab/internal/metrics"
	"binary-options-lab/internal/observability"
)

// Live drives the decision pipeline from a streaming bar source against
// an execution venue. Paper or real money is the venue's concern; the
// decision path is byte-for-byte the backtest's.
type Live struct {
	cfg      *config.Config
	pipeline *Pipeline
	source   feed.BarSource
	venue    broker.Venue
	obs      *observability.Metrics
	logger   zerolog.Logger

	runID  string
	book   *Book
	equity []float64

	firstBarMs int64
	lastBarMs  int64
	barCount   int

	// consecutive broker failures; the loop halts at the configured cap
	brokerFailures int
}

// NewLive creates a live runner. obs may be nil when metrics are
// disabled.
func NewLive(cfg *config.Config, pipeline *Pipeline, source feed.BarSource, venue broker.Venue, obs *observability.Metrics, logger zerolog.Logger) *Live {
	if obs == nil {
		obs = observability.NewMetrics("")
	}
	return &Live{
		cfg:      cfg,
		pipeline: pipeline,
		source:   source,
		venue:    venue,
		obs:      obs,
		logger:   logger,
		runID:    uuid.NewString(),
		book:     NewBook(),
	}
}

// Run processes bars until the source ends, ctx is canceled or the
// broker failure cap is hit. On cancellation it stops accepting new
// trades, waits for the pending position up to the shutdown grace and
// aborts it if still unresolved.
func (l *Live) Run(ctx context.Context) error {
	interval, err := timeframeMs(l.cfg.Timeframe)
	if err != nil {
		return err
	}

	l.logger.Info().Str("run_id", l.runID).Str("symbol", l.cfg.Symbol).Msg("starting live session")

	var prevTs int64
	for {
		bar, err := l.source.Next(ctx)
		switch {
		case errors.Is(err, feed.ErrEndOfData):
			return l.shutdown()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return l.shutdown()
		case err != nil:
			return fmt.Errorf("bar source: %w", err)
		}

		// A gap does not abort a live session; indicators keep rolling
		// and the miss shows up in metrics and logs.
		if prevTs != 0 {
			if gapErr := checkGap(prevTs, bar.TimestampMs, interval, l.cfg.Backtest.MaxBarGap); gapErr != nil {
				l.obs.DataGaps.Inc()
				l.logger.Warn().Err(gapErr).Int64("ts", bar.TimestampMs).Msg("bar stream gap")
				if bar.TimestampMs <= prevTs {
					continue // stale or duplicate bar
				}
			}
		}
		prevTs = bar.TimestampMs
		if l.firstBarMs == 0 {
			l.firstBarMs = bar.TimestampMs
		}
		l.lastBarMs = bar.TimestampMs
		l.barCount++
		l.obs.BarsProcessed.Inc()

		if err := l.step(ctx, *bar); err != nil {
			l.shutdown()
			return err
		}
	}
}

// step handles one bar: settle the pending position if expired, then
// evaluate and possibly open a new one.
func (l *Live) step(ctx context.Context, bar domain.Bar) error {
	if l.book.HasOpen() && bar.TimestampMs >= l.book.Pending().ExpiryTimeMs {
		if err := l.settle(ctx, bar.TimestampMs); err != nil {
			return err
		}
	}

	payout, quoted, err := l.quote(ctx)
	if err != nil {
		return err
	}
	if !quoted {
		// No payout quote: keep the indicators rolling but skip the
		// decision, so a degraded venue never gates against a zero payout.
		l.pipeline.Advance(bar)
		return nil
	}

	decision, err := l.pipeline.Step(bar, payout, l.book.HasOpen())
	if err != nil {
		return err
	}
	if decision.Signal != nil {
		l.obs.SignalsProduced.WithLabelValues(decision.Signal.StrategyID).Inc()
		l.obs.ModelPWin.Observe(decision.PWin)
		l.obs.PayoutQuoted.Observe(payout)
	}
	if decision.Signal != nil && !decision.Accepted() {
		l.obs.Rejections.WithLabelValues(string(decision.Reason)).Inc()
	}

	if decision.Accepted() {
		if err := l.open(ctx, decision, bar); err != nil {
			return err
		}
	}

	state := l.pipeline.Risk().State()
	l.obs.Equity.Set(state.Equity)
	l.obs.DailyPnL.Set(state.DailyPnL)
	l.equity = append(l.equity, state.Equity)
	return nil
}

// open places the approved trade at the venue and books it.
func (l *Live) open(ctx context.Context, d *Decision, bar domain.Bar) error {
	interval, _ := timeframeMs(l.cfg.Timeframe)
	expirySeconds := int(int64(l.cfg.ExpiryBars) * interval / 1000)

	var order *broker.Order
	placed, err := l.retry(ctx, func(ctx context.Context) error {
		var placeErr error
		order, placeErr = l.venue.Place(ctx, l.cfg.Symbol, d.Signal.Direction, d.Stake, expirySeconds)
		return placeErr
	})
	if err != nil {
		return err
	}
	if !placed {
		l.logger.Warn().
			Str("strategy", d.Signal.StrategyID).
			Str("direction", string(d.Signal.Direction)).
			Msg("order not placed, venue degraded")
		return nil
	}

	t := &domain.Trade{
		TradeID:      idhash.ComputeTradeID(l.runID, l.cfg.Symbol, d.Signal.StrategyID, string(d.Signal.Direction), bar.TimestampMs),
		RunID:        l.runID,
		Symbol:       l.cfg.Symbol,
		StrategyID:   d.Signal.StrategyID,
		Direction:    d.Signal.Direction,
		OpenTimeMs:   order.PlacedAtMs,
		ExpiryTimeMs: bar.TimestampMs + int64(l.cfg.ExpiryBars)*interval,
		EntryPrice:   order.EntryPrice,
		Stake:        order.Stake,
		Payout:       order.Payout,
		PWin:         d.PWin,
		OrderID:      order.OrderID,
	}
	if err := l.book.Open(t, d.Features); err != nil {
		return err
	}

	l.obs.TradesOpened.Inc()
	l.logger.Info().
		Str("trade_id", t.TradeID).
		Str("order_id", order.OrderID).
		Str("strategy", t.StrategyID).
		Str("direction", string(t.Direction)).
		Float64("stake", t.Stake).
		Float64("payout", t.Payout).
		Float64("p_win", t.PWin).
		Msg("trade opened")
	return nil
}

// settle polls the venue for the pending order's result and feeds a
// settled outcome back into the pipeline.
func (l *Live) settle(ctx context.Context, nowMs int64) error {
	t := l.book.Pending()

	var res *broker.Result
	polled, err := l.retry(ctx, func(ctx context.Context) error {
		var settleErr error
		res, settleErr = l.venue.Settle(ctx, t.OrderID)
		return settleErr
	})
	if err != nil {
		return err
	}
	if !polled || !res.Settled {
		return nil // venue degraded or expiry not reached; poll again later
	}

	features := l.book.Context(t.TradeID)
	resolved := l.book.Resolve(res.Outcome, res.ExitPrice, res.Profit)
	if err := l.pipeline.OnResolved(resolved, features, nowMs); err != nil {
		return err
	}

	l.obs.TradesResolved.WithLabelValues(string(res.Outcome)).Inc()
	l.logger.Info().
		Str("trade_id", resolved.TradeID).
		Str("outcome", string(resolved.Outcome)).
		Float64("profit", resolved.Profit).
		Float64("equity", l.pipeline.Risk().Equity()).
		Msg("trade resolved")
	return nil
}

// quote fetches the current payout with retries. ok is false when the
// venue stayed unreachable and the bar should be skipped.
func (l *Live) quote(ctx context.Context) (float64, bool, error) {
	interval, _ := timeframeMs(l.cfg.Timeframe)
	expirySeconds := int(int64(l.cfg.ExpiryBars) * interval / 1000)

	var payout float64
	ok, err := l.retry(ctx, func(ctx context.Context) error {
		var quoteErr error
		payout, quoteErr = l.venue.Quote(ctx, l.cfg.Symbol, expirySeconds)
		return quoteErr
	})
	return payout, ok, err
}

// retry runs one broker call with bounded retries and tracks the
// consecutive failure count. Returns (false, nil) when the call was
// abandoned but the session may continue degraded, so callers must skip
// the action rather than read its outputs. Exhausting the failure cap is
// fatal.
func (l *Live) retry(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	attempt := 0
	err := broker.Retry(ctx, l.cfg.Live.BrokerRetries, l.cfg.Live.BrokerBackoff, func(ctx context.Context) error {
		if attempt > 0 {
			l.obs.BrokerRetries.Inc()
		}
		attempt++
		return fn(ctx)
	})
	if err != nil {
		l.brokerFailures++
		l.obs.BrokerFailures.Inc()
		l.logger.Error().Err(err).Int("consecutive_failures", l.brokerFailures).Msg("broker call failed")
		if l.brokerFailures >= l.cfg.Live.MaxBrokerFailures {
			return false, fmt.Errorf("%w: %d consecutive failures: %v", ErrBrokerFailure, l.brokerFailures, err)
		}
		return false, nil
	}
	l.brokerFailures = 0
	return true, nil
}

// shutdown gives the pending position the configured grace to settle,
// then aborts it.
func (l *Live) shutdown() error {
	defer l.source.Close()

	if !l.book.HasOpen() {
		l.logger.Info().Msg("live session stopped flat")
		return nil
	}

	l.logger.Info().
		Str("trade_id", l.book.Pending().TradeID).
		Dur("grace", l.cfg.Live.ShutdownGrace).
		Msg("waiting for pending trade before shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.Live.ShutdownGrace)
	defer cancel()

	ticker := time.NewTicker(l.cfg.Live.CheckInterval)
	defer ticker.Stop()

	for l.book.HasOpen() {
		select {
		case <-ctx.Done():
			t := l.book.Abort()
			l.obs.TradesAborted.Inc()
			l.logger.Warn().Str("trade_id", t.TradeID).Msg("aborted pending trade at shutdown")
			return nil
		case <-ticker.C:
			if err := l.settle(ctx, time.Now().UnixMilli()); err != nil {
				t := l.book.Abort()
				l.obs.TradesAborted.Inc()
				l.logger.Warn().Err(err).Str("trade_id", t.TradeID).Msg("aborted pending trade at shutdown")
				return nil
			}
		}
	}
	l.logger.Info().Msg("pending trade settled, session stopped")
	return nil
}

// Result summarizes the session so far. Valid after Run returns.
func (l *Live) Result() *BacktestResult {
	summary := metrics.Compute(l.book.Trades(), l.equity, l.pipeline.Opportunities(), l.cfg.Backtest.InitialBalance)
	return &BacktestResult{
		Run: domain.RunSummary{
			RunID:       l.runID,
			Symbol:      l.cfg.Symbol,
			Timeframe:   l.cfg.Timeframe,
			Mode:        domain.RunModeLive,
			ConfigHash:  l.cfg.Hash(),
			Seed:        l.cfg.Seed,
			StartMs:     l.firstBarMs,
			EndMs:       l.lastBarMs,
			BarCount:    l.barCount,
			CreatedAtMs: time.Now().UnixMilli(),
			Metrics:     summary,
		},
		Trades:        l.book.Trades(),
		Opportunities: l.pipeline.Opportunities(),
		EquityCurve:   l.equity,
	}
}
