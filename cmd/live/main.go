// Package main runs the live paper-trading loop: a streaming bar feed,
// the shared decision pipeline and a paper execution venue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"binary-options-lab/internal/bandit"
	"binary-options-lab/internal/broker"
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/engine"
	"binary-options-lab/internal/feed"
	"binary-options-lab/internal/logging"
	"binary-options-lab/internal/model"
	"binary-options-lab/internal/observability"
	"binary-options-lab/internal/risk"
	"binary-options-lab/internal/storage/migrations"
	pgstore "binary-options-lab/internal/storage/postgres"
	"binary-options-lab/internal/strategy"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (defaults used when empty)")
	feedURL := flag.String("feed-url", "", "WebSocket bar feed URL (overrides live.feed_url)")
	syntheticBars := flag.Int("synthetic-bars", 1000, "Stream this many synthetic bars when no feed URL is set")
	persist := flag.Bool("persist", false, "Persist the session run and trades to Postgres on exit")
	outputJSON := flag.Bool("json", false, "Print the session summary as JSON on exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log).With().Str("component", "live").Logger()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	obs := observability.NewMetrics("")

	// Start metrics server if enabled
	if cfg.Live.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.Live.MetricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(cfg.Live.MetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	source, err := openFeed(ctx, cfg, *feedURL, *syntheticBars, obs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open feed")
	}

	venue := broker.NewPaper(cfg.Backtest.InitialBalance, cfg.Backtest.BasePayout, cfg.Seed, nil)

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build pipeline")
	}

	live := engine.NewLive(cfg, pipeline, source, venue, obs, logger)
	runErr := live.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error().Err(runErr).Msg("live session failed")
	}

	result := live.Result()
	logger.Info().
		Str("run_id", result.Run.RunID).
		Int("trades", result.Run.Metrics.TotalTrades).
		Float64("final_equity", result.Run.Metrics.FinalEquity).
		Msg("session summary")

	if *persist && cfg.Storage.PostgresDSN != "" {
		persistCtx, persistCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer persistCancel()
		if err := persistResult(persistCtx, cfg, result); err != nil {
			logger.Error().Err(err).Msg("persist session")
		}
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Run); err != nil {
			logger.Error().Err(err).Msg("encode summary")
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildPipeline wires the decision components from the configuration.
func buildPipeline(cfg *config.Config, logger zerolog.Logger) (*engine.Pipeline, error) {
	strategies, err := strategy.FromConfig(cfg.Strategies)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(strategies))
	for _, s := range strategies {
		ids = append(ids, s.ID())
	}
	selector := bandit.NewSelector(ids, cfg.Bandit.Epsilon, cfg.Seed)

	mdl, err := model.New(cfg.Model)
	if err != nil {
		return nil, err
	}

	riskMgr := risk.NewManager(cfg.Risk, cfg.Backtest.InitialBalance, cfg.Location())

	return engine.NewPipeline(cfg, strategies, selector, mdl, riskMgr, logger), nil
}

// openFeed connects the WebSocket feed, or falls back to a synthetic
// stream for paper sessions without a data provider.
func openFeed(ctx context.Context, cfg *config.Config, feedURL string, syntheticBars int, obs *observability.Metrics, logger zerolog.Logger) (feed.BarSource, error) {
	url := cfg.Live.FeedURL
	if feedURL != "" {
		url = feedURL
	}
	if url == "" {
		interval, err := time.ParseDuration(cfg.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("invalid timeframe %q", cfg.Timeframe)
		}
		start := time.Now().UTC().Add(-time.Duration(syntheticBars) * interval)
		logger.Warn().Msg("no feed URL configured, streaming synthetic bars")
		return feed.NewSliceSource(feed.Synthetic(cfg.Seed, start, interval.Milliseconds(), syntheticBars)), nil
	}

	ws, err := feed.NewWSSource(ctx, url, cfg.Symbol, cfg.Timeframe, nil)
	if err != nil {
		return nil, err
	}

	// Mirror the reconnect count into Prometheus.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		var seen int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ws.Reconnects(); n > seen {
					obs.FeedReconnects.Add(float64(n - seen))
					seen = n
				}
			}
		}
	}()
	return ws, nil
}

func persistResult(ctx context.Context, cfg *config.Config, result *engine.BacktestResult) error {
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}
	if err := pgstore.NewRunStore(pool).Insert(ctx, &result.Run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	if err := pgstore.NewTradeStore(pool).InsertBulk(ctx, result.Trades); err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	return nil
}
