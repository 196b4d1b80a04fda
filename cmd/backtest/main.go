// Package main runs a walk-forward backtest over historical bars and
// writes the run report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"binary-options-lab/internal/bandit"
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/engine"
	"binary-options-lab/internal/feed"
	"binary-options-lab/internal/logging"
	"binary-options-lab/internal/model"
	"binary-options-lab/internal/reporting"
	"binary-options-lab/internal/risk"
	chstore "binary-options-lab/internal/storage/clickhouse"
	"binary-options-lab/internal/storage/memory"
	"binary-options-lab/internal/storage/migrations"
	pgstore "binary-options-lab/internal/storage/postgres"
	"binary-options-lab/internal/strategy"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (defaults used when empty)")
	csvPath := flag.String("csv", "", "Path to a bar CSV file (timestamp,open,high,low,close,volume)")
	syntheticBars := flag.Int("synthetic-bars", 5000, "Number of synthetic bars when no CSV is given")
	fromDB := flag.Bool("from-db", false, "Load bars from ClickHouse instead of CSV/synthetic")
	startTime := flag.String("start", "", "Range start (RFC3339), used with --from-db and synthetic data")
	endTime := flag.String("end", "", "Range end (RFC3339), used with --from-db")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	persist := flag.Bool("persist", false, "Persist run, trades, bars and audit log to the configured databases")
	outputJSON := flag.Bool("json", false, "Print the run summary as JSON")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log).With().Str("component", "backtest").Logger()

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

	start := time.Now().UTC().Truncate(time.Hour).Add(-90 * 24 * time.Hour)
	if *startTime != "" {
		start, err = time.Parse(time.RFC3339, *startTime)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse --start")
		}
	}

	bars, err := loadBars(ctx, cfg, *csvPath, *fromDB, *syntheticBars, start, *endTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("load bars")
	}
	logger.Info().Int("bars", len(bars)).Msg("bars loaded")

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build pipeline")
	}

	result, err := engine.NewBacktest(cfg, pipeline, logger).Run(ctx, bars)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	if *persist {
		if err := persistResult(ctx, cfg, result, bars); err != nil {
			logger.Fatal().Err(err).Msg("persist result")
		}
		logger.Info().Str("run_id", result.Run.RunID).Msg("run persisted")
	}

	if err := writeReport(ctx, result, *outputDir); err != nil {
		logger.Fatal().Err(err).Msg("write report")
	}
	logger.Info().Str("dir", *outputDir).Msg("report written")

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Run); err != nil {
			logger.Fatal().Err(err).Msg("encode summary")
		}
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

func loadBars(ctx context.Context, cfg *config.Config, csvPath string, fromDB bool, syntheticBars int, start time.Time, endTime string) ([]domain.Bar, error) {
	switch {
	case fromDB:
		if cfg.Storage.ClickhouseDSN == "" {
			return nil, fmt.Errorf("--from-db requires storage.clickhouse_dsn")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		var endMs int64
		if endTime != "" {
			end, err := time.Parse(time.RFC3339, endTime)
			if err != nil {
				return nil, fmt.Errorf("parse --end: %w", err)
			}
			endMs = end.UnixMilli()
		}
		return chstore.NewBarStore(conn).GetByRange(ctx, cfg.Symbol, cfg.Timeframe, start.UnixMilli(), endMs)
	case csvPath != "":
		return feed.LoadCSV(csvPath)
	default:
		interval, err := time.ParseDuration(cfg.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("invalid timeframe %q", cfg.Timeframe)
		}
		return feed.Synthetic(cfg.Seed, start, interval.Milliseconds(), syntheticBars), nil
	}
}

func persistResult(ctx context.Context, cfg *config.Config, result *engine.BacktestResult, bars []domain.Bar) error {
	if cfg.Storage.PostgresDSN != "" {
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
	}
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := chstore.NewBarStore(conn).InsertBulk(ctx, cfg.Symbol, cfg.Timeframe, bars); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
		if err := chstore.NewOpportunityStore(conn).InsertBulk(ctx, result.Run.RunID, result.Opportunities); err != nil {
			return fmt.Errorf("store opportunities: %w", err)
		}
	}
	return nil
}

// writeReport renders through the shared generator so the backtest and
// the report command produce identical output.
func writeReport(ctx context.Context, result *engine.BacktestResult, outputDir string) error {
	runStore := memory.NewRunStore()
	tradeStore := memory.NewTradeStore()
	oppStore := memory.NewOpportunityStore()
	if err := runStore.Insert(ctx, &result.Run); err != nil {
		return err
	}
	if err := tradeStore.InsertBulk(ctx, result.Trades); err != nil {
		return err
	}
	if err := oppStore.InsertBulk(ctx, result.Run.RunID, result.Opportunities); err != nil {
		return err
	}

	report, err := reporting.NewGenerator(runStore, tradeStore, oppStore).Generate(ctx, result.Run.RunID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	mdPath := filepath.Join(outputDir, fmt.Sprintf("run_%s.md", result.Run.RunID))
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	csvPath := filepath.Join(outputDir, fmt.Sprintf("trades_%s.csv", result.Run.RunID))
	return os.WriteFile(csvPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644)
}
