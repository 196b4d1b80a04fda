// Package main renders reports for stored runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"binary-options-lab/internal/config"
	"binary-options-lab/internal/reporting"
	"binary-options-lab/internal/storage"
	chstore "binary-options-lab/internal/storage/clickhouse"
	"binary-options-lab/internal/storage/migrations"
	pgstore "binary-options-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (defaults used when empty)")
	runID := flag.String("run-id", "", "Run ID to report on")
	list := flag.Bool("list", false, "List stored runs instead of rendering a report")
	limit := flag.Int("limit", 20, "Maximum number of runs to list")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	stdout := flag.Bool("stdout", false, "Print the Markdown report to stdout instead of writing files")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: storage.postgres_dsn is required for reporting")
		os.Exit(1)
	}
	if !*list && *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --run-id is required (or use --list)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying migrations: %v\n", err)
		os.Exit(1)
	}

	runStore := pgstore.NewRunStore(pool)
	tradeStore := pgstore.NewTradeStore(pool)

	if *list {
		if err := listRuns(ctx, runStore, *limit); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The audit log lives in ClickHouse and is optional for reports.
	var oppStore storage.OpportunityStore
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		oppStore = chstore.NewOpportunityStore(conn)
	}

	report, err := reporting.NewGenerator(runStore, tradeStore, oppStore).Generate(ctx, *runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	markdown := reporting.RenderMarkdown(report)
	if *stdout {
		fmt.Print(markdown)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	mdPath := filepath.Join(*outputDir, fmt.Sprintf("run_%s.md", *runID))
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	csvPath := filepath.Join(*outputDir, fmt.Sprintf("trades_%s.csv", *runID))
	if err := os.WriteFile(csvPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing trades csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", mdPath)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func listRuns(ctx context.Context, runStore storage.RunStore, limit int) error {
	runs, err := runStore.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	fmt.Printf("%-34s %-9s %-8s %-5s %8s %10s %12s  %s\n",
		"RUN_ID", "MODE", "SYMBOL", "TF", "TRADES", "WIN_RATE", "FINAL_EQ", "CREATED")
	for _, r := range runs {
		fmt.Printf("%-34s %-9s %-8s %-5s %8d %10.4f %12.4f  %s\n",
			r.RunID, r.Mode, r.Symbol, r.Timeframe,
			r.Metrics.TotalTrades, r.Metrics.WinRate, r.Metrics.FinalEquity,
			time.UnixMilli(r.CreatedAtMs).UTC().Format(time.RFC3339))
	}
	return nil
}
