package domain

// Summary holds the finalized metrics of one run (backtest or live
// session). Consumed by the report sink.
type Summary struct {
	TotalTrades int
	Wins        int
	Losses      int
	Ties        int
	Aborted     int
	WinRate     float64

	TotalProfit float64
	TotalReturn float64 // relative to initial equity
	FinalEquity float64
	Expectancy  float64 // mean profit per trade in stake multiples
	MaxDrawdown float64 // worst peak-to-trough of the equity curve, <= 0
	BrierScore  float64 // calibration error over resolved trades

	// RejectCounts maps each rejection reason to its occurrence count.
	RejectCounts map[RejectReason]int
}

// RunSummary is the persisted record of a completed run, sufficient to
// reproduce the backtest: configuration hash, seed, and bar range.
type RunSummary struct {
	RunID       string
	Symbol      string
	Timeframe   string
	Mode        string // "backtest" or "live"
	ConfigHash  string
	Seed        int64
	StartMs     int64
	EndMs       int64
	BarCount    int
	CreatedAtMs int64

	Metrics Summary
}

// Run mode constants.
const (
	RunModeBacktest = "backtest"
	RunModeLive     = "live"
)
