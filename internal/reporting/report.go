// Package reporting produces run reports from stored data.
package reporting

import (
	"time"

	"binary-options-lab/internal/domain"
)

// Report is the rendered summary of one run.
type Report struct {
	GeneratedAt time.Time
	Run         domain.RunSummary

	// PerStrategy breaks the trade record down by signal source,
	// sorted by strategy_id.
	PerStrategy []StrategyRow

	// Rejections counts gate declines by reason, sorted by count DESC.
	Rejections []RejectionRow

	// Trades is the full trade record, ordered by open time ASC.
	Trades []*domain.Trade
}

// StrategyRow is the per-strategy performance breakdown.
type StrategyRow struct {
	StrategyID string
	Trades     int
	Wins       int
	Losses     int
	Ties       int
	WinRate    float64
	Profit     float64
	AvgPWin    float64
}

// RejectionRow is one reason's share of the gate declines.
type RejectionRow struct {
	Reason domain.RejectReason
	Count  int
}
