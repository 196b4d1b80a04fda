package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore         storage.RunStore
	tradeStore       storage.TradeStore
	opportunityStore storage.OpportunityStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. The opportunity store may
// be nil when the audit log was not persisted.
func NewGenerator(runStore storage.RunStore, tradeStore storage.TradeStore, opportunityStore storage.OpportunityStore) *Generator {
	return &Generator{
		runStore:         runStore,
		tradeStore:       tradeStore,
		opportunityStore: opportunityStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report for one run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	var opportunities []domain.Opportunity
	if g.opportunityStore != nil {
		opportunities, err = g.opportunityStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load opportunities for run %s: %w", runID, err)
		}
	}

	return &Report{
		GeneratedAt: g.now(),
		Run:         *run,
		PerStrategy: perStrategyRows(trades),
		Rejections:  rejectionRows(run.Metrics.RejectCounts, opportunities),
		Trades:      trades,
	}, nil
}

func perStrategyRows(trades []*domain.Trade) []StrategyRow {
	byStrategy := make(map[string]*StrategyRow)
	pWinSums := make(map[string]float64)

	for _, t := range trades {
		if t.Stake == 0 || t.State != domain.TradeStateResolved {
			continue
		}
		row := byStrategy[t.StrategyID]
		if row == nil {
			row = &StrategyRow{StrategyID: t.StrategyID}
			byStrategy[t.StrategyID] = row
		}
		row.Trades++
		row.Profit += t.Profit
		pWinSums[t.StrategyID] += t.PWin
		switch t.Outcome {
		case domain.OutcomeWin:
			row.Wins++
		case domain.OutcomeLoss:
			row.Losses++
		case domain.OutcomeTie:
			row.Ties++
		}
	}

	rows := make([]StrategyRow, 0, len(byStrategy))
	for id, row := range byStrategy {
		if decisive := row.Wins + row.Losses; decisive > 0 {
			row.WinRate = float64(row.Wins) / float64(decisive)
		}
		row.AvgPWin = pWinSums[id] / float64(row.Trades)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StrategyID < rows[j].StrategyID
	})
	return rows
}

// rejectionRows prefers the persisted run metrics; when absent it
// recounts from the audit log.
func rejectionRows(counts map[domain.RejectReason]int, opportunities []domain.Opportunity) []RejectionRow {
	if len(counts) == 0 && len(opportunities) > 0 {
		counts = make(map[domain.RejectReason]int)
		for _, o := range opportunities {
			if o.Reason != domain.RejectNone {
				counts[o.Reason]++
			}
		}
	}

	rows := make([]RejectionRow, 0, len(counts))
	for reason, count := range counts {
		rows = append(rows, RejectionRow{Reason: reason, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Reason < rows[j].Reason
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
