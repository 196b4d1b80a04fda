// Package metrics computes run-level performance statistics from the
// trade record and the equity curve.
package metrics

import (
	"binary-options-lab/internal/domain"
)

// Compute derives the run summary from terminal trades, the per-bar
// equity samples and the opportunity audit log. Shadow trades (zero
// stake) are excluded from the financial statistics.
func Compute(trades []*domain.Trade, equityCurve []float64, opportunities []domain.Opportunity, initialBalance float64) domain.Summary {
	s := domain.Summary{
		FinalEquity:  initialBalance,
		RejectCounts: make(map[domain.RejectReason]int),
	}

	var expectancySum float64
	var brierSum float64
	brierN := 0

	for _, t := range trades {
		if t.Stake == 0 {
			continue
		}
		switch {
		case t.State == domain.TradeStateAborted:
			s.Aborted++
			continue
		case t.Outcome == domain.OutcomeWin:
			s.Wins++
		case t.Outcome == domain.OutcomeLoss:
			s.Losses++
		case t.Outcome == domain.OutcomeTie:
			s.Ties++
		default:
			continue
		}
		s.TotalTrades++
		s.TotalProfit += t.Profit
		expectancySum += t.Profit / t.Stake

		// Brier score over decisive outcomes only; a tie has no binary
		// label to score against.
		if t.Outcome == domain.OutcomeWin || t.Outcome == domain.OutcomeLoss {
			y := 0.0
			if t.Outcome == domain.OutcomeWin {
				y = 1
			}
			d := t.PWin - y
			brierSum += d * d
			brierN++
		}
	}

	if decisive := s.Wins + s.Losses; decisive > 0 {
		s.WinRate = float64(s.Wins) / float64(decisive)
	}
	if s.TotalTrades > 0 {
		s.Expectancy = expectancySum / float64(s.TotalTrades)
	}
	if brierN > 0 {
		s.BrierScore = brierSum / float64(brierN)
	}
	if len(equityCurve) > 0 {
		s.FinalEquity = equityCurve[len(equityCurve)-1]
	}
	if initialBalance > 0 {
		s.TotalReturn = (s.FinalEquity - initialBalance) / initialBalance
	}
	s.MaxDrawdown = MaxDrawdown(equityCurve)

	for _, o := range opportunities {
		if o.Reason != domain.RejectNone {
			s.RejectCounts[o.Reason]++
		}
	}
	return s
}

// MaxDrawdown returns the worst peak-to-trough decline of the equity
// curve as a negative fraction of the peak. Zero for a non-decreasing
// curve.
func MaxDrawdown(equityCurve []float64) float64 {
	var worst float64
	var peak float64
	for i, e := range equityCurve {
		if i == 0 || e > peak {
			peak = e
			continue
		}
		if peak > 0 {
			dd := (e - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
