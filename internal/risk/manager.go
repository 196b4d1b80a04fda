// Package risk implements the expectancy gate and the daily risk budget.
// All hard financial constraints live here; the execution loop cannot
// open a trade the manager has not approved.
package risk

import (
	"time"

	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

// Breakeven returns the win probability at which expected value is zero
// for a given payout.
func Breakeven(payout float64) float64 {
	return 1 / (1 + payout)
}

// Expectancy returns the expected profit per trade in stake multiples.
func Expectancy(pWin, payout float64) float64 {
	return pWin*payout - (1-pWin)*1.0
}

// Manager owns the RiskState for one run. Not safe for concurrent use;
// the execution loop owns it and calls it synchronously per bar.
type Manager struct {
	cfg   config.RiskConfig
	loc   *time.Location
	state domain.RiskState
}

// NewManager creates a risk manager with the given starting equity. The
// location defines the day boundary for daily resets.
func NewManager(cfg config.RiskConfig, initialEquity float64, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		cfg: cfg,
		loc: loc,
		state: domain.RiskState{
			Equity:           initialEquity,
			StartOfDayEquity: initialEquity,
			HighWaterMark:    initialEquity,
		},
	}
}

// Evaluate applies the expectancy gate and the daily budget to one
// candidate. tsMs drives the day-boundary roll, so callers must pass
// timestamps in order. Returns RejectNone on acceptance.
func (m *Manager) Evaluate(pWin, payout float64, tsMs int64) domain.RejectReason {
	m.rollDay(tsMs)

	if m.state.LimitBreached {
		// Once a daily limit is hit, everything is rejected until the
		// next day boundary, regardless of signal quality.
		return m.state.BreachedBy
	}
	if m.cfg.MaxTradesPerDay > 0 && m.state.TradesToday >= m.cfg.MaxTradesPerDay {
		return domain.RejectTradeCap
	}
	if payout < m.cfg.MinPayout {
		return domain.RejectPayoutTooLow
	}
	if pWin <= Breakeven(payout)+m.cfg.SafetyMargin {
		return domain.RejectBelowThreshold
	}
	return domain.RejectNone
}

// Stake returns the stake for a trade opened now: a fixed fraction of
// current equity. It deliberately takes no argument describing past
// outcomes, which makes martingale-style recovery sizing impossible to
// express.
func (m *Manager) Stake() float64 {
	return m.state.Equity * m.cfg.RiskPerTrade
}

// ApplyOutcome books a resolved trade's signed profit into equity and the
// daily ledger, then latches a limit breach if one occurred.
func (m *Manager) ApplyOutcome(profit float64, tsMs int64) {
	m.rollDay(tsMs)

	m.state.Equity += profit
	m.state.DailyPnL += profit
	m.state.TradesToday++
	if m.state.Equity > m.state.HighWaterMark {
		m.state.HighWaterMark = m.state.Equity
	}

	base := m.state.StartOfDayEquity
	switch {
	case m.state.DailyPnL <= base*m.cfg.DailyLossLimit:
		m.state.LimitBreached = true
		m.state.BreachedBy = domain.RejectDailyLossLimit
	case m.state.DailyPnL >= base*m.cfg.DailyProfitTarget:
		m.state.LimitBreached = true
		m.state.BreachedBy = domain.RejectDailyProfitTarget
	}
}

// State returns a copy of the current risk state.
func (m *Manager) State() domain.RiskState {
	return m.state
}

// Equity returns current equity.
func (m *Manager) Equity() float64 {
	return m.state.Equity
}

// rollDay resets the daily ledger when the calendar date (in the
// configured location) of tsMs differs from the current one.
func (m *Manager) rollDay(tsMs int64) {
	day := time.UnixMilli(tsMs).In(m.loc).Format("2006-01-02")
	if m.state.Day == day {
		return
	}
	m.state.Day = day
	m.state.StartOfDayEquity = m.state.Equity
	m.state.DailyPnL = 0
	m.state.TradesToday = 0
	m.state.LimitBreached = false
	m.state.BreachedBy = domain.RejectNone
}
