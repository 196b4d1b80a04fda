package strategy

import (
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

// TrendStrategy signals on EMA crossovers confirmed by an ATR volatility
// floor: CALL when the fast EMA crosses above the slow EMA, PUT on the
// symmetric cross.
type TrendStrategy struct {
	atrMultiplier float64
	atrFloorPct   float64
}

// NewTrendStrategy creates a trend strategy from configuration.
func NewTrendStrategy(cfg config.TrendConfig) *TrendStrategy {
	return &TrendStrategy{
		atrMultiplier: cfg.ATRMultiplier,
		atrFloorPct:   cfg.ATRFloorPct,
	}
}

// ID returns the strategy identifier.
func (s *TrendStrategy) ID() string { return domain.StrategyTrend }

// ProduceSignal emits a signal on a confirmed EMA crossover.
func (s *TrendStrategy) ProduceSignal(state *domain.IndicatorState) *domain.Signal {
	if !state.Ready {
		return nil
	}

	// Volatility floor: skip dead markets where a cross carries no
	// information.
	if state.ATR < state.Bar.Close*s.atrFloorPct {
		return nil
	}

	// Minimum separation after the cross, scaled by ATR.
	confirm := state.ATR * s.atrMultiplier * 0.1

	crossedUp := state.PrevEMAFast <= state.PrevEMASlow && state.EMAFast > state.EMASlow
	crossedDown := state.PrevEMAFast >= state.PrevEMASlow && state.EMAFast < state.EMASlow

	switch {
	case crossedUp && state.EMAFast-state.EMASlow > confirm:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionCall, TimestampMs: state.Bar.TimestampMs}
	case crossedDown && state.EMASlow-state.EMAFast > confirm:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionPut, TimestampMs: state.Bar.TimestampMs}
	}
	return nil
}

var _ Strategy = (*TrendStrategy)(nil)
