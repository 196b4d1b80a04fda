package strategy

import (
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

// BreakoutStrategy signals when the close breaks out of the prior
// Donchian channel: CALL above the prior high, PUT below the prior low.
// The prior-bar window is used so the breaking bar cannot widen its own
// channel.
type BreakoutStrategy struct{}

// NewBreakoutStrategy creates a breakout strategy from configuration.
// The Donchian period itself lives in the indicator engine.
func NewBreakoutStrategy(_ config.BreakoutConfig) *BreakoutStrategy {
	return &BreakoutStrategy{}
}

// ID returns the strategy identifier.
func (s *BreakoutStrategy) ID() string { return domain.StrategyBreakout }

// ProduceSignal emits a signal on a channel breakout.
func (s *BreakoutStrategy) ProduceSignal(state *domain.IndicatorState) *domain.Signal {
	if !state.Ready {
		return nil
	}

	switch {
	case state.Bar.Close > state.PrevDonchianHigh:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionCall, TimestampMs: state.Bar.TimestampMs}
	case state.Bar.Close < state.PrevDonchianLow:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionPut, TimestampMs: state.Bar.TimestampMs}
	}
	return nil
}

var _ Strategy = (*BreakoutStrategy)(nil)
