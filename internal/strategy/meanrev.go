package strategy

import (
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

// MeanRevStrategy fades RSI extremes: CALL when deeply oversold, PUT when
// deeply overbought. With the default RSI(2) < 5 / > 95 thresholds it
// fires rarely and only on washed-out moves.
type MeanRevStrategy struct {
	oversold   float64
	overbought float64
}

// NewMeanRevStrategy creates a mean-reversion strategy from configuration.
func NewMeanRevStrategy(cfg config.MeanRevConfig) *MeanRevStrategy {
	return &MeanRevStrategy{
		oversold:   cfg.RSIOversold,
		overbought: cfg.RSIOverbought,
	}
}

// ID returns the strategy identifier.
func (s *MeanRevStrategy) ID() string { return domain.StrategyMeanRev }

// ProduceSignal emits a signal at RSI extremes.
func (s *MeanRevStrategy) ProduceSignal(state *domain.IndicatorState) *domain.Signal {
	if !state.Ready {
		return nil
	}

	switch {
	case state.RSI < s.oversold:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionCall, TimestampMs: state.Bar.TimestampMs}
	case state.RSI > s.overbought:
		return &domain.Signal{StrategyID: s.ID(), Direction: domain.DirectionPut, TimestampMs: state.Bar.TimestampMs}
	}
	return nil
}

var _ Strategy = (*MeanRevStrategy)(nil)
