package engine

import (
	"binary-options-lab/internal/domain"
)

// ContextSize is the fixed shape of the model/bandit context vector.
const ContextSize = 17

// BuildContext assembles the feature vector for one candidate signal:
// indicator values, strategy identity (one-hot), time-of-day features and
// the selector's current reward estimate for the strategy. The shape is
// fixed regardless of which strategies are enabled so the model weights
// stay aligned across configurations.
func BuildContext(state *domain.IndicatorState, strategyID string, armMean float64) []float64 {
	t := state.Bar.Time()

	features := make([]float64, 0, ContextSize)
	features = append(features,
		state.EMAFast,
		state.EMASlow,
		state.EMAFast-state.EMASlow,
		state.ATR,
		state.RSI,
		state.DonchianHigh,
		state.DonchianLow,
		state.Bar.Close-state.DonchianHigh,
		state.Bar.Close-state.DonchianLow,
		state.Return,
		state.Volatility,
		float64(t.Hour()),
		float64(t.Weekday()),
		oneHot(strategyID == domain.StrategyTrend),
		oneHot(strategyID == domain.StrategyMeanRev),
		oneHot(strategyID == domain.StrategyBreakout),
		armMean,
	)
	return features
}

func oneHot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
