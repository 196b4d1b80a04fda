package strategy

import (
	"errors"

	"binary-options-lab/internal/config"
)

// ErrNoStrategiesEnabled is returned when configuration disables every
// signal generator.
var ErrNoStrategiesEnabled = errors.New("no strategies enabled")

// FromConfig builds the enabled strategies in registration order
// (trend, meanrev, breakout). The order is fixed so that replay and
// selector tie-breaks are deterministic across runs.
func FromConfig(cfg config.StrategiesConfig) ([]Strategy, error) {
	var strategies []Strategy

	if cfg.Trend.Enabled {
		strategies = append(strategies, NewTrendStrategy(cfg.Trend))
	}
	if cfg.MeanRev.Enabled {
		strategies = append(strategies, NewMeanRevStrategy(cfg.MeanRev))
	}
	if cfg.Breakout.Enabled {
		strategies = append(strategies, NewBreakoutStrategy(cfg.Breakout))
	}

	if len(strategies) == 0 {
		return nil, ErrNoStrategiesEnabled
	}
	return strategies, nil
}
