package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "EURUSD", cfg.Symbol)
	assert.Equal(t, "1m", cfg.Timeframe)
	assert.Equal(t, 5, cfg.ExpiryBars)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.Strategies.Trend.Enabled)
	assert.Equal(t, 9, cfg.Strategies.Trend.EMAFast)
	assert.Equal(t, 21, cfg.Strategies.Trend.EMASlow)
	assert.Equal(t, 0.1, cfg.Bandit.Epsilon)
	assert.Equal(t, "logistic", cfg.Model.Type)
	assert.Equal(t, 30, cfg.Model.MinObservations)
	assert.Equal(t, 0.01, cfg.Risk.RiskPerTrade)
	assert.Equal(t, -0.05, cfg.Risk.DailyLossLimit)
	assert.Equal(t, 1000.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, 0.85, cfg.Backtest.BasePayout)

	assert.NoError(t, cfg.Validate(), "defaults must validate")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbol: GBPUSD
seed: 7
risk:
  risk_per_trade: 0.02
backtest:
  payout_jitter: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "GBPUSD", cfg.Symbol)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 0.02, cfg.Risk.RiskPerTrade)
	assert.True(t, cfg.Backtest.PayoutJitter)

	// Untouched fields keep their defaults.
	assert.Equal(t, "1m", cfg.Timeframe)
	assert.Equal(t, 0.85, cfg.Backtest.BasePayout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fast ema at slow ema", func(c *Config) { c.Strategies.Trend.EMAFast = 21 }},
		{"fast ema above slow ema", func(c *Config) { c.Strategies.Trend.EMAFast = 30 }},
		{"rsi oversold above midpoint", func(c *Config) { c.Strategies.MeanRev.RSIOversold = 60 }},
		{"rsi overbought below midpoint", func(c *Config) { c.Strategies.MeanRev.RSIOverbought = 40 }},
		{"no strategies enabled", func(c *Config) {
			c.Strategies.Trend.Enabled = false
			c.Strategies.MeanRev.Enabled = false
			c.Strategies.Breakout.Enabled = false
		}},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidateFieldConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"risk per trade above cap", func(c *Config) { c.Risk.RiskPerTrade = 0.10 }},
		{"positive daily loss limit", func(c *Config) { c.Risk.DailyLossLimit = 0.05 }},
		{"epsilon above one", func(c *Config) { c.Bandit.Epsilon = 1.5 }},
		{"unknown model type", func(c *Config) { c.Model.Type = "forest" }},
		{"unknown calibration", func(c *Config) { c.Model.Calibration = "beta" }},
		{"zero expiry", func(c *Config) { c.ExpiryBars = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDisabledStrategyParamsAreNotCrossChecked(t *testing.T) {
	cfg := Default()
	cfg.Strategies.Trend.Enabled = false
	cfg.Strategies.Trend.EMAFast = 50 // would be invalid if enabled

	assert.NoError(t, cfg.Validate())
}

func TestHashIsStableAndSensitive(t *testing.T) {
	a := Default()
	b := Default()
	require.NotEmpty(t, a.Hash())
	assert.Equal(t, a.Hash(), b.Hash(), "identical configs hash identically")

	b.Seed = 43
	assert.NotEqual(t, a.Hash(), b.Hash(), "hash must react to any field change")
}

func TestLocation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Timezone = "Europe/London"
	assert.Equal(t, "Europe/London", cfg.Location().String())
}
