package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps all configuration validation failures.
// Configuration errors fail fast at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full run configuration. One instrument/timeframe pair per
// run; defaults follow the demo setup of the original system.
type Config struct {
	Symbol     string `yaml:"symbol" default:"EURUSD" validate:"required"`
	Timeframe  string `yaml:"timeframe" default:"1m" validate:"required"`
	ExpiryBars int    `yaml:"expiry_bars" default:"5" validate:"min=1"`
	Seed       int64  `yaml:"seed" default:"42"`
	Timezone   string `yaml:"timezone" default:"UTC"`

	Strategies StrategiesConfig `yaml:"strategies"`
	Bandit     BanditConfig     `yaml:"bandit"`
	Model      ModelConfig      `yaml:"model"`
	Risk       RiskConfig       `yaml:"risk"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	Live       LiveConfig       `yaml:"live"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// StrategiesConfig enables and parameterizes the signal generators.
// Generators are registered in a fixed order (trend, meanrev, breakout)
// driven by the enable flags.
type StrategiesConfig struct {
	Trend    TrendConfig    `yaml:"trend"`
	MeanRev  MeanRevConfig  `yaml:"meanrev"`
	Breakout BreakoutConfig `yaml:"breakout"`
}

// TrendConfig parameterizes the EMA-cross trend strategy.
type TrendConfig struct {
	Enabled       bool    `yaml:"enabled" default:"true"`
	EMAFast       int     `yaml:"ema_fast" default:"9" validate:"min=1"`
	EMASlow       int     `yaml:"ema_slow" default:"21" validate:"min=2"`
	ATRPeriod     int     `yaml:"atr_period" default:"14" validate:"min=1"`
	ATRMultiplier float64 `yaml:"atr_multiplier" default:"1.0" validate:"gt=0"`
	// ATRFloorPct is the minimum ATR as a fraction of close below which
	// the market is considered too quiet to trade.
	ATRFloorPct float64 `yaml:"atr_floor_pct" default:"0.0001" validate:"gte=0"`
}

// MeanRevConfig parameterizes the RSI mean-reversion strategy.
type MeanRevConfig struct {
	Enabled       bool    `yaml:"enabled" default:"true"`
	RSIPeriod     int     `yaml:"rsi_period" default:"2" validate:"min=1"`
	RSIOversold   float64 `yaml:"rsi_oversold" default:"5" validate:"gte=0,lt=50"`
	RSIOverbought float64 `yaml:"rsi_overbought" default:"95" validate:"gt=50,lte=100"`
}

// BreakoutConfig parameterizes the Donchian breakout strategy.
type BreakoutConfig struct {
	Enabled        bool `yaml:"enabled" default:"true"`
	DonchianPeriod int  `yaml:"donchian_period" default:"20" validate:"min=2"`
}

// BanditConfig parameterizes the epsilon-greedy arm selector. The
// exploration draw is the only source of randomness in the decision path
// and is always seeded from Config.Seed.
type BanditConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	Epsilon float64 `yaml:"epsilon" default:"0.1" validate:"gte=0,lte=1"`
}

// ModelConfig selects the probability model and its calibration mode.
type ModelConfig struct {
	// Type is the model family; "logistic" is the only online model.
	Type string `yaml:"type" default:"logistic" validate:"oneof=logistic"`
	// Calibration is "none", "platt" or "isotonic".
	Calibration string `yaml:"calibration" default:"none" validate:"oneof=none platt isotonic"`
	// MinObservations is the cold-start floor: below it every candidate
	// signal is rejected with reason COLD_START.
	MinObservations int `yaml:"min_observations" default:"30" validate:"min=0"`
	// CalibrationWindow is the sliding buffer size of recent
	// (prediction, outcome) pairs used to refit the calibrator.
	CalibrationWindow int `yaml:"calibration_window" default:"200" validate:"min=10"`
	// CalibrationRefit refits the calibrator every N observed outcomes.
	CalibrationRefit int     `yaml:"calibration_refit" default:"25" validate:"min=1"`
	LearningRate     float64 `yaml:"learning_rate" default:"0.05" validate:"gt=0"`
	L2               float64 `yaml:"l2" default:"0.0001" validate:"gte=0"`
}

// RiskConfig holds the hard financial constraints. Daily limits are signed
// fractions of start-of-day equity.
type RiskConfig struct {
	// RiskPerTrade is the fixed stake fraction of current equity. Stake is
	// never a function of prior outcomes; martingale-style sizing is a
	// hard invariant violation, not a tunable.
	RiskPerTrade      float64 `yaml:"risk_per_trade" default:"0.01" validate:"gt=0,lte=0.05"`
	DailyLossLimit    float64 `yaml:"daily_loss_limit" default:"-0.05" validate:"lt=0"`
	DailyProfitTarget float64 `yaml:"daily_profit_target" default:"0.03" validate:"gt=0"`
	MinPayout         float64 `yaml:"min_payout" default:"0.80" validate:"gt=0,lt=1"`
	SafetyMargin      float64 `yaml:"safety_margin" default:"0.02" validate:"gte=0,lt=0.5"`
	// MaxTradesPerDay caps daily trade count; 0 means no cap.
	MaxTradesPerDay int `yaml:"max_trades_per_day" default:"0" validate:"min=0"`
}

// BacktestConfig parameterizes the walk-forward replay harness.
type BacktestConfig struct {
	InitialBalance float64 `yaml:"initial_balance" default:"1000" validate:"gt=0"`
	// LatencyMs is the simulated delay between signal time and fill.
	LatencyMs int64 `yaml:"latency_ms" default:"100" validate:"min=0"`
	// SlippagePct shifts the fill price against the position, in percent.
	SlippagePct float64 `yaml:"slippage_pct" default:"0.0" validate:"gte=0"`
	BasePayout  float64 `yaml:"base_payout" default:"0.85" validate:"gt=0,lt=1"`
	// PayoutJitter adds a seeded +/-0.05 variation around BasePayout,
	// clamped to [0.70, 0.95], as broker payouts drift in practice.
	PayoutJitter bool `yaml:"payout_jitter" default:"false"`
	// MaxBarGap aborts the run when consecutive bar timestamps are more
	// than this many timeframe intervals apart; 0 disables the check.
	MaxBarGap int `yaml:"max_bar_gap" default:"5" validate:"min=0"`
	// PretrainBars warms the probability model over a historical prefix
	// before trading begins.
	PretrainBars int `yaml:"pretrain_bars" default:"0" validate:"min=0"`
}

// LiveConfig parameterizes the live/paper loop.
type LiveConfig struct {
	FeedURL       string        `yaml:"feed_url"`
	CheckInterval time.Duration `yaml:"check_interval" default:"1s"`
	// MaxBrokerFailures halts the loop after this many consecutive broker
	// failures.
	MaxBrokerFailures int           `yaml:"max_broker_failures" default:"5" validate:"min=1"`
	BrokerRetries     int           `yaml:"broker_retries" default:"3" validate:"min=0"`
	BrokerBackoff     time.Duration `yaml:"broker_backoff" default:"500ms"`
	MetricsAddr       string        `yaml:"metrics_addr" default:":9090"`
	ShutdownGrace     time.Duration `yaml:"shutdown_grace" default:"30s"`
}

// StorageConfig selects the persistence backends. Empty DSNs mean
// in-memory storage.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns a fully-defaulted configuration.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// defaults.Set only fails on malformed struct tags.
		panic(err)
	}
	return &c
}

// Validate checks field constraints and cross-field invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Strategies.Trend.Enabled && c.Strategies.Trend.EMAFast >= c.Strategies.Trend.EMASlow {
		return fmt.Errorf("%w: trend.ema_fast (%d) must be below trend.ema_slow (%d)",
			ErrInvalidConfig, c.Strategies.Trend.EMAFast, c.Strategies.Trend.EMASlow)
	}
	if c.Strategies.MeanRev.Enabled && c.Strategies.MeanRev.RSIOversold >= c.Strategies.MeanRev.RSIOverbought {
		return fmt.Errorf("%w: meanrev.rsi_oversold must be below meanrev.rsi_overbought", ErrInvalidConfig)
	}
	if !c.Strategies.Trend.Enabled && !c.Strategies.MeanRev.Enabled && !c.Strategies.Breakout.Enabled {
		return fmt.Errorf("%w: at least one strategy must be enabled", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return nil
}

// Location returns the configured day-boundary timezone. Validate
// guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Hash returns a stable hash of the marshaled configuration, recorded in
// run summaries for reproducibility.
func (c *Config) Hash() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
