package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

func testStrategiesConfig() config.StrategiesConfig {
	return config.StrategiesConfig{
		Trend:    config.TrendConfig{EMAFast: 3, EMASlow: 5, ATRPeriod: 3},
		MeanRev:  config.MeanRevConfig{RSIPeriod: 2},
		Breakout: config.BreakoutConfig{DonchianPeriod: 4},
	}
}

func flatBar(i int, close float64) domain.Bar {
	return domain.Bar{
		TimestampMs: int64(i) * 60_000,
		Open:        close,
		High:        close,
		Low:         close,
		Close:       close,
	}
}

func TestWarmupBars(t *testing.T) {
	// Short indicator periods: the volatility window dominates.
	e := NewEngine(testStrategiesConfig())
	assert.Equal(t, volWindow+1, e.WarmupBars())

	// A long Donchian period dominates the volatility window.
	cfg := testStrategiesConfig()
	cfg.Breakout.DonchianPeriod = 50
	assert.Equal(t, 51, NewEngine(cfg).WarmupBars())
}

func TestReadyFlipsAtWarmup(t *testing.T) {
	e := NewEngine(testStrategiesConfig())
	warmup := e.WarmupBars()

	for i := 0; i < warmup-1; i++ {
		state := e.Update(flatBar(i, 1.1))
		require.False(t, state.Ready, "bar %d should not be ready", i)
	}
	state := e.Update(flatBar(warmup-1, 1.1))
	assert.True(t, state.Ready)
}

func TestRSIExtremes(t *testing.T) {
	e := NewEngine(testStrategiesConfig())

	state := e.Update(flatBar(0, 1.0))
	assert.Equal(t, 50.0, state.RSI, "neutral before the window fills")

	// Two consecutive up-moves fill the RSI(2) window with pure gains.
	e.Update(flatBar(1, 2.0))
	state = e.Update(flatBar(2, 3.0))
	assert.Equal(t, 100.0, state.RSI)

	// Two down-moves flush the gains out of the window.
	e.Update(flatBar(3, 2.0))
	state = e.Update(flatBar(4, 1.0))
	assert.Equal(t, 0.0, state.RSI)
}

func TestRSIFlatMarketIsNeutral(t *testing.T) {
	e := NewEngine(testStrategiesConfig())
	var state domain.IndicatorState
	for i := 0; i < 5; i++ {
		state = e.Update(flatBar(i, 1.5))
	}
	assert.Equal(t, 50.0, state.RSI)
}

func TestATRFromConstantRange(t *testing.T) {
	e := NewEngine(testStrategiesConfig())
	var state domain.IndicatorState
	for i := 0; i < 6; i++ {
		state = e.Update(domain.Bar{
			TimestampMs: int64(i) * 60_000,
			Open:        10,
			High:        10.5,
			Low:         9.5,
			Close:       10,
		})
	}
	// true range is high-low = 1 on every bar after the first
	assert.InDelta(t, 1.0, state.ATR, 1e-12)
}

func TestPrevDonchianLagsByOneBar(t *testing.T) {
	e := NewEngine(testStrategiesConfig())

	highs := []float64{1.10, 1.12, 1.11, 1.15, 1.13, 1.14}
	var prev domain.IndicatorState
	for i, h := range highs {
		state := e.Update(domain.Bar{
			TimestampMs: int64(i) * 60_000,
			Open:        h - 0.01,
			High:        h,
			Low:         h - 0.02,
			Close:       h - 0.005,
		})
		if i > 0 {
			assert.Equal(t, prev.DonchianHigh, state.PrevDonchianHigh, "bar %d", i)
			assert.Equal(t, prev.DonchianLow, state.PrevDonchianLow, "bar %d", i)
		}
		prev = state
	}
	// Donchian(4) at the last bar covers highs[2:6].
	assert.Equal(t, 1.15, prev.DonchianHigh)
}

func TestDonchianWindowSlides(t *testing.T) {
	e := NewEngine(testStrategiesConfig())

	// The early spike must fall out of the 4-bar window.
	highs := []float64{2.00, 1.10, 1.11, 1.12, 1.13, 1.14}
	var state domain.IndicatorState
	for i, h := range highs {
		state = e.Update(domain.Bar{
			TimestampMs: int64(i) * 60_000,
			High:        h,
			Low:         1.0,
			Close:       1.05,
		})
	}
	assert.Equal(t, 1.14, state.DonchianHigh)
}

func TestReturnAndPrevEMA(t *testing.T) {
	e := NewEngine(testStrategiesConfig())

	first := e.Update(flatBar(0, 2.0))
	assert.Equal(t, 0.0, first.Return, "no return on the first bar")
	assert.Equal(t, 0.0, first.PrevEMAFast)

	second := e.Update(flatBar(1, 2.2))
	assert.InDelta(t, 0.1, second.Return, 1e-12)
	assert.Equal(t, first.EMAFast, second.PrevEMAFast)
	assert.Equal(t, first.EMASlow, second.PrevEMASlow)
}
