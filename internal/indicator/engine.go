// Package indicator computes technical features incrementally from an
// ordered bar stream. Every update is O(1) amortized: EMA/ATR/RSI use
// fixed-window running sums and the Donchian channel uses monotonic
// deques.
package indicator

import (
	"math"

	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
)

// volWindow is the rolling window for the return-volatility feature.
const volWindow = 20

// Engine maintains the incremental indicator state for one instrument.
// Not safe for concurrent use; the execution loop owns it.
type Engine struct {
	cfg config.StrategiesConfig

	count     int
	prevClose float64

	emaFast *ema
	emaSlow *ema

	gains  *windowSum // RSI average gain
	losses *windowSum // RSI average loss
	tr     *windowSum // ATR true range

	donchianHigh *monotonicDeque
	donchianLow  *monotonicDeque

	returns *windowStats

	prev domain.IndicatorState
}

// NewEngine creates an indicator engine for the configured strategy
// parameters.
func NewEngine(cfg config.StrategiesConfig) *Engine {
	return &Engine{
		cfg:          cfg,
		emaFast:      newEMA(cfg.Trend.EMAFast),
		emaSlow:      newEMA(cfg.Trend.EMASlow),
		gains:        newWindowSum(cfg.MeanRev.RSIPeriod),
		losses:       newWindowSum(cfg.MeanRev.RSIPeriod),
		tr:           newWindowSum(cfg.Trend.ATRPeriod),
		donchianHigh: newMonotonicDeque(cfg.Breakout.DonchianPeriod, true),
		donchianLow:  newMonotonicDeque(cfg.Breakout.DonchianPeriod, false),
		returns:      newWindowStats(volWindow),
	}
}

// WarmupBars returns the number of bars required before Update produces a
// ready state.
func (e *Engine) WarmupBars() int {
	warmup := e.cfg.Trend.EMASlow
	if n := e.cfg.Trend.ATRPeriod + 1; n > warmup {
		warmup = n
	}
	if n := e.cfg.MeanRev.RSIPeriod + 1; n > warmup {
		warmup = n
	}
	if n := e.cfg.Breakout.DonchianPeriod + 1; n > warmup {
		warmup = n
	}
	if volWindow+1 > warmup {
		warmup = volWindow + 1
	}
	return warmup
}

// Update folds one bar into the indicator state and returns the state
// keyed to that bar. Bars must arrive in timestamp order.
func (e *Engine) Update(bar domain.Bar) domain.IndicatorState {
	state := domain.IndicatorState{
		BarIndex:         e.count,
		Bar:              bar,
		PrevEMAFast:      e.prev.EMAFast,
		PrevEMASlow:      e.prev.EMASlow,
		PrevDonchianHigh: e.prev.DonchianHigh,
		PrevDonchianLow:  e.prev.DonchianLow,
	}

	state.EMAFast = e.emaFast.update(bar.Close)
	state.EMASlow = e.emaSlow.update(bar.Close)

	if e.count > 0 {
		delta := bar.Close - e.prevClose
		e.gains.push(math.Max(delta, 0))
		e.losses.push(math.Max(-delta, 0))
		e.tr.push(trueRange(bar, e.prevClose))
		if e.prevClose != 0 {
			state.Return = delta / e.prevClose
		}
		e.returns.push(state.Return)
	}

	state.RSI = rsiFromSums(e.gains, e.losses)
	state.ATR = e.tr.mean()

	e.donchianHigh.push(e.count, bar.High)
	e.donchianLow.push(e.count, bar.Low)
	state.DonchianHigh = e.donchianHigh.extreme()
	state.DonchianLow = e.donchianLow.extreme()

	state.Volatility = e.returns.stddev()

	e.count++
	state.Ready = e.count >= e.WarmupBars()

	e.prevClose = bar.Close
	e.prev = state
	return state
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(bar domain.Bar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if v := math.Abs(bar.High - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(bar.Low - prevClose); v > tr {
		tr = v
	}
	return tr
}

// rsiFromSums computes RSI from windowed gain/loss averages. A window
// with no losses saturates at 100, no gains at 0; an empty window is
// neutral 50.
func rsiFromSums(gains, losses *windowSum) float64 {
	if !gains.full() {
		return 50
	}
	avgGain := gains.mean()
	avgLoss := losses.mean()
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
