package domain

import "time"

// Bar represents a single OHLCV bar. Bars are append-only during a run and
// immutable once produced.
type Bar struct {
	TimestampMs int64 // bar open time, Unix milliseconds
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // optional, 0 when the feed does not provide it
}

// Time returns the bar timestamp as UTC time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.TimestampMs).UTC()
}

// IndicatorState holds derived indicator values keyed to a bar. It is
// recomputed incrementally as new bars arrive and never mutated
// retroactively. Ready is false until the indicator engine has seen enough
// bars to warm up; downstream strategies must treat a not-ready state as
// "no signal".
type IndicatorState struct {
	BarIndex int
	Bar      Bar
	Ready    bool

	EMAFast     float64
	EMASlow     float64
	PrevEMAFast float64
	PrevEMASlow float64

	ATR float64
	RSI float64

	// Donchian channel over the current window and over the window ending
	// at the previous bar (breakout entries compare against the prior
	// window so the current bar cannot break its own extreme).
	DonchianHigh     float64
	DonchianLow      float64
	PrevDonchianHigh float64
	PrevDonchianLow  float64

	Return     float64 // close-to-close return of this bar
	Volatility float64 // rolling stddev of returns
}
