package engine

import "errors"

// Engine errors.
var (
	// ErrDataGap is returned when the bar stream is out of order or has a
	// hole larger than the configured tolerance. Backtests abort on it;
	// the live loop skips the step and logs.
	ErrDataGap = errors.New("data gap: bar stream out of order or missing bars")

	// ErrTradeOpen is returned when opening a trade would violate the
	// at-most-one-open-trade invariant.
	ErrTradeOpen = errors.New("a trade is already open")

	// ErrBrokerFailure wraps broker open/resolve failures after retries
	// are exhausted.
	ErrBrokerFailure = errors.New("broker failure")
)
