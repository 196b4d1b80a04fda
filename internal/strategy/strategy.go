// Package strategy implements the signal generators. Each generator is a
// pure function of the indicator state, which keeps replay deterministic.
package strategy

import (
	"binary-options-lab/internal/domain"
)

// Strategy produces a directional signal from the indicator state.
type Strategy interface {
	// ProduceSignal returns a signal for the current bar, or nil to
	// abstain. A not-ready state must always yield nil.
	ProduceSignal(state *domain.IndicatorState) *domain.Signal

	// ID returns the strategy identifier.
	ID() string
}
