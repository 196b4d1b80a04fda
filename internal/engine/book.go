package engine

import (
	"binary-options-lab/internal/domain"
)

// Book is the arena of trade records for one run. Trades are indexed by
// position; the book enforces the at-most-one-open-trade invariant and
// the single outcome assignment.
type Book struct {
	trades  []*domain.Trade
	openIdx int // index of the open/pending trade, -1 when flat

	// context vectors of unresolved trades, needed for the model and
	// bandit updates at resolution time
	contexts map[string][]float64
}

// NewBook creates an empty trade book.
func NewBook() *Book {
	return &Book{openIdx: -1, contexts: make(map[string][]float64)}
}

// HasOpen reports whether a trade is currently open or pending.
func (b *Book) HasOpen() bool { return b.openIdx >= 0 }

// Open appends a new trade in OPEN state and immediately transitions it
// to PENDING (stake committed, awaiting expiry). Returns ErrTradeOpen if
// a trade is already open.
func (b *Book) Open(t *domain.Trade, context []float64) error {
	if b.HasOpen() {
		return ErrTradeOpen
	}
	t.State = domain.TradeStateOpen
	t.Outcome = domain.OutcomePending
	b.trades = append(b.trades, t)
	b.openIdx = len(b.trades) - 1
	b.contexts[t.TradeID] = context
	t.State = domain.TradeStatePending
	return nil
}

// Pending returns the pending trade, or nil when flat.
func (b *Book) Pending() *domain.Trade {
	if !b.HasOpen() {
		return nil
	}
	return b.trades[b.openIdx]
}

// Context returns the context vector captured when the trade was opened.
func (b *Book) Context(tradeID string) []float64 {
	return b.contexts[tradeID]
}

// Resolve terminates the pending trade with its outcome. The outcome is
// set exactly once; the trade is immutable afterwards.
func (b *Book) Resolve(outcome domain.Outcome, exitPrice, profit float64) *domain.Trade {
	t := b.Pending()
	if t == nil {
		return nil
	}
	t.Outcome = outcome
	t.ExitPrice = exitPrice
	t.Profit = profit
	t.State = domain.TradeStateResolved
	delete(b.contexts, t.TradeID)
	b.openIdx = -1
	return t
}

// Abort terminates the pending trade without an outcome (live shutdown or
// exhausted broker retries). The stake is considered returned.
func (b *Book) Abort() *domain.Trade {
	t := b.Pending()
	if t == nil {
		return nil
	}
	t.Outcome = domain.OutcomePending
	t.State = domain.TradeStateAborted
	delete(b.contexts, t.TradeID)
	b.openIdx = -1
	return t
}

// Trades returns all trades in open order.
func (b *Book) Trades() []*domain.Trade { return b.trades }
