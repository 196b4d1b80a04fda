// Package broker defines the execution venue interface and a
// deterministic paper-trading implementation of it.
package broker

import (
	"context"
	"errors"

	"binary-options-lab/internal/domain"
)

// Broker errors.
var (
	// ErrOrderNotFound is returned when the order ID is unknown to the
	// venue.
	ErrOrderNotFound = errors.New("order not found")

	// ErrMarketClosed is returned when the venue refuses new positions.
	ErrMarketClosed = errors.New("market closed")

	// ErrInsufficientBalance is returned when the stake exceeds the
	// account balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Order is an accepted binary-option position at the venue.
type Order struct {
	OrderID    string
	Symbol     string
	Direction  domain.Direction
	Stake      float64
	Payout     float64
	EntryPrice float64
	PlacedAtMs int64
	ExpiryMs   int64
}

// Result is the settlement of an order. Settled is false while the
// option has not expired yet.
type Result struct {
	Settled   bool
	Outcome   domain.Outcome
	ExitPrice float64
	// Profit is the signed account effect in stake currency: +stake*payout
	// on a win, -stake on a loss, 0 on a tie (stake refunded).
	Profit float64
}

// Venue is the execution interface the live runner trades against. All
// calls may hit the network and take a context.
type Venue interface {
	// Balance returns the current account balance.
	Balance(ctx context.Context) (float64, error)

	// Quote returns the current payout for the symbol and expiry.
	Quote(ctx context.Context, symbol string, expirySeconds int) (float64, error)

	// Price returns the venue's current price for the symbol.
	Price(ctx context.Context, symbol string) (float64, error)

	// Place opens a binary-option position. The stake is committed on
	// success.
	Place(ctx context.Context, symbol string, direction domain.Direction, stake float64, expirySeconds int) (*Order, error)

	// Settle reports the order's outcome. Settled=false means the option
	// has not expired; callers poll again later.
	Settle(ctx context.Context, orderID string) (*Result, error)

	// MarketOpen reports whether the venue accepts positions on the
	// symbol right now.
	MarketOpen(ctx context.Context, symbol string) (bool, error)
}
