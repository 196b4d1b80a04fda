package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binary-options-lab/internal/domain"
)

// fakeClock is an adjustable clock for expiry control.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPaper(balance float64) (*Paper, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	return NewPaper(balance, 0.85, 42, clock.Now), clock
}

func TestPaperPlaceDeductsStake(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPaper(100)

	order, err := p.Place(ctx, "EURUSD", domain.DirectionCall, 10, 300)
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, 10.0, order.Stake)
	assert.GreaterOrEqual(t, order.Payout, 0.70)
	assert.LessOrEqual(t, order.Payout, 0.95)
	assert.Equal(t, order.PlacedAtMs+300_000, order.ExpiryMs)

	balance, err := p.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, balance, 1e-9)
}

func TestPaperPlaceInsufficientBalance(t *testing.T) {
	p, _ := newTestPaper(5)
	_, err := p.Place(context.Background(), "EURUSD", domain.DirectionCall, 10, 300)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestPaperSettleBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPaper(100)

	order, err := p.Place(ctx, "EURUSD", domain.DirectionCall, 10, 300)
	require.NoError(t, err)

	res, err := p.Settle(ctx, order.OrderID)
	require.NoError(t, err)
	assert.False(t, res.Settled)
	assert.Equal(t, domain.OutcomePending, res.Outcome)
}

func TestPaperSettleBalancesTheBook(t *testing.T) {
	ctx := context.Background()
	p, clock := newTestPaper(100)

	order, err := p.Place(ctx, "EURUSD", domain.DirectionCall, 10, 300)
	require.NoError(t, err)
	clock.Advance(301 * time.Second)

	res, err := p.Settle(ctx, order.OrderID)
	require.NoError(t, err)
	require.True(t, res.Settled)

	balance, err := p.Balance(ctx)
	require.NoError(t, err)

	switch res.Outcome {
	case domain.OutcomeWin:
		assert.Greater(t, res.ExitPrice, order.EntryPrice)
		assert.InDelta(t, 10*order.Payout, res.Profit, 1e-9)
		assert.InDelta(t, 100+res.Profit, balance, 1e-9)
	case domain.OutcomeLoss:
		assert.Less(t, res.ExitPrice, order.EntryPrice)
		assert.InDelta(t, -10.0, res.Profit, 1e-9)
		assert.InDelta(t, 90.0, balance, 1e-9)
	case domain.OutcomeTie:
		assert.Equal(t, order.EntryPrice, res.ExitPrice)
		assert.Equal(t, 0.0, res.Profit)
		assert.InDelta(t, 100.0, balance, 1e-9, "tie refunds the stake")
	default:
		t.Fatalf("unexpected outcome %s", res.Outcome)
	}
}

func TestPaperSettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, clock := newTestPaper(100)

	order, err := p.Place(ctx, "EURUSD", domain.DirectionPut, 10, 60)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	first, err := p.Settle(ctx, order.OrderID)
	require.NoError(t, err)
	balanceAfterFirst, err := p.Balance(ctx)
	require.NoError(t, err)

	second, err := p.Settle(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated settles return the cached result")

	balance, err := p.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, balanceAfterFirst, balance, "no double credit")
}

func TestPaperSettleUnknownOrder(t *testing.T) {
	p, _ := newTestPaper(100)
	_, err := p.Settle(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaperDeterministicUnderSeed(t *testing.T) {
	ctx := context.Background()

	run := func() (float64, float64) {
		p, _ := newTestPaper(100)
		q, err := p.Quote(ctx, "EURUSD", 300)
		require.NoError(t, err)
		price, err := p.Price(ctx, "EURUSD")
		require.NoError(t, err)
		return q, price
	}

	q1, p1 := run()
	q2, p2 := run()
	assert.Equal(t, q1, q2)
	assert.Equal(t, p1, p2)
}

func TestPaperMarketAlwaysOpen(t *testing.T) {
	p, _ := newTestPaper(100)
	open, err := p.MarketOpen(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.True(t, open)
}
