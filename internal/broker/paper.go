package broker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"binary-options-lab/internal/domain"
)

// Paper is an in-process venue for paper trading: a random-walk price, a
// drifting payout quote and immediate settlement at expiry. Deterministic
// under a fixed seed and clock. Safe for concurrent use.
type Paper struct {
	mu sync.Mutex

	balance    float64
	basePayout float64
	price      float64
	rng        *rand.Rand
	now        func() time.Time

	orders map[string]*paperOrder
}

type paperOrder struct {
	order  Order
	result *Result // nil until settled
}

var _ Venue = (*Paper)(nil)

// NewPaper creates a paper venue. now is injectable for tests; nil means
// time.Now.
func NewPaper(initialBalance, basePayout float64, seed int64, now func() time.Time) *Paper {
	if now == nil {
		now = time.Now
	}
	return &Paper{
		balance:    initialBalance,
		basePayout: basePayout,
		price:      1.1000,
		rng:        rand.New(rand.NewSource(seed)),
		now:        now,
		orders:     make(map[string]*paperOrder),
	}
}

// Balance returns the current account balance.
func (p *Paper) Balance(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// Quote returns the base payout with a uniform drift, clamped to
// [0.70, 0.95].
func (p *Paper) Quote(ctx context.Context, symbol string, expirySeconds int) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote(), nil
}

// Price advances the random walk by one tick and returns it.
func (p *Paper) Price(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tick(), nil
}

// Place opens a position at the current walk price.
func (p *Paper) Place(ctx context.Context, symbol string, direction domain.Direction, stake float64, expirySeconds int) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stake > p.balance {
		return nil, ErrInsufficientBalance
	}

	now := p.now()
	order := Order{
		OrderID:    uuid.NewString(),
		Symbol:     symbol,
		Direction:  direction,
		Stake:      stake,
		Payout:     p.quote(),
		EntryPrice: p.tick(),
		PlacedAtMs: now.UnixMilli(),
		ExpiryMs:   now.Add(time.Duration(expirySeconds) * time.Second).UnixMilli(),
	}

	p.balance -= stake
	p.orders[order.OrderID] = &paperOrder{order: order}

	return &order, nil
}

// Settle settles the order if its expiry has passed. A tie refunds the
// stake.
func (p *Paper) Settle(ctx context.Context, orderID string) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if po.result != nil {
		r := *po.result
		return &r, nil
	}
	if p.now().UnixMilli() < po.order.ExpiryMs {
		return &Result{Settled: false, Outcome: domain.OutcomePending}, nil
	}

	exit := p.tick()
	res := Result{Settled: true, ExitPrice: exit}

	won := (po.order.Direction == domain.DirectionCall && exit > po.order.EntryPrice) ||
		(po.order.Direction == domain.DirectionPut && exit < po.order.EntryPrice)
	switch {
	case exit == po.order.EntryPrice:
		res.Outcome = domain.OutcomeTie
		res.Profit = 0
		p.balance += po.order.Stake
	case won:
		res.Outcome = domain.OutcomeWin
		res.Profit = po.order.Stake * po.order.Payout
		p.balance += po.order.Stake + res.Profit
	default:
		res.Outcome = domain.OutcomeLoss
		res.Profit = -po.order.Stake
	}

	po.result = &res
	r := res
	return &r, nil
}

// MarketOpen always reports open for the paper venue.
func (p *Paper) MarketOpen(ctx context.Context, symbol string) (bool, error) {
	return true, nil
}

// quote draws basePayout +/- 0.05 uniform, clamped to [0.70, 0.95].
// Caller holds the lock.
func (p *Paper) quote() float64 {
	q := p.basePayout + (p.rng.Float64()*0.10 - 0.05)
	if q < 0.70 {
		q = 0.70
	}
	if q > 0.95 {
		q = 0.95
	}
	return q
}

// tick moves the walk price by a uniform step of up to 10 pips. Caller
// holds the lock.
func (p *Paper) tick() float64 {
	p.price += p.rng.Float64()*0.0020 - 0.0010
	return p.price
}
