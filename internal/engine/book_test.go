package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binary-options-lab/internal/domain"
)

func TestBookLifecycle(t *testing.T) {
	b := NewBook()
	assert.False(t, b.HasOpen())
	assert.Nil(t, b.Pending())

	trade := &domain.Trade{TradeID: "t1", StrategyID: domain.StrategyTrend}
	ctxVec := []float64{1, 2, 3}
	require.NoError(t, b.Open(trade, ctxVec))

	assert.True(t, b.HasOpen())
	assert.Equal(t, domain.TradeStatePending, trade.State)
	assert.Equal(t, domain.OutcomePending, trade.Outcome)
	assert.Equal(t, ctxVec, b.Context("t1"))

	resolved := b.Resolve(domain.OutcomeWin, 1.2345, 8.5)
	require.NotNil(t, resolved)
	assert.Same(t, trade, resolved)
	assert.Equal(t, domain.TradeStateResolved, resolved.State)
	assert.Equal(t, domain.OutcomeWin, resolved.Outcome)
	assert.Equal(t, 1.2345, resolved.ExitPrice)
	assert.Equal(t, 8.5, resolved.Profit)
	assert.False(t, b.HasOpen())
	assert.Nil(t, b.Context("t1"), "context released at resolution")

	assert.Len(t, b.Trades(), 1)
}

func TestBookRejectsSecondOpen(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(&domain.Trade{TradeID: "t1"}, nil))
	assert.ErrorIs(t, b.Open(&domain.Trade{TradeID: "t2"}, nil), ErrTradeOpen)
	assert.Len(t, b.Trades(), 1)
}

func TestBookAbort(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(&domain.Trade{TradeID: "t1"}, nil))

	aborted := b.Abort()
	require.NotNil(t, aborted)
	assert.Equal(t, domain.TradeStateAborted, aborted.State)
	assert.Equal(t, domain.OutcomePending, aborted.Outcome)
	assert.False(t, b.HasOpen())

	assert.Nil(t, b.Abort(), "abort on a flat book is a no-op")
	assert.Nil(t, b.Resolve(domain.OutcomeWin, 1, 1))
}
