package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binary-options-lab/internal/domain"
)

func TestSliceSource(t *testing.T) {
	ctx := context.Background()
	bars := []domain.Bar{
		{TimestampMs: 1000, Close: 1.1},
		{TimestampMs: 2000, Close: 1.2},
	}
	src := NewSliceSource(bars)

	first, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first.TimestampMs)

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), second.TimestampMs)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrEndOfData)

	assert.NoError(t, src.Close())
}

func TestSliceSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSliceSource([]domain.Bar{{TimestampMs: 1000}})
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrain(t *testing.T) {
	bars := Synthetic(42, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 60_000, 25)

	drained, err := Drain(context.Background(), NewSliceSource(bars))
	require.NoError(t, err)
	assert.Equal(t, bars, drained)
}

func TestDrainEmptySource(t *testing.T) {
	drained, err := Drain(context.Background(), NewSliceSource(nil))
	require.NoError(t, err)
	assert.Empty(t, drained)
}
