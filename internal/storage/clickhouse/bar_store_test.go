package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

func testBars(timestamps ...int64) []domain.Bar {
	bars := make([]domain.Bar, len(timestamps))
	for i, ts := range timestamps {
		bars[i] = domain.Bar{
			TimestampMs: ts,
			Open:        1.1000,
			High:        1.1020,
			Low:         1.0990,
			Close:       1.1010,
			Volume:      500,
		}
	}
	return bars
}

func TestBarStore_InsertAndGetByRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	err := store.InsertBulk(ctx, "EURUSD", "1m", testBars(3000, 1000, 2000))
	require.NoError(t, err)

	bars, err := store.GetByRange(ctx, "EURUSD", "1m", 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, int64(1000), bars[0].TimestampMs)
	assert.Equal(t, int64(2000), bars[1].TimestampMs)
	assert.Equal(t, int64(3000), bars[2].TimestampMs)
	assert.InDelta(t, 1.1000, bars[0].Open, 1e-9)
	assert.InDelta(t, 1.1020, bars[0].High, 1e-9)
	assert.InDelta(t, 1.0990, bars[0].Low, 1e-9)
	assert.InDelta(t, 1.1010, bars[0].Close, 1e-9)
	assert.InDelta(t, 500.0, bars[0].Volume, 1e-9)
}

func TestBarStore_RangeBounds(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "EURUSD", "1m", testBars(1000, 2000, 3000, 4000)))

	// Inclusive on both ends.
	bars, err := store.GetByRange(ctx, "EURUSD", "1m", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(2000), bars[0].TimestampMs)
	assert.Equal(t, int64(3000), bars[1].TimestampMs)

	// Zero endMs means no upper bound.
	bars, err = store.GetByRange(ctx, "EURUSD", "1m", 3000, 0)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(3000), bars[0].TimestampMs)
	assert.Equal(t, int64(4000), bars[1].TimestampMs)
}

func TestBarStore_SeriesAreIsolated(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "EURUSD", "1m", testBars(1000)))
	require.NoError(t, store.InsertBulk(ctx, "EURUSD", "5m", testBars(1000)))

	bars, err := store.GetByRange(ctx, "EURUSD", "1m", 0, 0)
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	bars, err = store.GetByRange(ctx, "GBPUSD", "1m", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestBarStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	err := store.InsertBulk(ctx, "EURUSD", "1m", testBars(1000, 1000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBarStore_ReplacingEngineDeduplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "EURUSD", "1m", testBars(1000)))

	// Re-inserting the same timestamp in a later batch is collapsed by the
	// ReplacingMergeTree engine; the FINAL read sees one row.
	replay := testBars(1000)
	replay[0].Close = 1.2000
	require.NoError(t, store.InsertBulk(ctx, "EURUSD", "1m", replay))

	bars, err := store.GetByRange(ctx, "EURUSD", "1m", 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestBarStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	assert.ErrorIs(t, store.InsertBulk(ctx, "", "1m", testBars(1000)), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertBulk(ctx, "EURUSD", "", testBars(1000)), storage.ErrInvalidInput)
	assert.NoError(t, store.InsertBulk(ctx, "EURUSD", "1m", nil), "empty batch is a no-op")
}
