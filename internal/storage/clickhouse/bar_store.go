package clickhouse

import (
	"context"
	"fmt"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds bars for a symbol/timeframe. Duplicate timestamps
// within the batch fail it entirely; duplicates against existing rows
// are collapsed by the ReplacingMergeTree engine.
func (s *BarStore) InsertBulk(ctx context.Context, symbol, timeframe string, bars []domain.Bar) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(bars))
	for _, bar := range bars {
		if _, dup := seen[bar.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		seen[bar.TimestampMs] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, bar := range bars {
		err = batch.Append(
			symbol, timeframe, uint64(bar.TimestampMs),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRange retrieves bars within [startMs, endMs] inclusive, ordered by
// timestamp ASC. Zero endMs means no upper bound.
func (s *BarStore) GetByRange(ctx context.Context, symbol, timeframe string, startMs, endMs int64) ([]domain.Bar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ?
	`
	args := []any{symbol, timeframe, uint64(startMs)}
	if endMs > 0 {
		query += ` AND timestamp_ms <= ?`
		args = append(args, uint64(endMs))
	}
	query += ` ORDER BY timestamp_ms ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars by range: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var ts uint64
		var bar domain.Bar
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bar.TimestampMs = int64(ts)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}
