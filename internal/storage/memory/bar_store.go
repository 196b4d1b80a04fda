package memory

import (
	"context"
	"sort"
	"sync"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[barSeriesKey]map[int64]domain.Bar // (symbol, timeframe) -> timestamp -> bar
}

type barSeriesKey struct {
	symbol    string
	timeframe string
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[barSeriesKey]map[int64]domain.Bar),
	}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds bars for a symbol/timeframe. Duplicate timestamps fail
// the entire batch.
func (s *BarStore) InsertBulk(_ context.Context, symbol, timeframe string, bars []domain.Bar) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := barSeriesKey{symbol, timeframe}
	series := s.data[key]
	if series == nil {
		series = make(map[int64]domain.Bar, len(bars))
		s.data[key] = series
	}

	seen := make(map[int64]struct{}, len(bars))
	for _, bar := range bars {
		if _, dup := seen[bar.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := series[bar.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[bar.TimestampMs] = struct{}{}
	}
	for _, bar := range bars {
		series[bar.TimestampMs] = bar
	}
	return nil
}

// GetByRange retrieves bars within [startMs, endMs] inclusive, ordered by
// timestamp ASC. Zero endMs means no upper bound.
func (s *BarStore) GetByRange(_ context.Context, symbol, timeframe string, startMs, endMs int64) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[barSeriesKey{symbol, timeframe}]

	var result []domain.Bar
	for ts, bar := range series {
		if ts < startMs {
			continue
		}
		if endMs > 0 && ts > endMs {
			continue
		}
		result = append(result, bar)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
