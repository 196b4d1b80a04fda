// Package memory provides in-memory implementations of the storage
// interfaces, used by tests and by runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a terminal trade record. Returns ErrDuplicateKey if
// trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(t)
}

// InsertBulk adds multiple trade records. Fails the entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating.
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[t.TradeID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.TradeID] = struct{}{}
	}
	for _, t := range trades {
		if err := s.insertLocked(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *TradeStore) insertLocked(t *domain.Trade) error {
	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	// Store a copy to prevent external mutation
	tradeCopy := *t
	s.data[t.TradeID] = &tradeCopy
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tradeCopy := *t
	return &tradeCopy, nil
}

// GetByRunID retrieves all trades of a run, ordered by open time ASC.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.RunID == runID {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OpenTimeMs == result[j].OpenTimeMs {
			return result[i].TradeID < result[j].TradeID
		}
		return result[i].OpenTimeMs < result[j].OpenTimeMs
	})

	return result, nil
}
