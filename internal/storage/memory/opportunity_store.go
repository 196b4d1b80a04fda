package memory

import (
	"context"
	"sort"
	"sync"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// OpportunityStore is an in-memory implementation of
// storage.OpportunityStore.
type OpportunityStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Opportunity // keyed by run_id
}

// NewOpportunityStore creates a new in-memory opportunity store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{
		data: make(map[string][]domain.Opportunity),
	}
}

// Compile-time interface check.
var _ storage.OpportunityStore = (*OpportunityStore)(nil)

// InsertBulk adds the audit records of one run.
func (s *OpportunityStore) InsertBulk(_ context.Context, runID string, opportunities []domain.Opportunity) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[runID] = append(s.data[runID], opportunities...)
	return nil
}

// GetByRunID retrieves all audit records of a run, ordered by timestamp
// ASC.
func (s *OpportunityStore) GetByRunID(_ context.Context, runID string) ([]domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Opportunity, len(s.data[runID]))
	copy(result, s.data[runID])

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
