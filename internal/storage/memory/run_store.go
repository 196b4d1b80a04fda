package memory

import (
	"context"
	"sort"
	"sync"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	runCopy.Metrics.RejectCounts = copyRejectCounts(r.Metrics.RejectCounts)
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	runCopy.Metrics.RejectCounts = copyRejectCounts(r.Metrics.RejectCounts)
	return &runCopy, nil
}

// List retrieves the most recent runs, newest first.
func (s *RunStore) List(_ context.Context, limit int) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunSummary, 0, len(s.data))
	for _, r := range s.data {
		runCopy := *r
		runCopy.Metrics.RejectCounts = copyRejectCounts(r.Metrics.RejectCounts)
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs == result[j].CreatedAtMs {
			return result[i].RunID > result[j].RunID
		}
		return result[i].CreatedAtMs > result[j].CreatedAtMs
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRejectCounts(m map[domain.RejectReason]int) map[domain.RejectReason]int {
	if m == nil {
		return nil
	}
	out := make(map[domain.RejectReason]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
