package memory

import (
	"context"
	"errors"
	"testing"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

func testRun(id string, createdMs int64) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:       id,
		Symbol:      "EURUSD",
		Timeframe:   "1m",
		Mode:        domain.RunModeBacktest,
		Seed:        42,
		CreatedAtMs: createdMs,
		Metrics: domain.Summary{
			TotalTrades: 5,
			RejectCounts: map[domain.RejectReason]int{
				domain.RejectNoSignal: 10,
			},
		},
	}
}

func TestRunStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore()

	if err := s.Insert(ctx, testRun("run-1", 1000)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RunID != "run-1" || got.Metrics.TotalTrades != 5 {
		t.Errorf("unexpected run: %+v", got)
	}

	if err := s.Insert(ctx, testRun("run-1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := s.Insert(ctx, &domain.RunSummary{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStoreRejectCountsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore()

	run := testRun("run-1", 1000)
	if err := s.Insert(ctx, run); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Mutating the caller's map after insert must not affect the store.
	run.Metrics.RejectCounts[domain.RejectNoSignal] = 999

	got, _ := s.GetByID(ctx, "run-1")
	if got.Metrics.RejectCounts[domain.RejectNoSignal] != 10 {
		t.Error("stored run aliases the caller's reject counts")
	}

	// Mutating a returned map must not affect subsequent reads.
	got.Metrics.RejectCounts[domain.RejectNoSignal] = 777
	again, _ := s.GetByID(ctx, "run-1")
	if again.Metrics.RejectCounts[domain.RejectNoSignal] != 10 {
		t.Error("returned run aliases the stored reject counts")
	}
}

func TestRunStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore()

	for _, run := range []*domain.RunSummary{
		testRun("run-a", 1000),
		testRun("run-c", 3000),
		testRun("run-b", 2000),
	} {
		if err := s.Insert(ctx, run); err != nil {
			t.Fatalf("Insert %s: %v", run.RunID, err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"run-c", "run-b", "run-a"}
	if len(all) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].RunID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].RunID)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 || limited[0].RunID != "run-c" || limited[1].RunID != "run-b" {
		t.Errorf("unexpected limited listing: %+v", limited)
	}
}
