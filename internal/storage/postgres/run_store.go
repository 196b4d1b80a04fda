package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL. The metrics
// block is stored as JSONB; runs are queried whole, never by individual
// metric.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("marshal run metrics: %w", err)
	}

	query := `
		INSERT INTO runs (
			run_id, symbol, timeframe, mode, config_hash, seed,
			start_ms, end_ms, bar_count, created_at_ms, metrics
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID,
		r.Symbol,
		r.Timeframe,
		r.Mode,
		r.ConfigHash,
		r.Seed,
		r.StartMs,
		r.EndMs,
		r.BarCount,
		r.CreatedAtMs,
		metrics,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `
		SELECT run_id, symbol, timeframe, mode, config_hash, seed,
		       start_ms, end_ms, bar_count, created_at_ms, metrics
		FROM runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// List retrieves the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	query := `
		SELECT run_id, symbol, timeframe, mode, config_hash, seed,
		       start_ms, end_ms, bar_count, created_at_ms, metrics
		FROM runs
		ORDER BY created_at_ms DESC, run_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a RunSummary.
func scanRun(row pgx.Row) (*domain.RunSummary, error) {
	var r domain.RunSummary
	var metrics []byte

	err := row.Scan(
		&r.RunID,
		&r.Symbol,
		&r.Timeframe,
		&r.Mode,
		&r.ConfigHash,
		&r.Seed,
		&r.StartMs,
		&r.EndMs,
		&r.BarCount,
		&r.CreatedAtMs,
		&metrics,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal run metrics: %w", err)
	}
	return &r, nil
}
