// Package storage defines the persistence interfaces. Trade and run
// records live in Postgres, the bar history and the opportunity audit
// log in ClickHouse; in-memory implementations back tests and runs
// without a database.
package storage

import (
	"context"

	"binary-options-lab/internal/domain"
)

// TradeStore provides access to trade record storage.
type TradeStore interface {
	// Insert adds a terminal trade record. Returns ErrDuplicateKey if
	// trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trade records. Fails the entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades of a run, ordered by open time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// RunStore provides access to run summary storage.
type RunStore interface {
	// Insert adds a completed run. Returns ErrDuplicateKey if run_id
	// exists.
	Insert(ctx context.Context, r *domain.RunSummary) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// List retrieves the most recent runs, newest first. limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]*domain.RunSummary, error)
}

// BarStore provides access to the bar history.
type BarStore interface {
	// InsertBulk adds bars for a symbol/timeframe. Duplicate timestamps
	// within the batch fail it entirely.
	InsertBulk(ctx context.Context, symbol, timeframe string, bars []domain.Bar) error

	// GetByRange retrieves bars within [startMs, endMs] inclusive,
	// ordered by timestamp ASC. Zero endMs means no upper bound.
	GetByRange(ctx context.Context, symbol, timeframe string, startMs, endMs int64) ([]domain.Bar, error)
}

// OpportunityStore provides access to the opportunity audit log.
type OpportunityStore interface {
	// InsertBulk adds the audit records of one run.
	InsertBulk(ctx context.Context, runID string, opportunities []domain.Opportunity) error

	// GetByRunID retrieves all audit records of a run, ordered by
	// timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.Opportunity, error)
}
