package clickhouse

import (
	"context"
	"fmt"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// OpportunityStore implements storage.OpportunityStore using ClickHouse.
// The audit log is high-volume append-only data, a natural fit for the
// columnar engine.
type OpportunityStore struct {
	conn *Conn
}

// NewOpportunityStore creates a new OpportunityStore.
func NewOpportunityStore(conn *Conn) *OpportunityStore {
	return &OpportunityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OpportunityStore = (*OpportunityStore)(nil)

// InsertBulk adds the audit records of one run.
func (s *OpportunityStore) InsertBulk(ctx context.Context, runID string, opportunities []domain.Opportunity) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(opportunities) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO opportunities (
			run_id, timestamp_ms, strategy_id, direction, p_win, payout,
			accepted, reason, equity
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range opportunities {
		err = batch.Append(
			runID, uint64(o.TimestampMs), o.StrategyID, string(o.Direction),
			o.PWin, o.Payout, o.Accepted, string(o.Reason), o.Equity,
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

// GetByRunID retrieves all audit records of a run, ordered by timestamp
// ASC.
func (s *OpportunityStore) GetByRunID(ctx context.Context, runID string) ([]domain.Opportunity, error) {
	query := `
		SELECT timestamp_ms, strategy_id, direction, p_win, payout,
		       accepted, reason, equity
		FROM opportunities
		WHERE run_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query opportunities by run id: %w", err)
	}
	defer rows.Close()

	var result []domain.Opportunity
	for rows.Next() {
		var ts uint64
		var direction, reason string
		var o domain.Opportunity
		err := rows.Scan(&ts, &o.StrategyID, &direction, &o.PWin, &o.Payout,
			&o.Accepted, &reason, &o.Equity)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}
		o.TimestampMs = int64(ts)
		o.Direction = domain.Direction(direction)
		o.Reason = domain.RejectReason(reason)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunity rows: %w", err)
	}
	return result, nil
}
