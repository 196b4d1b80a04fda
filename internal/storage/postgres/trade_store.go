package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, order_id, symbol, strategy_id, direction,
	open_time_ms, expiry_time_ms, entry_price, exit_price,
	stake, payout, p_win, state, outcome, profit
`

// Insert adds a terminal trade record. Returns ErrDuplicateKey if
// trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID,
		t.RunID,
		t.OrderID,
		t.Symbol,
		t.StrategyID,
		string(t.Direction),
		t.OpenTimeMs,
		t.ExpiryTimeMs,
		t.EntryPrice,
		t.ExitPrice,
		t.Stake,
		t.Payout,
		t.PWin,
		string(t.State),
		string(t.Outcome),
		t.Profit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trade records in one transaction. Fails the
// entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			t.TradeID,
			t.RunID,
			t.OrderID,
			t.Symbol,
			t.StrategyID,
			string(t.Direction),
			t.OpenTimeMs,
			t.ExpiryTimeMs,
			t.EntryPrice,
			t.ExitPrice,
			t.Stake,
			t.Payout,
			t.PWin,
			string(t.State),
			string(t.Outcome),
			t.Profit,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE trade_id = $1
	`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by open time ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY open_time_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var direction, state, outcome string

	err := row.Scan(
		&t.TradeID,
		&t.RunID,
		&t.OrderID,
		&t.Symbol,
		&t.StrategyID,
		&direction,
		&t.OpenTimeMs,
		&t.ExpiryTimeMs,
		&t.EntryPrice,
		&t.ExitPrice,
		&t.Stake,
		&t.Payout,
		&t.PWin,
		&state,
		&outcome,
		&t.Profit,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	t.State = domain.TradeState(state)
	t.Outcome = domain.Outcome(outcome)
	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
