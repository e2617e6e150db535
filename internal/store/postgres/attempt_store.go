package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// AttemptStore implements domain.AttemptStore using PostgreSQL.
type AttemptStore struct {
	pool *pgxpool.Pool
}

// NewAttemptStore creates an AttemptStore backed by the given pool.
func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

const attemptSelectCols = `id, borrower, repay_market, seize_market,
	repay_symbol, seize_symbol, state, repaid_amount, profit_usd,
	tx_hash, reason, started_at, completed_at`

// Insert journals one terminal execution result.
func (s *AttemptStore) Insert(ctx context.Context, res domain.ExecutionResult) error {
	var repaid *string
	if res.RepaidAmount != nil {
		v := res.RepaidAmount.String()
		repaid = &v
	}

	const query = `
		INSERT INTO liquidation_attempts (
			id, borrower, repay_market, seize_market,
			repay_symbol, seize_symbol, state, repaid_amount,
			profit_usd, tx_hash, reason, started_at, completed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		res.ID, res.Borrower, res.RepayMarket, res.SeizeMarket,
		res.RepaySymbol, res.SeizeSymbol, string(res.State), repaid,
		res.ProfitUSD, res.TxHash, res.Reason, res.StartedAt, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert attempt %s: %w", res.ID, err)
	}
	return nil
}

// ListSince returns attempts completed at or after the given time, oldest
// first.
func (s *AttemptStore) ListSince(ctx context.Context, since time.Time) ([]domain.ExecutionResult, error) {
	query := `SELECT ` + attemptSelectCols + `
		FROM liquidation_attempts
		WHERE completed_at >= $1
		ORDER BY completed_at ASC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attempts since %s: %w", since, err)
	}
	defer rows.Close()

	return scanAttemptRows(rows)
}

func scanAttemptRows(rows pgx.Rows) ([]domain.ExecutionResult, error) {
	var results []domain.ExecutionResult
	for rows.Next() {
		var (
			res    domain.ExecutionResult
			state  string
			repaid *string
		)
		if err := rows.Scan(
			&res.ID, &res.Borrower, &res.RepayMarket, &res.SeizeMarket,
			&res.RepaySymbol, &res.SeizeSymbol, &state, &repaid,
			&res.ProfitUSD, &res.TxHash, &res.Reason,
			&res.StartedAt, &res.CompletedAt,
		); err != nil {
			return nil, err
		}
		res.State = domain.ExecutionState(state)
		if repaid != nil {
			if v, ok := new(big.Int).SetString(*repaid, 10); ok {
				res.RepaidAmount = v
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Compile-time interface check.
var _ domain.AttemptStore = (*AttemptStore)(nil)
