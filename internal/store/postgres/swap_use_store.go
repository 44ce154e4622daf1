package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"galaswapbot/internal/domain"
)

// SwapUseStore implements domain.SwapUseLedger using PostgreSQL.
type SwapUseStore struct {
	pool *pgxpool.Pool
}

// NewSwapUseStore creates a SwapUseStore backed by the given pool.
func NewSwapUseStore(pool *pgxpool.Pool) *SwapUseStore {
	return &SwapUseStore{pool: pool}
}

// AddUse appends one use record for an offer the agent created.
func (s *SwapUseStore) AddUse(ctx context.Context, rec domain.CreatedSwapUseRecord) error {
	if len(rec.Offered) == 0 || len(rec.Wanted) == 0 {
		return fmt.Errorf("postgres: use record for swap %s has no legs", rec.SwapRequestID)
	}

	const query = `
		INSERT INTO created_swap_uses (
			swap_request_id,
			offered_token_class, wanted_token_class,
			uses_spent_this_use, amount_given, amount_received, used_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		rec.SwapRequestID,
		rec.Offered[0].TokenInstance.TokenClassKey.String(),
		rec.Wanted[0].TokenInstance.TokenClassKey.String(),
		rec.UsesSpentThisUse, rec.AmountGiven, rec.AmountReceived, rec.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert swap use %s: %w", rec.SwapRequestID, err)
	}
	return nil
}

// TotalOfferedSince sums the given amounts over use records for a pair at or
// after since.
func (s *SwapUseStore) TotalOfferedSince(ctx context.Context, offered, wanted domain.TokenClassKey, since time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount_given), 0)
		FROM created_swap_uses
		WHERE offered_token_class = $1
		  AND wanted_token_class = $2
		  AND used_at >= $3`

	var total decimal.Decimal
	err := s.pool.QueryRow(ctx, query,
		offered.String(), wanted.String(), since,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: sum offered amount: %w", err)
	}
	return total, nil
}
