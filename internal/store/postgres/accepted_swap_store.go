package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"galaswapbot/internal/domain"
)

// AcceptedSwapStore implements domain.AcceptanceLedger using PostgreSQL.
type AcceptedSwapStore struct {
	pool *pgxpool.Pool
}

// NewAcceptedSwapStore creates an AcceptedSwapStore backed by the given pool.
func NewAcceptedSwapStore(pool *pgxpool.Pool) *AcceptedSwapStore {
	return &AcceptedSwapStore{pool: pool}
}

// AddAcceptance appends one acceptance record.
func (s *AcceptedSwapStore) AddAcceptance(ctx context.Context, rec domain.AcceptedSwapRecord) error {
	const query = `
		INSERT INTO accepted_swaps (
			swap_request_id, offered_by,
			given_token_class, received_token_class,
			amount_given, amount_received,
			goodness_rating, uses_accepted, accepted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		rec.SwapRequestID, rec.OfferedBy,
		rec.GivenTokenClass.String(), rec.ReceivedTokenClass.String(),
		rec.AmountGiven, rec.AmountReceived,
		rec.GoodnessRating, rec.UsesAccepted, rec.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert accepted swap %s: %w", rec.SwapRequestID, err)
	}
	return nil
}

// AmountGivenSince sums the given amounts for a pair over acceptances at or
// after since with a goodness rating of at least minGoodness. Limits count
// only trades at or above their own rate threshold, so better-rated trades do
// not consume a worse tier's budget.
func (s *AcceptedSwapStore) AmountGivenSince(ctx context.Context, given, received domain.TokenClassKey, since time.Time, minGoodness float64) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount_given), 0)
		FROM accepted_swaps
		WHERE given_token_class = $1
		  AND received_token_class = $2
		  AND accepted_at >= $3
		  AND goodness_rating >= $4`

	var total decimal.Decimal
	err := s.pool.QueryRow(ctx, query,
		given.String(), received.String(), since, minGoodness,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: sum amount given: %w", err)
	}
	return total, nil
}
