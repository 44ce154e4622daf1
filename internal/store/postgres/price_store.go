package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"galaswapbot/internal/domain"
)

// PriceStore implements domain.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// AddPrices appends one sample per token for the given observation time,
// batched into a single round trip.
func (s *PriceStore) AddPrices(ctx context.Context, samples []domain.PriceSample, at time.Time) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO price_history (token_class, price_usd, observed_at)
		VALUES ($1, $2, $3)`
	for _, sample := range samples {
		batch.Queue(query, sample.TokenClass.String(), sample.PriceUSD, at)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range samples {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert price sample %d: %w", i, err)
		}
	}
	return nil
}

// ChangePercent returns (max-min)/min over samples in [since, until] as a
// fraction, or nil when the window holds no samples. A window whose minimum
// is zero also yields nil: the ratio is undefined and the caller treats it as
// unknown volatility.
func (s *PriceStore) ChangePercent(ctx context.Context, token domain.TokenClassKey, since, until time.Time) (*float64, error) {
	const query = `
		SELECT MIN(price_usd), MAX(price_usd)
		FROM price_history
		WHERE token_class = $1
		  AND observed_at >= $2
		  AND observed_at <= $3`

	var minPrice, maxPrice *float64
	err := s.pool.QueryRow(ctx, query, token.String(), since, until).Scan(&minPrice, &maxPrice)
	if err != nil {
		return nil, fmt.Errorf("postgres: price change window: %w", err)
	}
	if minPrice == nil || maxPrice == nil || *minPrice == 0 {
		return nil, nil
	}

	change := (*maxPrice - *minPrice) / *minPrice
	return &change, nil
}
