package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AcceptanceLedger records offers the agent has accepted and answers
// time-windowed consumption queries for the accepter's pair limits.
type AcceptanceLedger interface {
	// AddAcceptance appends one immutable acceptance record.
	AddAcceptance(ctx context.Context, rec AcceptedSwapRecord) error
	// AmountGivenSince sums AmountGiven over records for the pair accepted at
	// or after since whose goodness rating is at least minGoodness.
	AmountGivenSince(ctx context.Context, given, received TokenClassKey, since time.Time, minGoodness float64) (decimal.Decimal, error)
}

// SwapUseLedger records observed uses of the agent's own offers and answers
// time-windowed consumption queries for the creator's creation limits.
type SwapUseLedger interface {
	// AddUse appends one immutable use record.
	AddUse(ctx context.Context, rec CreatedSwapUseRecord) error
	// TotalOfferedSince sums AmountGiven over use records for the pair at or
	// after since.
	TotalOfferedSince(ctx context.Context, offered, wanted TokenClassKey, since time.Time) (decimal.Decimal, error)
}

// OfferCache holds the last seen version of each of the agent's own offers so
// the orchestrator can detect external usesSpent changes between ticks.
type OfferCache interface {
	// Upsert stores the swap keyed by its id and returns the previously stored
	// version, or nil when the swap was not cached before.
	Upsert(ctx context.Context, swap Swap) (*Swap, error)
}

// PriceStore is the append-only USD price history used by the volatility
// guards.
type PriceStore interface {
	// AddPrices appends one sample per token for the given observation time.
	AddPrices(ctx context.Context, samples []PriceSample, at time.Time) error
	// ChangePercent returns (max-min)/min over samples in [since, until] as a
	// fraction, or nil when the window holds no samples.
	ChangePercent(ctx context.Context, token TokenClassKey, since, until time.Time) (*float64, error)
}
