package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapLeg is one side of a swap: a token instance and the per-use quantity,
// kept as a decimal string end to end.
type SwapLeg struct {
	TokenInstance TokenInstanceKey `json:"tokenInstance"`
	Quantity      string           `json:"quantity"`
}

// QuantityDecimal parses the leg quantity. Quantities come from the remote
// service or from the quantizer, both of which emit valid decimal strings, so
// a parse failure is treated as zero by callers that tolerate it.
func (l SwapLeg) QuantityDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(l.Quantity)
}

// Swap is a standing bilateral offer on the marketplace. The agent never
// mutates one directly; it only requests accept/create/terminate through the
// API. Offered and Wanted are singletons in this domain.
type Swap struct {
	SwapRequestID string    `json:"swapRequestId"`
	OfferedBy     string    `json:"offeredBy"`
	Offered       []SwapLeg `json:"offered"`
	Wanted        []SwapLeg `json:"wanted"`
	Uses          string    `json:"uses"`
	UsesSpent     string    `json:"usesSpent"`
	Created       int64     `json:"created"`
	Expires       int64     `json:"expires"`
}

// IsExpired reports whether the swap's expiry has passed. An Expires of zero
// means the swap never expires.
func (s Swap) IsExpired(now time.Time) bool {
	return s.Expires > 0 && s.Expires < now.UnixMilli()
}

// IsFullyUsed reports whether every use has been spent.
func (s Swap) IsFullyUsed() bool {
	return s.Uses == s.UsesSpent
}

// IsExhausted reports whether the swap must be ignored by all strategies:
// either fully used or expired.
func (s Swap) IsExhausted(now time.Time) bool {
	return s.IsFullyUsed() || s.IsExpired(now)
}

// UsesRemaining returns Uses - UsesSpent.
func (s Swap) UsesRemaining() decimal.Decimal {
	uses, err := decimal.NewFromString(s.Uses)
	if err != nil {
		return decimal.Zero
	}
	spent, err := decimal.NewFromString(s.UsesSpent)
	if err != nil {
		return decimal.Zero
	}
	return uses.Sub(spent)
}

// TotalOffered returns uses x per-use offered quantity.
func (s Swap) TotalOffered() decimal.Decimal {
	return totalLeg(s.Offered, s.Uses)
}

// TotalWanted returns uses x per-use wanted quantity.
func (s Swap) TotalWanted() decimal.Decimal {
	return totalLeg(s.Wanted, s.Uses)
}

func totalLeg(legs []SwapLeg, uses string) decimal.Decimal {
	if len(legs) == 0 {
		return decimal.Zero
	}
	q, err := decimal.NewFromString(legs[0].Quantity)
	if err != nil {
		return decimal.Zero
	}
	u, err := decimal.NewFromString(uses)
	if err != nil {
		return decimal.Zero
	}
	return q.Mul(u)
}

// PriceSample is one USD price observation for a token class. Appended once
// per tick per known-priced token.
type PriceSample struct {
	TokenClass TokenClassKey
	PriceUSD   float64
}

// AcceptedSwapRecord is the ledger entry written after the agent successfully
// accepts an offer. Immutable once written; used only for time-windowed limit
// accounting.
type AcceptedSwapRecord struct {
	Swap
	GivenTokenClass    TokenClassKey
	ReceivedTokenClass TokenClassKey
	AmountGiven        decimal.Decimal
	AmountReceived     decimal.Decimal
	UsesAccepted       string
	GoodnessRating     float64
	AcceptedAt         time.Time
}

// CreatedSwapUseRecord is the ledger entry written when one of the agent's own
// offers is observed to have been used by a counterparty (usesSpent grew).
type CreatedSwapUseRecord struct {
	Swap
	UsesSpentThisUse string
	AmountGiven      decimal.Decimal
	AmountReceived   decimal.Decimal
	UsedAt           time.Time
}
