package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LockedHold is a portion of a balance locked until an expiry. An Expires of
// zero means the hold never expires.
type LockedHold struct {
	Quantity string `json:"quantity"`
	Expires  int64  `json:"expires"`
}

// TokenBalance is a raw on-chain balance as returned by the marketplace:
// total quantity plus any locked holds.
type TokenBalance struct {
	TokenClassKey
	Quantity    string       `json:"quantity"`
	LockedHolds []LockedHold `json:"lockedHolds"`
}

// UsableBalance is a derived per-tick value: raw quantity minus the sum of
// unexpired locked holds. Never persisted.
type UsableBalance struct {
	TokenClassKey
	Quantity decimal.Decimal
}

// UsableBalances derives usable balances from raw balances at the given time.
func UsableBalances(raw []TokenBalance, now time.Time) []UsableBalance {
	out := make([]UsableBalance, 0, len(raw))
	nowMs := now.UnixMilli()
	for _, b := range raw {
		locked := decimal.Zero
		for _, h := range b.LockedHolds {
			if h.Expires > 0 && h.Expires < nowMs {
				continue
			}
			q, err := decimal.NewFromString(h.Quantity)
			if err != nil {
				continue
			}
			locked = locked.Add(q)
		}
		q, err := decimal.NewFromString(b.Quantity)
		if err != nil {
			q = decimal.Zero
		}
		out = append(out, UsableBalance{
			TokenClassKey: b.TokenClassKey,
			Quantity:      q.Sub(locked),
		})
	}
	return out
}

// FindUsableBalance returns the usable quantity for class, or zero when the
// wallet holds none of it.
func FindUsableBalance(balances []UsableBalance, class TokenClassKey) decimal.Decimal {
	for _, b := range balances {
		if b.TokenClassKey == class {
			return b.Quantity
		}
	}
	return decimal.Zero
}
