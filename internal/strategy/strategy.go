// Package strategy holds the decision logic of the bot: which offers to
// accept, which to create, and which of the agent's own offers to terminate.
// Strategies are pure deciders; the orchestrator executes what they propose.
package strategy

import (
	"context"
	"time"

	"galaswapbot/internal/domain"
)

// State is the per-tick market snapshot handed to every strategy. Strategies
// read it and propose actions; they never mutate it.
type State struct {
	// Now is the tick's timestamp, injected for deterministic tests.
	Now time.Time
	// Wallet is the agent's own address, used to skip self-originated offers.
	Wallet string
	// Tokens is the tick's token universe with decimals and USD prices.
	Tokens []domain.TokenInfo
	// Balances are the usable balances derived for this tick.
	Balances []domain.UsableBalance
	// OwnSwaps are the agent's own standing offers.
	OwnSwaps []domain.Swap
}

// Strategy evaluates one tick's snapshot into proposed actions. The
// orchestrator runs strategies in priority order and stops after the first
// one that proposes anything.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, st *State) (domain.Actions, error)
}

// MarketBrowser is the read-only slice of the marketplace API strategies use.
type MarketBrowser interface {
	GetAvailableSwaps(ctx context.Context, offeredClass, wantedClass domain.TokenClassKey) ([]domain.Swap, error)
}

// priceMovedBeyond reports whether a token's USD price moved by more than
// threshold (a fraction) within the window ending at now. A window with no
// samples counts as no movement.
func priceMovedBeyond(ctx context.Context, prices domain.PriceStore, token domain.TokenClassKey, now time.Time, window time.Duration, threshold float64) (bool, error) {
	change, err := prices.ChangePercent(ctx, token, now.Add(-window), now)
	if err != nil {
		return false, err
	}
	return change != nil && *change > threshold, nil
}
