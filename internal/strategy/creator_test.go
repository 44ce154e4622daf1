package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"galaswapbot/internal/config"
	"galaswapbot/internal/domain"
)

func gusdcForGalaTarget() config.TargetConfig {
	return config.TargetConfig{
		GivingToken:             gusdc,
		ReceivingToken:          gala,
		TargetGivingSize:        "150",
		TargetProfitability:     1.1,
		MinProfitability:        1.05,
		MaxProfitability:        1.15,
		MaxPriceMovementPercent: 0.03,
		MaxPriceMovementWindow:  config.Duration{Duration: time.Hour},
	}
}

func creatorConfig(target config.TargetConfig) config.CreatorConfig {
	return config.CreatorConfig{
		Targets: []config.TargetConfig{target},
		CreationLimits: []config.CreationLimitConfig{{
			GivingToken:       target.GivingToken,
			ReceivingToken:    target.ReceivingToken,
			ResetInterval:     config.Duration{Duration: time.Hour},
			GiveLimitPerReset: "1000",
		}},
		Rounding: []config.RoundingConfig{{Token: target.ReceivingToken, DecimalPlaces: 0}},
	}
}

func newTestCreator(cfg config.CreatorConfig, ledger *fakeUseLedger, prices *fakePrices) *Creator {
	return NewCreator(cfg, gala, ledger, prices, testLogger())
}

func creatorState(ownSwaps ...domain.Swap) *State {
	return &State{
		Now:      tickTime,
		Wallet:   "client|self",
		Tokens:   testTokens(0.05, 1.0),
		Balances: balances("5", "1000"),
		OwnSwaps: ownSwaps,
	}
}

func createdTotals(t *testing.T, c domain.SwapToCreate) (given, wanted decimal.Decimal) {
	t.Helper()
	require.Len(t, c.Offered, 1)
	require.Len(t, c.Wanted, 1)
	uses := decimal.RequireFromString(c.Uses)
	given = decimal.RequireFromString(c.Offered[0].Quantity).Mul(uses)
	wanted = decimal.RequireFromString(c.Wanted[0].Quantity).Mul(uses)
	return given, wanted
}

func TestCreatorPublishesTargetOffer(t *testing.T) {
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState())
	require.NoError(t, err)
	require.Empty(t, actions.Terminate)
	require.Len(t, actions.Create, 1)

	created := actions.Create[0]
	require.Equal(t, gusdc, created.Offered[0].TokenInstance.TokenClassKey)
	require.Equal(t, gala, created.Wanted[0].TokenInstance.TokenClassKey)

	// 150 GUSDC at market rate 20 with 1.1 profitability asks for 3300 GALA.
	given, wanted := createdTotals(t, created)
	require.True(t, given.Equal(decimal.RequireFromString("150")), "given %s", given)
	require.True(t, wanted.Equal(decimal.RequireFromString("3300")), "wanted %s", wanted)
}

func TestCreatorRoundsDesiredReceiveUp(t *testing.T) {
	target := gusdcForGalaTarget()
	// 150 * 20 * 1.0899 = 3269.7, which rounds up to 3270 whole GALA.
	target.TargetProfitability = 1.0899
	target.MinProfitability = 1.05
	target.MaxProfitability = 1.15
	cr := newTestCreator(creatorConfig(target), &fakeUseLedger{}, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState())
	require.NoError(t, err)
	require.Len(t, actions.Create, 1)

	_, wanted := createdTotals(t, actions.Create[0])
	require.True(t, wanted.Equal(decimal.RequireFromString("3270")), "wanted %s", wanted)
}

func TestCreatorSkipsSatisfiedTarget(t *testing.T) {
	// A live own offer with the target's exact shape and in-band profitability
	// (3300/150 = 22 against market 20, goodness 1.1) needs no action.
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState(ownSwap("own-1", "150", "3300", "1", "0")))
	require.NoError(t, err)
	require.True(t, actions.Empty())
}

func TestCreatorReplacesExhaustedOffer(t *testing.T) {
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState(ownSwap("own-1", "150", "3300", "1", "1")))
	require.NoError(t, err)
	require.Empty(t, actions.Terminate, "a fully used offer needs no termination")
	require.Len(t, actions.Create, 1)
}

func TestCreatorTerminations(t *testing.T) {
	cases := []struct {
		name   string
		swap   domain.Swap
		reason string
	}{
		{
			// 3070/150 = 20.47 against market 20 is goodness 1.023, below 1.05.
			name:   "drifted below minimum profitability",
			swap:   ownSwap("own-low", "150", "3070", "1", "0"),
			reason: "no longer profitable",
		},
		{
			// 3500/150 = 23.33 against market 20 is goodness 1.167, above 1.15.
			name:   "drifted above maximum profitability",
			swap:   ownSwap("own-high", "150", "3500", "1", "0"),
			reason: "now too profitable",
		},
		{
			name:   "no target of this shape",
			swap:   ownSwap("own-odd", "100", "2200", "1", "0"),
			reason: "no matching target",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

			actions, err := cr.Evaluate(context.Background(), creatorState(tc.swap))
			require.NoError(t, err)
			require.Len(t, actions.Terminate, 1)
			require.Equal(t, tc.swap.SwapRequestID, actions.Terminate[0].SwapRequestID)
			require.Equal(t, tc.reason, actions.Terminate[0].TerminationReason)
		})
	}
}

func TestCreatorSkipsOnInsufficientBalance(t *testing.T) {
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	st := creatorState()
	st.Balances = balances("5", "149")

	actions, err := cr.Evaluate(context.Background(), st)
	require.NoError(t, err)
	require.True(t, actions.Empty())
}

func TestCreatorFeeReserveCountsAgainstGivingBalance(t *testing.T) {
	// Giving the fee token itself: a balance of exactly the target size is one
	// unit short once the fee reserve is withheld.
	target := config.TargetConfig{
		GivingToken:             gala,
		ReceivingToken:          gusdc,
		TargetGivingSize:        "100",
		TargetProfitability:     1.1,
		MinProfitability:        1.05,
		MaxProfitability:        1.15,
		MaxPriceMovementPercent: 0.03,
		MaxPriceMovementWindow:  config.Duration{Duration: time.Hour},
	}
	cfg := creatorConfig(target)
	cfg.Rounding = []config.RoundingConfig{{Token: gusdc, DecimalPlaces: 2}}
	cr := newTestCreator(cfg, &fakeUseLedger{}, &fakePrices{})

	st := creatorState()
	st.Balances = balances("100", "0")
	actions, err := cr.Evaluate(context.Background(), st)
	require.NoError(t, err)
	require.True(t, actions.Empty())

	st.Balances = balances("101", "0")
	actions, err = cr.Evaluate(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, actions.Create, 1)

	// 100 GALA at rate 0.05 with 1.1 profitability asks for 5.50 GUSDC.
	given, wanted := createdTotals(t, actions.Create[0])
	require.True(t, given.Equal(decimal.RequireFromString("100")), "given %s", given)
	require.True(t, wanted.Equal(decimal.RequireFromString("5.5")), "wanted %s", wanted)
}

func TestCreatorHonorsCreationLimit(t *testing.T) {
	// 900 already offered in the window; another 150 would exceed the 1000
	// limit.
	ledger := &fakeUseLedger{offered: decimal.RequireFromString("900")}
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), ledger, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState())
	require.NoError(t, err)
	require.True(t, actions.Empty())
}

func TestCreatorSkipsOnVolatility(t *testing.T) {
	prices := &fakePrices{changes: map[domain.TokenClassKey]float64{gusdc: 0.05}}
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, prices)

	actions, err := cr.Evaluate(context.Background(), creatorState())
	require.NoError(t, err)
	require.True(t, actions.Empty())
}

func TestCreatorReceivingPriceCeiling(t *testing.T) {
	target := gusdcForGalaTarget()
	target.MaxReceivingTokenPriceUSD = 0.04
	cr := newTestCreator(creatorConfig(target), &fakeUseLedger{}, &fakePrices{})

	actions, err := cr.Evaluate(context.Background(), creatorState())
	require.NoError(t, err)
	require.True(t, actions.Empty())
}

func TestCreatorGivingTokenPriceFloor(t *testing.T) {
	// GALA's real price is 0.01 but the target floors it at 0.05, so the
	// market rate is computed as if GALA still traded at the floor.
	target := config.TargetConfig{
		GivingToken:                gala,
		ReceivingToken:             gusdc,
		TargetGivingSize:           "100",
		TargetProfitability:        1.1,
		MinProfitability:           1.05,
		MaxProfitability:           1.15,
		MaxPriceMovementPercent:    0.03,
		MaxPriceMovementWindow:     config.Duration{Duration: time.Hour},
		GivingTokenMinimumValueUSD: 0.05,
	}
	cfg := creatorConfig(target)
	cfg.Rounding = []config.RoundingConfig{{Token: gusdc, DecimalPlaces: 2}}
	cr := newTestCreator(cfg, &fakeUseLedger{}, &fakePrices{})

	st := creatorState()
	st.Tokens = testTokens(0.01, 1.0)
	st.Balances = balances("101", "0")

	actions, err := cr.Evaluate(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, actions.Create, 1)

	_, wanted := createdTotals(t, actions.Create[0])
	require.True(t, wanted.Equal(decimal.RequireFromString("5.5")), "wanted %s", wanted)
}

func TestCreatorMissingTokenMetadataIsFatal(t *testing.T) {
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	st := creatorState()
	st.Tokens = nil

	_, err := cr.Evaluate(context.Background(), st)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNoMarketRate)
}

func TestCreatorMissingDecimalsIsNotFound(t *testing.T) {
	cr := newTestCreator(creatorConfig(gusdcForGalaTarget()), &fakeUseLedger{}, &fakePrices{})

	// Prices exist for the pair but the receiving token has no metadata entry,
	// so its decimal precision cannot be resolved.
	st := creatorState()
	galaPrice, gusdcPrice := 0.05, 1.0
	st.Tokens = []domain.TokenInfo{
		{TokenClassKey: gala, Symbol: "GALA", Decimals: 8, PriceUSD: &galaPrice},
		{TokenClassKey: gusdc, Symbol: "GUSDC", Decimals: 6, PriceUSD: &gusdcPrice},
	}
	_, err := cr.tokenDecimals(&State{Tokens: st.Tokens[:1]}, gusdc)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
