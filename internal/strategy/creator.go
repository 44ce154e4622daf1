package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"galaswapbot/internal/config"
	"galaswapbot/internal/domain"
	"galaswapbot/internal/swapmath"
)

// Creator keeps the configured standing offers alive: it terminates own
// offers that drifted outside their target's profitability window or match no
// target at all, and publishes at most one new offer per tick for the first
// unsatisfied target.
type Creator struct {
	cfg      config.CreatorConfig
	feeToken domain.TokenClassKey
	ledger   domain.SwapUseLedger
	prices   domain.PriceStore
	logger   *slog.Logger
}

// NewCreator creates the offer-creating strategy.
func NewCreator(
	cfg config.CreatorConfig,
	feeToken domain.TokenClassKey,
	ledger domain.SwapUseLedger,
	prices domain.PriceStore,
	logger *slog.Logger,
) *Creator {
	return &Creator{
		cfg:      cfg,
		feeToken: feeToken,
		ledger:   ledger,
		prices:   prices,
		logger:   logger.With(slog.String("component", "creator")),
	}
}

func (c *Creator) Name() string { return "creator" }

// Evaluate proposes terminations for out-of-band own offers, then at most one
// creation for the first target not already covered by a live offer.
func (c *Creator) Evaluate(ctx context.Context, st *State) (domain.Actions, error) {
	terminations, err := c.swapsToTerminate(st)
	if err != nil {
		return domain.Actions{}, err
	}

	creation, err := c.swapToCreate(ctx, st)
	if err != nil {
		return domain.Actions{}, err
	}

	actions := domain.Actions{Terminate: terminations}
	if creation != nil {
		actions.Create = []domain.SwapToCreate{*creation}
	}
	return actions, nil
}

// matchesTarget reports whether an own offer has the exact shape of a target:
// same pair and total giving size.
func matchesTarget(swap domain.Swap, target config.TargetConfig) bool {
	if len(swap.Offered) != 1 || len(swap.Wanted) != 1 {
		return false
	}
	if swap.Offered[0].TokenInstance.TokenClassKey != target.GivingToken ||
		swap.Wanted[0].TokenInstance.TokenClassKey != target.ReceivingToken {
		return false
	}
	size, err := decimal.NewFromString(target.TargetGivingSize)
	if err != nil {
		return false
	}
	return swap.TotalOffered().Equal(size)
}

func (c *Creator) swapsToTerminate(st *State) ([]domain.SwapToTerminate, error) {
	var out []domain.SwapToTerminate

	for _, swap := range st.OwnSwaps {
		if swap.IsExhausted(st.Now) {
			continue
		}

		var target *config.TargetConfig
		for i := range c.cfg.Targets {
			if matchesTarget(swap, c.cfg.Targets[i]) {
				target = &c.cfg.Targets[i]
				break
			}
		}
		if target == nil {
			out = append(out, domain.SwapToTerminate{
				Swap:              swap,
				TerminationReason: "no matching target",
			})
			continue
		}

		actualRate, err := swapmath.ActualRateForCreated(swap)
		if err != nil {
			return nil, fmt.Errorf("creator: rate of own swap %s: %w", swap.SwapRequestID, err)
		}
		marketRate, err := c.targetMarketRate(st, *target)
		if err != nil {
			return nil, err
		}

		switch goodness := swapmath.GoodnessRate(actualRate, marketRate); {
		case goodness < target.MinProfitability:
			out = append(out, domain.SwapToTerminate{
				Swap:              swap,
				TerminationReason: "no longer profitable",
			})
		case goodness > target.MaxProfitability:
			out = append(out, domain.SwapToTerminate{
				Swap:              swap,
				TerminationReason: "now too profitable",
			})
		}
	}

	return out, nil
}

// targetMarketRate computes the market rate for a target's pair with the
// target's giving-side price floor applied. A target whose price cannot be
// resolved is a configuration error, so any failure here is fatal.
func (c *Creator) targetMarketRate(st *State, target config.TargetConfig) (float64, error) {
	var floors map[domain.TokenClassKey]float64
	if target.GivingTokenMinimumValueUSD > 0 {
		floors = map[domain.TokenClassKey]float64{
			target.GivingToken: target.GivingTokenMinimumValueUSD,
		}
	}
	rate, err := swapmath.MarketRate(target.GivingToken, target.ReceivingToken, st.Tokens, floors)
	if err != nil {
		return 0, fmt.Errorf("creator: market rate for target %s->%s: %w",
			target.GivingToken, target.ReceivingToken, err)
	}
	return rate, nil
}

func (c *Creator) swapToCreate(ctx context.Context, st *State) (*domain.SwapToCreate, error) {
	for _, target := range c.cfg.Targets {
		created, err := c.evaluateTarget(ctx, st, target)
		if err != nil {
			return nil, err
		}
		if created != nil {
			return created, nil
		}
	}
	return nil, nil
}

func (c *Creator) evaluateTarget(ctx context.Context, st *State, target config.TargetConfig) (*domain.SwapToCreate, error) {
	targetSize, err := decimal.NewFromString(target.TargetGivingSize)
	if err != nil {
		return nil, fmt.Errorf("creator: parse target giving size %q: %w", target.TargetGivingSize, err)
	}

	// Already satisfied: a live offer of this exact shape exists.
	for _, swap := range st.OwnSwaps {
		if !swap.IsExhausted(st.Now) && matchesTarget(swap, target) {
			return nil, nil
		}
	}

	balance := domain.FindUsableBalance(st.Balances, target.GivingToken)
	if target.GivingToken == c.feeToken {
		balance = balance.Sub(feeReserve)
	}
	if balance.LessThan(targetSize) {
		c.logger.InfoContext(ctx, "skipping target, insufficient balance",
			slog.String("giving", target.GivingToken.String()),
			slog.String("balance", balance.String()),
			slog.String("target_size", targetSize.String()),
		)
		return nil, nil
	}

	if target.MaxReceivingTokenPriceUSD > 0 {
		token := domain.FindToken(st.Tokens, target.ReceivingToken)
		if token == nil || token.PriceUSD == nil || *token.PriceUSD > target.MaxReceivingTokenPriceUSD {
			return nil, nil
		}
	}

	withinLimits, err := c.withinCreationLimits(ctx, st, target, targetSize)
	if err != nil {
		return nil, err
	}
	if !withinLimits {
		return nil, nil
	}

	for _, token := range []domain.TokenClassKey{target.GivingToken, target.ReceivingToken} {
		moved, err := priceMovedBeyond(ctx, c.prices, token, st.Now, target.MaxPriceMovementWindow.Duration, target.MaxPriceMovementPercent)
		if err != nil {
			return nil, fmt.Errorf("creator: volatility check for %s: %w", token, err)
		}
		if moved {
			c.logger.InfoContext(ctx, "skipping target, price moved too much",
				slog.String("token", token.String()),
			)
			return nil, nil
		}
	}

	marketRate, err := c.targetMarketRate(st, target)
	if err != nil {
		return nil, err
	}

	// Desired receiving amount, rounded up: asking for slightly more than
	// fair value is the deliberate bias.
	desiredReceive := targetSize.
		Mul(decimal.NewFromFloat(marketRate)).
		Mul(decimal.NewFromFloat(target.TargetProfitability)).
		RoundCeil(c.roundingPlaces(target.ReceivingToken))

	givingDecimals, err := c.tokenDecimals(st, target.GivingToken)
	if err != nil {
		return nil, err
	}
	receivingDecimals, err := c.tokenDecimals(st, target.ReceivingToken)
	if err != nil {
		return nil, err
	}

	terms, err := swapmath.SwapQuantitiesAndUses(givingDecimals, receivingDecimals, targetSize, desiredReceive)
	if err != nil {
		return nil, fmt.Errorf("creator: quantize target %s->%s: %w", target.GivingToken, target.ReceivingToken, err)
	}

	return &domain.SwapToCreate{
		Offered: []domain.SwapLeg{{
			TokenInstance: domain.InstanceOf(target.GivingToken),
			Quantity:      terms.GivingQuantity.String(),
		}},
		Wanted: []domain.SwapLeg{{
			TokenInstance: domain.InstanceOf(target.ReceivingToken),
			Quantity:      terms.ReceivingQuantity.String(),
		}},
		Uses: terms.Uses.String(),
	}, nil
}

// withinCreationLimits checks every creation limit matching the target's
// pair: already-offered amounts within the window plus this target's size
// must not exceed any limit.
func (c *Creator) withinCreationLimits(ctx context.Context, st *State, target config.TargetConfig, targetSize decimal.Decimal) (bool, error) {
	for _, cl := range c.cfg.CreationLimits {
		if cl.GivingToken != target.GivingToken || cl.ReceivingToken != target.ReceivingToken {
			continue
		}
		limit, err := decimal.NewFromString(cl.GiveLimitPerReset)
		if err != nil {
			return false, fmt.Errorf("creator: parse creation limit %q: %w", cl.GiveLimitPerReset, err)
		}
		since := st.Now.Add(-cl.ResetInterval.Duration)
		offered, err := c.ledger.TotalOfferedSince(ctx, cl.GivingToken, cl.ReceivingToken, since)
		if err != nil {
			return false, fmt.Errorf("creator: query offered amount: %w", err)
		}
		if offered.Add(targetSize).GreaterThan(limit) {
			c.logger.InfoContext(ctx, "skipping target, creation limit reached",
				slog.String("giving", cl.GivingToken.String()),
				slog.String("receiving", cl.ReceivingToken.String()),
				slog.String("offered_in_window", offered.String()),
				slog.String("limit", limit.String()),
			)
			return false, nil
		}
	}
	return true, nil
}

// roundingPlaces returns the configured ceiling precision for a receiving
// token. Validation guarantees exactly one entry per configured target.
func (c *Creator) roundingPlaces(token domain.TokenClassKey) int32 {
	for _, r := range c.cfg.Rounding {
		if r.Token == token {
			return int32(r.DecimalPlaces)
		}
	}
	return 0
}

// tokenDecimals resolves a token's declared decimal precision. Missing
// metadata for a configured target is a configuration error.
func (c *Creator) tokenDecimals(st *State, class domain.TokenClassKey) (int, error) {
	token := domain.FindToken(st.Tokens, class)
	if token == nil {
		return 0, fmt.Errorf("creator: %w: no token metadata for configured target token %s",
			domain.ErrNotFound, class)
	}
	return token.Decimals, nil
}
