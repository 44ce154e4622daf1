package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"galaswapbot/internal/config"
	"galaswapbot/internal/domain"
	"galaswapbot/internal/notify"
	"galaswapbot/internal/swapmath"
)

// feeReserve is the one unit of the fee token withheld from every trade
// sizing computation so the remote mutation fee can always be paid.
var feeReserve = decimal.NewFromInt(1)

// Accepter scans the configured pairs for inbound offers worth taking and
// proposes at most one acceptance per tick: the single best candidate across
// all pairs by goodness rating.
type Accepter struct {
	cfg      config.AccepterConfig
	feeToken domain.TokenClassKey
	browser  MarketBrowser
	ledger   domain.AcceptanceLedger
	prices   domain.PriceStore
	reporter notify.StatusReporter
	logger   *slog.Logger
}

// NewAccepter creates the accepting strategy.
func NewAccepter(
	cfg config.AccepterConfig,
	feeToken domain.TokenClassKey,
	browser MarketBrowser,
	ledger domain.AcceptanceLedger,
	prices domain.PriceStore,
	reporter notify.StatusReporter,
	logger *slog.Logger,
) *Accepter {
	return &Accepter{
		cfg:      cfg,
		feeToken: feeToken,
		browser:  browser,
		ledger:   ledger,
		prices:   prices,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "accepter")),
	}
}

func (a *Accepter) Name() string { return "accepter" }

// Evaluate collects acceptable offers across every configured pair and
// proposes the single best one.
func (a *Accepter) Evaluate(ctx context.Context, st *State) (domain.Actions, error) {
	if len(a.cfg.PairLimits) == 0 {
		return domain.Actions{}, nil
	}

	// Without a unit of the fee token no mutation can be paid for. Alert and
	// sit the tick out rather than plan trades that would all fail.
	feeBalance := domain.FindUsableBalance(st.Balances, a.feeToken)
	if feeBalance.LessThan(feeReserve) {
		a.reporter.Alert(ctx, fmt.Sprintf(
			"fee token balance %s is below the 1 %s needed to pay swap fees; not accepting any swaps",
			feeBalance, a.feeToken.Collection,
		))
		return domain.Actions{}, nil
	}

	var candidates []domain.SwapToAccept
	for _, pair := range a.cfg.PairLimits {
		pairCandidates, err := a.evaluatePair(ctx, st, pair)
		if err != nil {
			return domain.Actions{}, err
		}
		candidates = append(candidates, pairCandidates...)
	}

	if len(candidates) == 0 {
		return domain.Actions{}, nil
	}

	// Best goodness first; ties broken by swap id descending so the choice is
	// deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].GoodnessRating != candidates[j].GoodnessRating {
			return candidates[i].GoodnessRating > candidates[j].GoodnessRating
		}
		return candidates[i].SwapRequestID > candidates[j].SwapRequestID
	})

	return domain.Actions{Accept: candidates[:1]}, nil
}

func (a *Accepter) evaluatePair(ctx context.Context, st *State, pair config.PairLimitConfig) ([]domain.SwapToAccept, error) {
	for _, token := range []domain.TokenClassKey{pair.GivingToken, pair.ReceivingToken} {
		moved, err := priceMovedBeyond(ctx, a.prices, token, st.Now, pair.MaxPriceMovementWindow.Duration, pair.MaxPriceMovementPercent)
		if err != nil {
			return nil, fmt.Errorf("accepter: volatility check for %s: %w", token, err)
		}
		if moved {
			a.logger.InfoContext(ctx, "skipping pair, price moved too much",
				slog.String("token", token.String()),
			)
			return nil, nil
		}
	}

	marketRate, err := swapmath.MarketRate(pair.GivingToken, pair.ReceivingToken, st.Tokens, nil)
	if errors.Is(err, domain.ErrNoMarketRate) {
		a.logger.InfoContext(ctx, "skipping pair, no market rate",
			slog.String("giving", pair.GivingToken.String()),
			slog.String("receiving", pair.ReceivingToken.String()),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	quota, err := a.quotaRemaining(ctx, st, pair)
	if err != nil {
		return nil, err
	}

	maxGive := decimal.Min(a.spendableBalance(st, pair.GivingToken), quota)
	if !maxGive.IsPositive() {
		return nil, nil
	}

	// The counterparty offers what the agent receives and wants what the
	// agent gives.
	swaps, err := a.browser.GetAvailableSwaps(ctx, pair.ReceivingToken, pair.GivingToken)
	if err != nil {
		return nil, fmt.Errorf("accepter: list swaps for pair: %w", err)
	}

	var candidates []domain.SwapToAccept
	for _, swap := range swaps {
		candidate, ok := a.evaluateSwap(st, pair, swap, marketRate, maxGive)
		if ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates, nil
}

// quotaRemaining is the pair's give limit minus what was already given within
// the current reset window, clamped at zero.
func (a *Accepter) quotaRemaining(ctx context.Context, st *State, pair config.PairLimitConfig) (decimal.Decimal, error) {
	limit, err := decimal.NewFromString(pair.GiveLimitPerReset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accepter: parse give limit %q: %w", pair.GiveLimitPerReset, err)
	}

	since := st.Now.Add(-pair.ResetInterval.Duration)
	given, err := a.ledger.AmountGivenSince(ctx, pair.GivingToken, pair.ReceivingToken, since, pair.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accepter: query given amount: %w", err)
	}

	quota := limit.Sub(given)
	if quota.IsNegative() {
		return decimal.Zero, nil
	}
	return quota, nil
}

// spendableBalance is the usable balance of a token minus its configured
// minimum-balance floor; for the fee token the 1-unit fee reserve stacks on
// top of the floor.
func (a *Accepter) spendableBalance(st *State, token domain.TokenClassKey) decimal.Decimal {
	balance := domain.FindUsableBalance(st.Balances, token)

	for _, mb := range a.cfg.MinimumBalances {
		if mb.Token == token {
			if floor, err := decimal.NewFromString(mb.MinimumBalance); err == nil {
				balance = balance.Sub(floor)
			}
		}
	}
	if token == a.feeToken {
		balance = balance.Sub(feeReserve)
	}

	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

func (a *Accepter) evaluateSwap(st *State, pair config.PairLimitConfig, swap domain.Swap, marketRate float64, maxGive decimal.Decimal) (domain.SwapToAccept, bool) {
	if swap.IsExhausted(st.Now) || swap.OfferedBy == st.Wallet {
		return domain.SwapToAccept{}, false
	}
	if len(swap.Offered) != 1 || len(swap.Wanted) != 1 {
		return domain.SwapToAccept{}, false
	}

	perUseGive, err := swap.Wanted[0].QuantityDecimal()
	if err != nil || !perUseGive.IsPositive() {
		return domain.SwapToAccept{}, false
	}
	perUseReceive, err := swap.Offered[0].QuantityDecimal()
	if err != nil || !perUseReceive.IsPositive() {
		return domain.SwapToAccept{}, false
	}

	actualRate, err := swapmath.ActualRateForAccept(swap)
	if err != nil {
		return domain.SwapToAccept{}, false
	}
	goodness := swapmath.GoodnessRate(actualRate, marketRate)
	if goodness < pair.Rate {
		return domain.SwapToAccept{}, false
	}

	if pair.MaxReceivingTokenPriceUSD > 0 {
		token := domain.FindToken(st.Tokens, pair.ReceivingToken)
		if token == nil || token.PriceUSD == nil || *token.PriceUSD > pair.MaxReceivingTokenPriceUSD {
			return domain.SwapToAccept{}, false
		}
	}

	uses := maxGive.Div(perUseGive).Floor()
	if remaining := swap.UsesRemaining(); uses.GreaterThan(remaining) {
		uses = remaining
	}
	if !uses.IsPositive() {
		return domain.SwapToAccept{}, false
	}

	if pair.MinReceivingTokenAmount != "" {
		floor, err := decimal.NewFromString(pair.MinReceivingTokenAmount)
		if err == nil && perUseReceive.Mul(uses).LessThan(floor) {
			return domain.SwapToAccept{}, false
		}
	}

	return domain.SwapToAccept{
		Swap:           swap,
		UsesToAccept:   uses.String(),
		GoodnessRating: goodness,
	}, true
}
