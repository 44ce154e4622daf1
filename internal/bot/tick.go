// Package bot contains the tick orchestrator: the state machine that fetches
// remote state, reconciles it against local history, runs the strategies in
// priority order, and executes whatever they propose.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"galaswapbot/internal/config"
	"galaswapbot/internal/domain"
	"galaswapbot/internal/galaswap"
	"galaswapbot/internal/notify"
	"galaswapbot/internal/strategy"
)

// API is the marketplace client surface the orchestrator needs.
type API interface {
	GetTokens(ctx context.Context, searchPrefix string) ([]domain.TokenInfo, error)
	GetRawBalances(ctx context.Context, wallet string) ([]domain.TokenBalance, error)
	GetSwapsByWallet(ctx context.Context, wallet string) ([]domain.Swap, error)
	AcceptSwap(ctx context.Context, swapRequestID, uses string) (galaswap.AcceptStatus, error)
	CreateSwap(ctx context.Context, newSwap domain.SwapToCreate) (domain.Swap, error)
	TerminateSwap(ctx context.Context, swapRequestID string) error
}

// Ticker runs one full trading cycle at a time. A tick either completes
// cleanly or returns an error the run loop treats as fatal.
type Ticker struct {
	wallet       string
	botCfg       config.BotConfig
	tokensCfg    config.TokensConfig
	api          API
	strategies   []strategy.Strategy
	offers       domain.OfferCache
	acceptLedger domain.AcceptanceLedger
	useLedger    domain.SwapUseLedger
	prices       domain.PriceStore
	reporter     notify.StatusReporter
	logger       *slog.Logger

	// now is injectable so tests can advance time deterministically.
	now func() time.Time
}

// NewTicker wires the orchestrator. Strategies run in the order given; the
// first one to propose any action wins the tick.
func NewTicker(
	wallet string,
	botCfg config.BotConfig,
	tokensCfg config.TokensConfig,
	api API,
	strategies []strategy.Strategy,
	offers domain.OfferCache,
	acceptLedger domain.AcceptanceLedger,
	useLedger domain.SwapUseLedger,
	prices domain.PriceStore,
	reporter notify.StatusReporter,
	logger *slog.Logger,
) *Ticker {
	return &Ticker{
		wallet:       wallet,
		botCfg:       botCfg,
		tokensCfg:    tokensCfg,
		api:          api,
		strategies:   strategies,
		offers:       offers,
		acceptLedger: acceptLedger,
		useLedger:    useLedger,
		prices:       prices,
		reporter:     reporter,
		logger:       logger.With(slog.String("component", "ticker")),
		now:          time.Now,
	}
}

// SetNow overrides the tick clock. Test hook.
func (t *Ticker) SetNow(now func() time.Time) {
	t.now = now
}

// Tick runs one full cycle: fetch, validate prices, record prices, reconcile
// own offers, then strategize and execute.
func (t *Ticker) Tick(ctx context.Context) error {
	now := t.now()

	tokens, balances, ownSwaps, err := t.fetch(ctx, now)
	if err != nil {
		return err
	}

	if err := t.validatePrices(tokens); err != nil {
		return err
	}

	if err := t.recordPrices(ctx, tokens, now); err != nil {
		return err
	}

	if err := t.reconcileOwnSwaps(ctx, tokens, ownSwaps, now); err != nil {
		return err
	}

	st := &strategy.State{
		Now:      now,
		Wallet:   t.wallet,
		Tokens:   tokens,
		Balances: balances,
		OwnSwaps: ownSwaps,
	}

	for _, s := range t.strategies {
		actions, err := s.Evaluate(ctx, st)
		if err != nil {
			return fmt.Errorf("bot: strategy %s: %w", s.Name(), err)
		}
		if actions.Empty() {
			continue
		}
		if err := t.execute(ctx, s.Name(), actions, tokens, now); err != nil {
			return err
		}
		// First strategy with an action wins the tick.
		break
	}

	return nil
}

// fetch pulls the tick's remote state. The three reads are independent, so
// they run concurrently.
func (t *Ticker) fetch(ctx context.Context, now time.Time) ([]domain.TokenInfo, []domain.UsableBalance, []domain.Swap, error) {
	var (
		tokens   []domain.TokenInfo
		balances []domain.UsableBalance
		ownSwaps []domain.Swap
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		tokens, err = t.fetchTokens(gctx)
		return err
	})

	g.Go(func() error {
		raw, err := t.api.GetRawBalances(gctx, t.wallet)
		if err != nil {
			return err
		}
		balances = domain.UsableBalances(raw, now)
		return nil
	})

	g.Go(func() error {
		swaps, err := t.api.GetSwapsByWallet(gctx, t.wallet)
		if err != nil {
			return err
		}
		ownSwaps = t.filterOwnSwaps(swaps)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, fmt.Errorf("bot: fetch: %w", err)
	}
	return tokens, balances, ownSwaps, nil
}

// fetchTokens merges the default trending token list with the configured
// project-token prefix queries, deduplicated by token class with later
// fetches winning.
func (t *Ticker) fetchTokens(ctx context.Context) ([]domain.TokenInfo, error) {
	prefixes := append([]string{""}, t.tokensCfg.ProjectTokenPrefixes...)
	pages := make([][]domain.TokenInfo, len(prefixes))

	g, gctx := errgroup.WithContext(ctx)
	for i, prefix := range prefixes {
		i, prefix := i, prefix
		g.Go(func() error {
			page, err := t.api.GetTokens(gctx, prefix)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.TokenInfo
	seen := map[domain.TokenClassKey]int{}
	for _, page := range pages {
		for _, token := range page {
			if idx, ok := seen[token.TokenClassKey]; ok {
				merged[idx] = token
				continue
			}
			seen[token.TokenClassKey] = len(merged)
			merged = append(merged, token)
		}
	}
	return merged, nil
}

// filterOwnSwaps drops offers created before the configured cutoff. Purely an
// optimization to bound reconciliation work on old wallets.
func (t *Ticker) filterOwnSwaps(swaps []domain.Swap) []domain.Swap {
	cutoff := t.botCfg.IgnoreSwapsCreatedBefore
	if cutoff <= 0 {
		return swaps
	}
	kept := make([]domain.Swap, 0, len(swaps))
	for _, s := range swaps {
		if s.Created >= cutoff {
			kept = append(kept, s)
		}
	}
	return kept
}

// validatePrices is the circuit breaker: a configured token trading outside
// its sane price band, or with no observable price at all, fails the whole
// tick before anything is recorded. A banded token losing its price feed is
// bad market data, not an ignorable gap.
func (t *Ticker) validatePrices(tokens []domain.TokenInfo) error {
	for _, band := range t.tokensCfg.PriceLimits {
		token := domain.FindToken(tokens, band.Token)
		if token == nil || token.PriceUSD == nil {
			return fmt.Errorf("%w: no current USD price for price-banded token %s",
				domain.ErrNotFound, band.Token)
		}
		if *token.PriceUSD < band.MinPriceUSD {
			return fmt.Errorf("%w: %s at %v USD is below the configured minimum %v",
				domain.ErrPriceOutOfBand, band.Token, *token.PriceUSD, band.MinPriceUSD)
		}
		if *token.PriceUSD > band.MaxPriceUSD {
			return fmt.Errorf("%w: %s at %v USD is above the configured maximum %v",
				domain.ErrPriceOutOfBand, band.Token, *token.PriceUSD, band.MaxPriceUSD)
		}
	}
	return nil
}

func (t *Ticker) recordPrices(ctx context.Context, tokens []domain.TokenInfo, now time.Time) error {
	samples := make([]domain.PriceSample, 0, len(tokens))
	for _, token := range tokens {
		if token.PriceUSD == nil {
			continue
		}
		samples = append(samples, domain.PriceSample{
			TokenClass: token.TokenClassKey,
			PriceUSD:   *token.PriceUSD,
		})
	}
	if err := t.prices.AddPrices(ctx, samples, now); err != nil {
		return fmt.Errorf("bot: record prices: %w", err)
	}
	return nil
}

// reconcileOwnSwaps upserts every own offer into the cache and, when a
// counterparty spent uses since the last tick, records exactly one use entry
// for the delta and reports it.
func (t *Ticker) reconcileOwnSwaps(ctx context.Context, tokens []domain.TokenInfo, ownSwaps []domain.Swap, now time.Time) error {
	for _, swap := range ownSwaps {
		previous, err := t.offers.Upsert(ctx, swap)
		if err != nil {
			return fmt.Errorf("bot: reconcile swap %s: %w", swap.SwapRequestID, err)
		}
		if previous == nil || previous.UsesSpent == swap.UsesSpent {
			continue
		}

		spentBefore, err := decimal.NewFromString(previous.UsesSpent)
		if err != nil {
			return fmt.Errorf("bot: cached usesSpent %q of swap %s: %w", previous.UsesSpent, swap.SwapRequestID, err)
		}
		spentAfter, err := decimal.NewFromString(swap.UsesSpent)
		if err != nil {
			return fmt.Errorf("bot: usesSpent %q of swap %s: %w", swap.UsesSpent, swap.SwapRequestID, err)
		}
		delta := spentAfter.Sub(spentBefore)
		if !delta.IsPositive() || len(swap.Offered) != 1 || len(swap.Wanted) != 1 {
			continue
		}

		given, err := swap.Offered[0].QuantityDecimal()
		if err != nil {
			return fmt.Errorf("bot: offered quantity of swap %s: %w", swap.SwapRequestID, err)
		}
		received, err := swap.Wanted[0].QuantityDecimal()
		if err != nil {
			return fmt.Errorf("bot: wanted quantity of swap %s: %w", swap.SwapRequestID, err)
		}

		rec := domain.CreatedSwapUseRecord{
			Swap:             swap,
			UsesSpentThisUse: delta.String(),
			AmountGiven:      given.Mul(delta),
			AmountReceived:   received.Mul(delta),
			UsedAt:           now,
		}
		if err := t.useLedger.AddUse(ctx, rec); err != nil {
			return fmt.Errorf("bot: record swap use: %w", err)
		}
		t.reporter.ReportSwapUsed(ctx, *previous, swap, tokens)
	}
	return nil
}

// execute performs a winning strategy's actions: all terminations, then all
// acceptances, then all creations, each announced before the remote call.
func (t *Ticker) execute(ctx context.Context, strategyName string, actions domain.Actions, tokens []domain.TokenInfo, now time.Time) error {
	t.logger.InfoContext(ctx, "executing actions",
		slog.String("strategy", strategyName),
		slog.Int("terminate", len(actions.Terminate)),
		slog.Int("accept", len(actions.Accept)),
		slog.Int("create", len(actions.Create)),
	)

	for _, term := range actions.Terminate {
		t.reporter.ReportTerminatingSwap(ctx, term, tokens)
		if err := t.api.TerminateSwap(ctx, term.SwapRequestID); err != nil {
			return fmt.Errorf("bot: terminate: %w", err)
		}
	}

	for _, accept := range actions.Accept {
		t.reporter.ReportAcceptingSwap(ctx, accept, tokens)
		if err := t.executionPause(ctx); err != nil {
			return err
		}

		status, err := t.api.AcceptSwap(ctx, accept.SwapRequestID, accept.UsesToAccept)
		if err != nil {
			return fmt.Errorf("bot: accept: %w", err)
		}
		if status == galaswap.StatusAlreadyAccepted {
			// Someone beat us to the offer. Expected race, nothing to record.
			t.logger.InfoContext(ctx, "swap already fully used by someone else",
				slog.String("swap_request_id", notify.SanitizeID(accept.SwapRequestID)),
			)
			continue
		}

		if err := t.recordAcceptance(ctx, accept, now); err != nil {
			return err
		}
	}

	for _, create := range actions.Create {
		t.reporter.ReportCreatingSwap(ctx, create, tokens)
		if err := t.executionPause(ctx); err != nil {
			return err
		}

		created, err := t.api.CreateSwap(ctx, create)
		if err != nil {
			return fmt.Errorf("bot: create: %w", err)
		}
		// The remote side is authoritative for id and timestamps; cache its
		// version so the next tick reconciles against it.
		if _, err := t.offers.Upsert(ctx, created); err != nil {
			return fmt.Errorf("bot: cache created swap: %w", err)
		}
	}

	return nil
}

func (t *Ticker) recordAcceptance(ctx context.Context, accept domain.SwapToAccept, now time.Time) error {
	uses, err := decimal.NewFromString(accept.UsesToAccept)
	if err != nil {
		return fmt.Errorf("bot: uses to accept %q: %w", accept.UsesToAccept, err)
	}
	given, err := accept.Wanted[0].QuantityDecimal()
	if err != nil {
		return fmt.Errorf("bot: wanted quantity of swap %s: %w", accept.SwapRequestID, err)
	}
	received, err := accept.Offered[0].QuantityDecimal()
	if err != nil {
		return fmt.Errorf("bot: offered quantity of swap %s: %w", accept.SwapRequestID, err)
	}

	rec := domain.AcceptedSwapRecord{
		Swap:               accept.Swap,
		GivenTokenClass:    accept.Wanted[0].TokenInstance.TokenClassKey,
		ReceivedTokenClass: accept.Offered[0].TokenInstance.TokenClassKey,
		AmountGiven:        given.Mul(uses),
		AmountReceived:     received.Mul(uses),
		UsesAccepted:       accept.UsesToAccept,
		GoodnessRating:     accept.GoodnessRating,
		AcceptedAt:         now,
	}
	if err := t.acceptLedger.AddAcceptance(ctx, rec); err != nil {
		return fmt.Errorf("bot: record acceptance: %w", err)
	}
	return nil
}

// executionPause gives notification delivery a head start and throttles the
// outbound mutation rate. Pacing only, never correctness.
func (t *Ticker) executionPause(ctx context.Context) error {
	delay := t.botCfg.ExecutionDelay.Duration
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
