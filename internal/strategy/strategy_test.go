package strategy

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"galaswapbot/internal/domain"
)

var (
	gala  = domain.TokenClassKey{Collection: "GALA", Category: "Unit", Type: "none", AdditionalKey: "none"}
	gusdc = domain.TokenClassKey{Collection: "GUSDC", Category: "Unit", Type: "none", AdditionalKey: "none"}

	tickTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens(galaPrice, gusdcPrice float64) []domain.TokenInfo {
	return []domain.TokenInfo{
		{TokenClassKey: gala, Symbol: "GALA", Decimals: 8, PriceUSD: &galaPrice},
		{TokenClassKey: gusdc, Symbol: "GUSDC", Decimals: 6, PriceUSD: &gusdcPrice},
	}
}

func balances(galaAmount, gusdcAmount string) []domain.UsableBalance {
	return []domain.UsableBalance{
		{TokenClassKey: gala, Quantity: decimal.RequireFromString(galaAmount)},
		{TokenClassKey: gusdc, Quantity: decimal.RequireFromString(gusdcAmount)},
	}
}

// marketSwap builds a counterparty offer: offeredQty GALA per use for
// wantedQty GUSDC per use.
func marketSwap(id, offeredQty, wantedQty, uses, spent string) domain.Swap {
	return domain.Swap{
		SwapRequestID: id,
		OfferedBy:     "client|other",
		Offered:       []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gala), Quantity: offeredQty}},
		Wanted:        []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gusdc), Quantity: wantedQty}},
		Uses:          uses,
		UsesSpent:     spent,
	}
}

// ownSwap builds one of the agent's own offers: offeredQty GUSDC per use for
// wantedQty GALA per use.
func ownSwap(id, offeredQty, wantedQty, uses, spent string) domain.Swap {
	return domain.Swap{
		SwapRequestID: id,
		OfferedBy:     "client|self",
		Offered:       []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gusdc), Quantity: offeredQty}},
		Wanted:        []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gala), Quantity: wantedQty}},
		Uses:          uses,
		UsesSpent:     spent,
	}
}

type fakeBrowser struct {
	swaps []domain.Swap
	calls int
}

func (f *fakeBrowser) GetAvailableSwaps(ctx context.Context, offeredClass, wantedClass domain.TokenClassKey) ([]domain.Swap, error) {
	f.calls++
	var out []domain.Swap
	for _, s := range f.swaps {
		if len(s.Offered) == 1 && len(s.Wanted) == 1 &&
			s.Offered[0].TokenInstance.TokenClassKey == offeredClass &&
			s.Wanted[0].TokenInstance.TokenClassKey == wantedClass {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAcceptLedger struct {
	given decimal.Decimal
	added []domain.AcceptedSwapRecord
}

func (f *fakeAcceptLedger) AddAcceptance(ctx context.Context, rec domain.AcceptedSwapRecord) error {
	f.added = append(f.added, rec)
	return nil
}

func (f *fakeAcceptLedger) AmountGivenSince(ctx context.Context, given, received domain.TokenClassKey, since time.Time, minGoodness float64) (decimal.Decimal, error) {
	return f.given, nil
}

type fakeUseLedger struct {
	offered decimal.Decimal
	added   []domain.CreatedSwapUseRecord
}

func (f *fakeUseLedger) AddUse(ctx context.Context, rec domain.CreatedSwapUseRecord) error {
	f.added = append(f.added, rec)
	return nil
}

func (f *fakeUseLedger) TotalOfferedSince(ctx context.Context, offered, wanted domain.TokenClassKey, since time.Time) (decimal.Decimal, error) {
	return f.offered, nil
}

type fakePrices struct {
	changes map[domain.TokenClassKey]float64
}

func (f *fakePrices) AddPrices(ctx context.Context, samples []domain.PriceSample, at time.Time) error {
	return nil
}

func (f *fakePrices) ChangePercent(ctx context.Context, token domain.TokenClassKey, since, until time.Time) (*float64, error) {
	change, ok := f.changes[token]
	if !ok {
		return nil, nil
	}
	return &change, nil
}

type fakeReporter struct {
	alerts  []string
	accepts []domain.SwapToAccept
	creates []domain.SwapToCreate
	kills   []domain.SwapToTerminate
	uses    [][2]domain.Swap
}

func (f *fakeReporter) ReportAcceptingSwap(ctx context.Context, swap domain.SwapToAccept, tokens []domain.TokenInfo) {
	f.accepts = append(f.accepts, swap)
}

func (f *fakeReporter) ReportCreatingSwap(ctx context.Context, swap domain.SwapToCreate, tokens []domain.TokenInfo) {
	f.creates = append(f.creates, swap)
}

func (f *fakeReporter) ReportTerminatingSwap(ctx context.Context, swap domain.SwapToTerminate, tokens []domain.TokenInfo) {
	f.kills = append(f.kills, swap)
}

func (f *fakeReporter) ReportSwapUsed(ctx context.Context, before, after domain.Swap, tokens []domain.TokenInfo) {
	f.uses = append(f.uses, [2]domain.Swap{before, after})
}

func (f *fakeReporter) Alert(ctx context.Context, message string) {
	f.alerts = append(f.alerts, message)
}
