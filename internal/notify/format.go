package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"galaswapbot/internal/domain"
)

// SanitizeID makes a swap id safe for text channels. GalaChain composite keys
// embed NUL separators, which several webhook APIs reject outright.
func SanitizeID(id string) string {
	return strings.ReplaceAll(id, "\x00", " ")
}

// symbolFor resolves a display symbol for a token class, falling back to the
// pipe-joined class string for unlisted tokens.
func symbolFor(tokens []domain.TokenInfo, class domain.TokenClassKey) string {
	if t := domain.FindToken(tokens, class); t != nil && t.Symbol != "" {
		return t.Symbol
	}
	return class.String()
}

// describeRate renders a goodness rating as a percentage relative to market,
// e.g. "2.50% better than market rate".
func describeRate(goodness float64) string {
	pct := (goodness - 1) * 100
	if pct >= 0 {
		return fmt.Sprintf("%.2f%% better than market rate", pct)
	}
	return fmt.Sprintf("%.2f%% worse than market rate", -pct)
}

func legAmount(leg domain.SwapLeg, uses string) string {
	q, err := decimal.NewFromString(leg.Quantity)
	if err != nil {
		return leg.Quantity
	}
	u, err := decimal.NewFromString(uses)
	if err != nil {
		return leg.Quantity
	}
	return q.Mul(u).String()
}

// DescribeAccept renders the counterparty's offer from the agent's
// perspective: the agent gives the wanted leg and receives the offered leg.
func DescribeAccept(swap domain.SwapToAccept, tokens []domain.TokenInfo) string {
	var b strings.Builder
	if len(swap.Wanted) > 0 {
		fmt.Fprintf(&b, "Giving %s %s",
			legAmount(swap.Wanted[0], swap.UsesToAccept),
			symbolFor(tokens, swap.Wanted[0].TokenInstance.TokenClassKey),
		)
	}
	if len(swap.Offered) > 0 {
		fmt.Fprintf(&b, " for %s %s",
			legAmount(swap.Offered[0], swap.UsesToAccept),
			symbolFor(tokens, swap.Offered[0].TokenInstance.TokenClassKey),
		)
	}
	fmt.Fprintf(&b, " (%s uses, %s)", swap.UsesToAccept, describeRate(swap.GoodnessRating))
	return b.String()
}

// DescribeCreate renders a new offer about to be published.
func DescribeCreate(swap domain.SwapToCreate, tokens []domain.TokenInfo) string {
	var b strings.Builder
	if len(swap.Offered) > 0 {
		fmt.Fprintf(&b, "Offering %s %s",
			legAmount(swap.Offered[0], swap.Uses),
			symbolFor(tokens, swap.Offered[0].TokenInstance.TokenClassKey),
		)
	}
	if len(swap.Wanted) > 0 {
		fmt.Fprintf(&b, " for %s %s",
			legAmount(swap.Wanted[0], swap.Uses),
			symbolFor(tokens, swap.Wanted[0].TokenInstance.TokenClassKey),
		)
	}
	fmt.Fprintf(&b, " (%s uses)", swap.Uses)
	return b.String()
}

// DescribeSwap renders a standing offer: totals plus how much remains.
func DescribeSwap(swap domain.Swap, tokens []domain.TokenInfo) string {
	var b strings.Builder
	if len(swap.Offered) > 0 {
		fmt.Fprintf(&b, "Offering %s %s",
			legAmount(swap.Offered[0], swap.Uses),
			symbolFor(tokens, swap.Offered[0].TokenInstance.TokenClassKey),
		)
	}
	if len(swap.Wanted) > 0 {
		fmt.Fprintf(&b, " for %s %s",
			legAmount(swap.Wanted[0], swap.Uses),
			symbolFor(tokens, swap.Wanted[0].TokenInstance.TokenClassKey),
		)
	}
	fmt.Fprintf(&b, " (%s of %s uses remaining)", swap.UsesRemaining().String(), swap.Uses)
	return b.String()
}

// DescribeUse renders how much a counterparty took and paid when one of the
// agent's own offers was used between two observations.
func DescribeUse(before, after domain.Swap, tokens []domain.TokenInfo) string {
	usesDelta := decimal.Zero
	if spentAfter, err := decimal.NewFromString(after.UsesSpent); err == nil {
		if spentBefore, err := decimal.NewFromString(before.UsesSpent); err == nil {
			usesDelta = spentAfter.Sub(spentBefore)
		}
	}

	var b strings.Builder
	if len(after.Offered) > 0 {
		fmt.Fprintf(&b, "Gave %s %s",
			legAmount(after.Offered[0], usesDelta.String()),
			symbolFor(tokens, after.Offered[0].TokenInstance.TokenClassKey),
		)
	}
	if len(after.Wanted) > 0 {
		fmt.Fprintf(&b, " for %s %s",
			legAmount(after.Wanted[0], usesDelta.String()),
			symbolFor(tokens, after.Wanted[0].TokenInstance.TokenClassKey),
		)
	}
	fmt.Fprintf(&b, " (%s uses taken, %s remaining)", usesDelta.String(), after.UsesRemaining().String())
	return b.String()
}
