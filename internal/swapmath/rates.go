package swapmath

import (
	"fmt"
	"math"
	"strconv"

	"galaswapbot/internal/domain"
)

// MarketRate returns how many receiving tokens one giving token is worth at
// current USD prices: price(giving) / price(receiving). The higher the rate,
// the more the giving token buys.
//
// floors optionally overrides each side's price with a configured minimum:
// the effective price is max(actual, floor). This protects rate computations
// against temporarily depressed market prices.
//
// Returns domain.ErrNoMarketRate when either side has no current USD price.
// A non-positive or non-finite rate from present prices is corrupt price data
// and fails with a distinct error.
func MarketRate(giving, receiving domain.TokenClassKey, tokens []domain.TokenInfo, floors map[domain.TokenClassKey]float64) (float64, error) {
	givingToken := domain.FindToken(tokens, giving)
	receivingToken := domain.FindToken(tokens, receiving)

	if givingToken == nil || givingToken.PriceUSD == nil ||
		receivingToken == nil || receivingToken.PriceUSD == nil {
		return 0, fmt.Errorf("swapmath: market rate %s/%s: %w", giving, receiving, domain.ErrNoMarketRate)
	}

	givingPrice := math.Max(*givingToken.PriceUSD, floors[giving])
	receivingPrice := math.Max(*receivingToken.PriceUSD, floors[receiving])

	rate := givingPrice / receivingPrice
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 0, fmt.Errorf("swapmath: invalid market rate %v for %s/%s", rate, giving, receiving)
	}
	return rate, nil
}

// ActualRate returns the effective rate of a swap from the agent's
// perspective: received quantity per given quantity.
func ActualRate(givingAmount, receivingAmount float64) (float64, error) {
	rate := receivingAmount / givingAmount
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 0, fmt.Errorf("swapmath: invalid actual rate %v (giving=%v receiving=%v)", rate, givingAmount, receivingAmount)
	}
	return rate, nil
}

// ActualRateForAccept computes the swap rate for an inbound offer the agent
// would accept: what the offerer wants is what the agent gives.
func ActualRateForAccept(swap domain.Swap) (float64, error) {
	giving, receiving, err := legQuantities(swap.Wanted, swap.Offered)
	if err != nil {
		return 0, err
	}
	return ActualRate(giving, receiving)
}

// ActualRateForCreated computes the swap rate for an offer the agent created:
// the offered side is what the agent gives.
func ActualRateForCreated(swap domain.Swap) (float64, error) {
	giving, receiving, err := legQuantities(swap.Offered, swap.Wanted)
	if err != nil {
		return 0, err
	}
	return ActualRate(giving, receiving)
}

// GoodnessRate is the ratio of a swap's actual rate to the fair market rate.
// Above 1 favors the agent.
func GoodnessRate(actualRate, marketRate float64) float64 {
	return actualRate / marketRate
}

func legQuantities(givingLegs, receivingLegs []domain.SwapLeg) (float64, float64, error) {
	if len(givingLegs) == 0 || len(receivingLegs) == 0 {
		return 0, 0, fmt.Errorf("swapmath: swap has empty legs")
	}
	giving, err := strconv.ParseFloat(givingLegs[0].Quantity, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("swapmath: parse giving quantity %q: %w", givingLegs[0].Quantity, err)
	}
	receiving, err := strconv.ParseFloat(receivingLegs[0].Quantity, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("swapmath: parse receiving quantity %q: %w", receivingLegs[0].Quantity, err)
	}
	return giving, receiving, nil
}
