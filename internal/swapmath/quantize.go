// Package swapmath implements the exact arithmetic at the heart of the bot:
// reducing a desired exchange to integer per-use quantities and a uses count,
// and deriving market/actual/goodness rates from price and quantity data.
package swapmath

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SwapTerms is the output of quantization: the smallest per-use quantities
// (in whole token units) and the uses count such that uses x quantity equals
// the truncated desired amount on each side.
type SwapTerms struct {
	GivingQuantity    decimal.Decimal
	ReceivingQuantity decimal.Decimal
	Uses              decimal.Decimal
}

// SwapQuantitiesAndUses converts the desired giving and receiving amounts into
// swap terms. Each amount is truncated toward zero to its token's declared
// decimal precision, scaled to integer minor units, and reduced by the GCD of
// the two minor-unit amounts; the GCD is the uses count.
//
// A zero or negative amount (before or after truncation) violates the
// contract of this function and is returned as an error; it indicates an
// upstream computation went wrong, not a recoverable market condition.
func SwapQuantitiesAndUses(givingDecimals, receivingDecimals int, givingAmount, receivingAmount decimal.Decimal) (SwapTerms, error) {
	givingQuantum := givingAmount.Truncate(int32(givingDecimals)).Shift(int32(givingDecimals))
	receivingQuantum := receivingAmount.Truncate(int32(receivingDecimals)).Shift(int32(receivingDecimals))

	givingInt := givingQuantum.BigInt()
	receivingInt := receivingQuantum.BigInt()

	if givingInt.Sign() <= 0 || receivingInt.Sign() <= 0 {
		return SwapTerms{}, fmt.Errorf(
			"swapmath: non-positive quantum amounts (giving=%s at %d decimals, receiving=%s at %d decimals)",
			givingAmount, givingDecimals, receivingAmount, receivingDecimals,
		)
	}

	gcd := new(big.Int).GCD(nil, nil, givingInt, receivingInt)

	terms := SwapTerms{
		GivingQuantity:    decimal.NewFromBigInt(new(big.Int).Div(givingInt, gcd), -int32(givingDecimals)),
		ReceivingQuantity: decimal.NewFromBigInt(new(big.Int).Div(receivingInt, gcd), -int32(receivingDecimals)),
		Uses:              decimal.NewFromBigInt(gcd, 0),
	}

	// Postcondition: uses is a positive integer and both per-use quantities
	// are strictly positive. The GCD of two positive integers guarantees
	// this, so a failure here is a programming error.
	if !terms.Uses.IsInteger() || terms.Uses.Sign() <= 0 ||
		terms.GivingQuantity.Sign() <= 0 || terms.ReceivingQuantity.Sign() <= 0 {
		return SwapTerms{}, fmt.Errorf(
			"swapmath: quantization postcondition failed (giving=%s receiving=%s uses=%s)",
			terms.GivingQuantity, terms.ReceivingQuantity, terms.Uses,
		)
	}

	return terms, nil
}
