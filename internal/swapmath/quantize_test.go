package swapmath

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSwapQuantitiesAndUses(t *testing.T) {
	giving := decimal.RequireFromString("1500")
	receiving := decimal.RequireFromString("148.37767732267733925")

	terms, err := SwapQuantitiesAndUses(8, 8, giving, receiving)
	require.NoError(t, err)

	require.Equal(t, "4", terms.Uses.String())
	require.Equal(t, "375", terms.GivingQuantity.String())
	require.Equal(t, "37.09441933", terms.ReceivingQuantity.String())
}

func TestSwapQuantitiesAndUsesRoundTrip(t *testing.T) {
	cases := []struct {
		name              string
		givingDecimals    int
		receivingDecimals int
		giving            string
		receiving         string
	}{
		{"integers", 0, 0, "10", "4"},
		{"mixed precision", 8, 0, "0.5", "3"},
		{"long fraction truncated", 8, 8, "1500", "148.37767732267733925"},
		{"coprime amounts", 2, 2, "1.01", "0.97"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			giving := decimal.RequireFromString(tc.giving)
			receiving := decimal.RequireFromString(tc.receiving)

			terms, err := SwapQuantitiesAndUses(tc.givingDecimals, tc.receivingDecimals, giving, receiving)
			require.NoError(t, err)

			require.True(t, terms.Uses.IsInteger())
			require.True(t, terms.Uses.IsPositive())
			require.True(t, terms.GivingQuantity.IsPositive())
			require.True(t, terms.ReceivingQuantity.IsPositive())

			// uses x per-use quantity reproduces the truncated inputs exactly.
			require.True(t, terms.GivingQuantity.Mul(terms.Uses).Equal(giving.Truncate(int32(tc.givingDecimals))),
				"giving: %s x %s != %s", terms.GivingQuantity, terms.Uses, giving)
			require.True(t, terms.ReceivingQuantity.Mul(terms.Uses).Equal(receiving.Truncate(int32(tc.receivingDecimals))),
				"receiving: %s x %s != %s", terms.ReceivingQuantity, terms.Uses, receiving)

			// Minimality: the per-use minor-unit amounts share no common factor,
			// so no larger uses count could satisfy integrality.
			givingMinor := terms.GivingQuantity.Shift(int32(tc.givingDecimals)).BigInt()
			receivingMinor := terms.ReceivingQuantity.Shift(int32(tc.receivingDecimals)).BigInt()
			gcd := new(big.Int).GCD(nil, nil, givingMinor, receivingMinor)
			require.Equal(t, "1", gcd.String())
		})
	}
}

func TestSwapQuantitiesAndUsesRejectsNonPositive(t *testing.T) {
	cases := []struct {
		name      string
		giving    string
		receiving string
	}{
		{"zero giving", "0", "5"},
		{"zero receiving", "5", "0"},
		{"negative giving", "-1", "5"},
		{"truncates to zero", "0.0001", "5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SwapQuantitiesAndUses(2, 2,
				decimal.RequireFromString(tc.giving),
				decimal.RequireFromString(tc.receiving),
			)
			require.Error(t, err)
		})
	}
}
