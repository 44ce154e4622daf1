package galaswap

import "galaswapbot/internal/domain"

// AcceptStatus is the outcome of an accept request.
type AcceptStatus string

const (
	// StatusAccepted means the remote service filled the requested uses.
	StatusAccepted AcceptStatus = "accepted"
	// StatusAlreadyAccepted means someone else exhausted the offer first.
	// This is an expected race, not an error.
	StatusAlreadyAccepted AcceptStatus = "already_accepted"
)

// swapAlreadyUsedCode is the remote error code for the benign accept race.
const swapAlreadyUsedCode = "SWAP_ALREADY_USED"

type apiToken struct {
	Symbol        string `json:"symbol"`
	Collection    string `json:"collection"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	AdditionalKey string `json:"additionalKey"`
	Decimals      int    `json:"decimals"`
	CurrentPrices struct {
		USD *float64 `json:"usd"`
	} `json:"currentPrices"`
}

func (t apiToken) toDomain() domain.TokenInfo {
	return domain.TokenInfo{
		TokenClassKey: domain.TokenClassKey{
			Collection:    t.Collection,
			Category:      t.Category,
			Type:          t.Type,
			AdditionalKey: t.AdditionalKey,
		},
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
		PriceUSD: t.CurrentPrices.USD,
	}
}

type tokensResponse struct {
	Tokens []apiToken `json:"tokens"`
}

type balancesResponse struct {
	Data []domain.TokenBalance `json:"Data"`
}

type availableSwapsResponse struct {
	Results []domain.Swap `json:"results"`
}

type createSwapResponse struct {
	Data domain.Swap `json:"Data"`
}

type swapsByUserResponse struct {
	Data struct {
		NextPageBookMark string        `json:"nextPageBookMark"`
		Results          []domain.Swap `json:"results"`
	} `json:"Data"`
}
