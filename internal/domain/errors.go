package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrSigningFailed  = errors.New("signing failed")
	ErrNoMarketRate   = errors.New("no market rate available")
	ErrPriceOutOfBand = errors.New("market price outside configured range")
)
