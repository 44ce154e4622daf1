// Package domain holds the core value types of the bot: token identities,
// swaps, balances, proposed actions, and the store interfaces implemented by
// the persistence and cache layers.
package domain

import (
	"fmt"
	"strings"
)

// TokenClassKey identifies a fungible token type on GalaChain. Equality is
// exact field-wise match.
type TokenClassKey struct {
	Collection    string `json:"collection" toml:"collection"`
	Category      string `json:"category" toml:"category"`
	Type          string `json:"type" toml:"type"`
	AdditionalKey string `json:"additionalKey" toml:"additional_key"`
}

// String renders the class in the canonical pipe-joined form used as a store
// key, e.g. "GALA|Unit|none|none".
func (k TokenClassKey) String() string {
	return k.Collection + "|" + k.Category + "|" + k.Type + "|" + k.AdditionalKey
}

// Equal reports whether two token classes are the same.
func (k TokenClassKey) Equal(other TokenClassKey) bool {
	return k == other
}

// ParseTokenClassKey parses the pipe-joined form produced by String.
func ParseTokenClassKey(s string) (TokenClassKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return TokenClassKey{}, fmt.Errorf("domain: invalid token class string %q", s)
	}
	return TokenClassKey{
		Collection:    parts[0],
		Category:      parts[1],
		Type:          parts[2],
		AdditionalKey: parts[3],
	}, nil
}

// TokenInstanceKey is a TokenClassKey plus an instance index. All tokens
// traded here are fungible, so the instance is always "0".
type TokenInstanceKey struct {
	TokenClassKey
	Instance string `json:"instance"`
}

// InstanceOf returns the fungible (instance "0") instance key for a class.
func InstanceOf(class TokenClassKey) TokenInstanceKey {
	return TokenInstanceKey{TokenClassKey: class, Instance: "0"}
}

// TokenInfo is a token listing entry from the marketplace: identity, symbol,
// declared decimal precision, and the current USD price when known.
type TokenInfo struct {
	TokenClassKey
	Symbol   string
	Decimals int
	// PriceUSD is nil when the marketplace has no current price for the token.
	PriceUSD *float64
}

// FindToken returns the entry matching class, or nil.
func FindToken(tokens []TokenInfo, class TokenClassKey) *TokenInfo {
	for i := range tokens {
		if tokens[i].TokenClassKey == class {
			return &tokens[i]
		}
	}
	return nil
}
