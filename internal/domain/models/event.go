package models

import (
	"fmt"
	"math/big"
)

// PriceUpdate is one price batch as delivered by the chain gateway.
// Prices and Tokens are parallel; prices are decimal strings because the
// values exceed 64 bits.
type PriceUpdate struct {
	Source    string   `json:"source"`
	Timestamp int64    `json:"t"`
	Prices    []string `json:"prices"`
	Tokens    []string `json:"tokens"`
}

// ParsedPrices decodes the price strings. A malformed or mismatched batch
// is a hard error; the caller routes it to the DLQ.
func (p *PriceUpdate) ParsedPrices() ([]*big.Int, error) {
	if len(p.Prices) != len(p.Tokens) {
		return nil, fmt.Errorf("price update: %d prices vs %d tokens", len(p.Prices), len(p.Tokens))
	}
	out := make([]*big.Int, len(p.Prices))
	for i, s := range p.Prices {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("price update: invalid price %q for token %s", s, p.Tokens[i])
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("price update: negative price %q for token %s", s, p.Tokens[i])
		}
		out[i] = v
	}
	return out, nil
}
