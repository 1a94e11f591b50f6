// Package domain defines the core value types and interfaces shared by the
// scanner pipeline: tokens, venues, pairs, price edges, candidates, signals,
// and the contracts implemented by the chain, cache, and store layers.
package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an ERC20 token in the configured universe. Metadata is resolved
// once during discovery and cached for the lifetime of the scanner.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Stable   bool
}

// Venue identifies one DEX/protocol instance. Static, configured at startup.
type Venue struct {
	Name    string
	Factory common.Address
	// FeeBps is the venue's swap fee in basis points (30 = 0.30%).
	FeeBps int64
}

// Pair is a tradeable pool discovered on one venue for two tokens. Token0 and
// Token1 follow the pool's canonical on-chain ordering, not the configured
// pair ordering. Pairs are created by discovery and owned exclusively by the
// scanner that produced them.
type Pair struct {
	Venue  string
	FeeBps int64
	Pool   common.Address
	Token0 Token
	Token1 Token
}

// Key returns the canonical identifier "venue:SYM0/SYM1" used for logging and
// registry snapshots.
func (p Pair) Key() string {
	return fmt.Sprintf("%s:%s/%s", p.Venue, p.Token0.Symbol, p.Token1.Symbol)
}

// Has reports whether the pair contains the given token address.
func (p Pair) Has(addr common.Address) bool {
	return p.Token0.Address == addr || p.Token1.Address == addr
}

// Other returns the counterpart token for addr. The boolean is false when
// addr is not part of the pair.
func (p Pair) Other(addr common.Address) (Token, bool) {
	switch addr {
	case p.Token0.Address:
		return p.Token1, true
	case p.Token1.Address:
		return p.Token0, true
	}
	return Token{}, false
}

// PairKey returns the venue-independent canonical key for two token symbols,
// e.g. "USDC/USDT" and "USDT/USDC" both map to "USDC/USDT". It is used to
// group pools of the same token pair across venues.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "/" + b
}

// PriceEdge is a directed, fee-adjusted price of Base in terms of Quote on
// one venue at one point in time. Derived, never stored; recomputed every
// scan tick.
type PriceEdge struct {
	Venue string
	Base  string
	Quote string
	// Raw is the spot reserve ratio before fees.
	Raw float64
	// Price is Raw with the venue swap fee baked in:
	// Raw * (10000 - FeeBps) / 10000.
	Price  float64
	FeeBps int64
}
