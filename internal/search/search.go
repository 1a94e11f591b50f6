// Package search enumerates geometrically valid opportunity candidates from
// fee-adjusted edge prices. It does not rank or de-duplicate; every edge that
// cannot be priced is skipped, never fatal.
package search

import (
	"context"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// PairSource is the registry view the searchers need.
type PairSource interface {
	// PairsFor returns every venue's pool for the unordered symbol pair.
	PairsFor(a, b string) []domain.Pair
	// Tokens returns the universe symbols in configuration order.
	Tokens() []string
	// Token resolves a configured symbol.
	Token(symbol string) (domain.Token, bool)
}

// EdgePricer prices one directed edge on a specific pair. ok=false means the
// edge is unavailable this tick.
type EdgePricer interface {
	Price(ctx context.Context, pair domain.Pair, src, dst domain.Token) (domain.PriceEdge, bool)
}

// floorBps converts a fraction to integer basis points, floored toward zero.
// Every spread/profit figure in the pipeline uses this single rounding rule.
func floorBps(fraction float64) int64 {
	return int64(fraction * 10000)
}
