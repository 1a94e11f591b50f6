package search

import (
	"context"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// Pairwise finds cross-venue spreads for a fixed set of token pairs: for
// each pair it compares the fee-adjusted price across every venue with a
// cached pool and emits a candidate when the gap clears the threshold.
type Pairwise struct {
	// Strategy stamps emitted candidates.
	Strategy string
	// Universe is the unordered symbol pairs to scan.
	Universe [][2]string
	// MinSpreadBps is the inclusive spread threshold.
	MinSpreadBps int64
}

// Search enumerates candidates for one tick. Unavailable edges are skipped;
// a token pair with fewer than two priced venues yields nothing.
func (s *Pairwise) Search(ctx context.Context, src PairSource, prices EdgePricer) []domain.Candidate {
	var out []domain.Candidate

	for _, pairSyms := range s.Universe {
		base, okB := src.Token(pairSyms[0])
		quote, okQ := src.Token(pairSyms[1])
		if !okB || !okQ {
			continue
		}

		pools := src.PairsFor(base.Symbol, quote.Symbol)
		if len(pools) < 2 {
			continue
		}

		type quotedPool struct {
			pair domain.Pair
			edge domain.PriceEdge
		}
		var quoted []quotedPool
		for _, pool := range pools {
			edge, ok := prices.Price(ctx, pool, base, quote)
			if !ok {
				continue
			}
			quoted = append(quoted, quotedPool{pair: pool, edge: edge})
		}
		if len(quoted) < 2 {
			continue
		}

		lo, hi := quoted[0], quoted[0]
		for _, q := range quoted[1:] {
			if q.edge.Price < lo.edge.Price {
				lo = q
			}
			if q.edge.Price > hi.edge.Price {
				hi = q
			}
		}
		if lo.pair.Venue == hi.pair.Venue {
			continue
		}

		// Spread is measured leg-wise against the mid: the rebalance
		// captures the displacement of both pools, so both legs count.
		mid := (lo.edge.Price + hi.edge.Price) / 2
		if mid <= 0 {
			continue
		}
		spreadBps := floorBps((hi.edge.Price - lo.edge.Price) / mid * 2)
		if spreadBps < s.MinSpreadBps {
			continue
		}

		out = append(out, domain.Candidate{
			Strategy:  s.Strategy,
			Kind:      domain.CandidatePairwise,
			Route:     []string{lo.pair.Key(), hi.pair.Key()},
			Tokens:    []string{base.Symbol, quote.Symbol},
			Venues:    []string{lo.pair.Venue, hi.pair.Venue},
			Prices:    []float64{lo.edge.Price, hi.edge.Price},
			SpreadBps: spreadBps,
		})
	}

	return out
}
