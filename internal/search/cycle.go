package search

import (
	"context"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// Cycle finds N-hop cycles whose fee-adjusted edge-price product exceeds 1
// by more than the configured breakeven. Both traversal orientations of each
// unordered token combination are evaluated independently: AMM fees are not
// symmetric around a cycle, so one direction may be profitable while the
// other is not.
type Cycle struct {
	// Strategy stamps emitted candidates.
	Strategy string
	// Hops is the number of tokens per cycle, 3 or more.
	Hops int
	// BreakevenBps flags a candidate when the product exceeds
	// 1 + BreakevenBps/10000 (strict).
	BreakevenBps int64
}

// Search enumerates candidates for one tick. A cycle with any unavailable
// edge is skipped, never fatal.
func (s *Cycle) Search(ctx context.Context, src PairSource, prices EdgePricer) []domain.Candidate {
	hops := s.Hops
	if hops < 3 {
		hops = 3
	}

	symbols := src.Tokens()
	if len(symbols) < hops {
		return nil
	}

	var out []domain.Candidate
	for _, combo := range combinations(symbols, hops) {
		forward := combo
		reverse := reversed(combo)
		for _, orientation := range [][]string{forward, reverse} {
			if c, ok := s.evalCycle(ctx, src, prices, orientation); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// evalCycle multiplies the best available fee-adjusted edge price around one
// orientation of a cycle. Returns ok=false when the product does not clear
// breakeven or any edge is unavailable.
func (s *Cycle) evalCycle(ctx context.Context, src PairSource, prices EdgePricer, order []string) (domain.Candidate, bool) {
	product := 1.0
	route := make([]string, 0, len(order))
	venues := make([]string, 0, len(order))
	edgePrices := make([]float64, 0, len(order))

	for i := range order {
		from, to := order[i], order[(i+1)%len(order)]
		edge, pair, ok := s.bestEdge(ctx, src, prices, from, to)
		if !ok {
			return domain.Candidate{}, false
		}
		product *= edge.Price
		route = append(route, pair.Key())
		venues = append(venues, pair.Venue)
		edgePrices = append(edgePrices, edge.Price)
	}

	if product <= 1+float64(s.BreakevenBps)/10000 {
		return domain.Candidate{}, false
	}

	tokens := make([]string, len(order), len(order)+1)
	copy(tokens, order)
	tokens = append(tokens, order[0]) // closed cycle

	return domain.Candidate{
		Strategy:  s.Strategy,
		Kind:      domain.CandidateCycle,
		Route:     route,
		Tokens:    tokens,
		Venues:    venues,
		Prices:    edgePrices,
		SpreadBps: floorBps(product - 1),
	}, true
}

// bestEdge returns the highest fee-adjusted price for from→to across every
// venue with a cached pool.
func (s *Cycle) bestEdge(ctx context.Context, src PairSource, prices EdgePricer, from, to string) (domain.PriceEdge, domain.Pair, bool) {
	srcTok, okS := src.Token(from)
	dstTok, okD := src.Token(to)
	if !okS || !okD {
		return domain.PriceEdge{}, domain.Pair{}, false
	}

	var (
		best     domain.PriceEdge
		bestPair domain.Pair
		found    bool
	)
	for _, pool := range src.PairsFor(from, to) {
		edge, ok := prices.Price(ctx, pool, srcTok, dstTok)
		if !ok {
			continue
		}
		if !found || edge.Price > best.Price {
			best, bestPair, found = edge, pool, true
		}
	}
	return best, bestPair, found
}

// combinations returns every k-subset of symbols preserving input order.
func combinations(symbols []string, k int) [][]string {
	var out [][]string
	combo := make([]string, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			out = append(out, append([]string(nil), combo...))
			return
		}
		for i := start; i <= len(symbols)-(k-depth); i++ {
			combo[depth] = symbols[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return out
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
