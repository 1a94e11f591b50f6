package strategy

import (
	"context"
	"errors"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/search"
)

// stablePeg is a pairwise scan restricted to stable/stable pairs. Pegged
// assets trade in a much tighter band, so the default threshold is lower
// than cross_venue's.
type stablePeg struct {
	universe [][2]string
	searcher *search.Pairwise
}

func newStablePeg(p Params) (Strategy, error) {
	stable := make(map[string]bool, len(p.Tokens))
	for _, t := range p.Tokens {
		if t.Stable {
			stable[t.Symbol] = true
		}
	}

	// Restrict the configured universe to stable/stable pairs.
	candidates := p.Pairs
	if len(candidates) == 0 {
		candidates = allPairs(p.Tokens)
	}
	var universe [][2]string
	for _, pair := range candidates {
		if stable[pair[0]] && stable[pair[1]] {
			universe = append(universe, pair)
		}
	}
	if len(universe) == 0 {
		return nil, errors.New("strategy: stable_peg requires at least one stable/stable pair")
	}

	threshold := p.MinSpreadBps
	if threshold == 0 {
		threshold = DefaultStablePegSpreadBps
	}
	return &stablePeg{
		universe: universe,
		searcher: &search.Pairwise{
			Strategy:     "stable_peg",
			Universe:     universe,
			MinSpreadBps: threshold,
		},
	}, nil
}

func (s *stablePeg) Name() string { return "stable_peg" }

func (s *stablePeg) Universe() [][2]string { return s.universe }

func (s *stablePeg) Search(ctx context.Context, src search.PairSource, prices search.EdgePricer) []domain.Candidate {
	return s.searcher.Search(ctx, src, prices)
}
