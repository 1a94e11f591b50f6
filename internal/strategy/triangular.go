package strategy

import (
	"context"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/search"
)

// triangular runs the 3-hop cycle search over the whole token universe. The
// cycle needs pools between every hop, so discovery covers all combinations
// regardless of any configured pair restriction.
type triangular struct {
	searcher *search.Cycle
}

func newTriangular(p Params) (Strategy, error) {
	breakeven := p.MinSpreadBps
	if breakeven == 0 {
		breakeven = DefaultCycleBreakevenBps
	}
	return &triangular{
		searcher: &search.Cycle{
			Strategy:     "triangular",
			Hops:         3,
			BreakevenBps: breakeven,
		},
	}, nil
}

func (s *triangular) Name() string { return "triangular" }

// Universe returns nil: the registry discovers every token combination.
func (s *triangular) Universe() [][2]string { return nil }

func (s *triangular) Search(ctx context.Context, src search.PairSource, prices search.EdgePricer) []domain.Candidate {
	return s.searcher.Search(ctx, src, prices)
}
