package strategy

import (
	"context"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/search"
)

// crossVenue scans every configured token pair for a buy-low/sell-high gap
// between two venues.
type crossVenue struct {
	universe [][2]string
	searcher *search.Pairwise
}

func newCrossVenue(p Params) (Strategy, error) {
	universe := p.Pairs
	if len(universe) == 0 {
		universe = allPairs(p.Tokens)
	}
	threshold := p.MinSpreadBps
	if threshold == 0 {
		threshold = DefaultCrossVenueSpreadBps
	}
	return &crossVenue{
		universe: universe,
		searcher: &search.Pairwise{
			Strategy:     "cross_venue",
			Universe:     universe,
			MinSpreadBps: threshold,
		},
	}, nil
}

func (s *crossVenue) Name() string { return "cross_venue" }

func (s *crossVenue) Universe() [][2]string { return s.universe }

func (s *crossVenue) Search(ctx context.Context, src search.PairSource, prices search.EdgePricer) []domain.Candidate {
	return s.searcher.Search(ctx, src, prices)
}
