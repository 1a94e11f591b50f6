package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// triangle builds a WETH/USDC/WBTC universe with one pool per leg and a
// forward cycle product of 1.001^3.
func triangle() (*fakeSource, *fakePricer) {
	src := newFakeSource("WETH", "USDC", "WBTC")
	src.addPool("venue_a", "WETH", "USDC", 30)
	src.addPool("venue_a", "USDC", "WBTC", 30)
	src.addPool("venue_a", "WBTC", "WETH", 30)

	prices := newFakePricer()
	prices.set("venue_a", "WETH", "USDC", 1.001)
	prices.set("venue_a", "USDC", "WBTC", 1.001)
	prices.set("venue_a", "WBTC", "WETH", 1.001)
	// Reverse edges lose money.
	prices.set("venue_a", "USDC", "WETH", 0.999)
	prices.set("venue_a", "WBTC", "USDC", 0.999)
	prices.set("venue_a", "WETH", "WBTC", 0.999)
	return src, prices
}

func TestCycleFindsProfitableOrientationOnly(t *testing.T) {
	src, prices := triangle()
	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}

	got := s.Search(context.Background(), src, prices)
	require.Len(t, got, 1)

	c := got[0]
	require.Equal(t, domain.CandidateCycle, c.Kind)
	// Closed route: first symbol repeated at the end.
	require.Len(t, c.Tokens, 4)
	require.Equal(t, c.Tokens[0], c.Tokens[3])
	// 1.001^3 - 1 ≈ 30.03 bps, floored to 30.
	require.Equal(t, int64(30), c.SpreadBps)
}

func TestCycleBothOrientationsCanQualify(t *testing.T) {
	src, _ := triangle()
	prices := newFakePricer()
	for _, pair := range [][2]string{{"WETH", "USDC"}, {"USDC", "WBTC"}, {"WBTC", "WETH"}} {
		prices.set("venue_a", pair[0], pair[1], 1.001)
		prices.set("venue_a", pair[1], pair[0], 1.001)
	}

	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}
	got := s.Search(context.Background(), src, prices)
	require.Len(t, got, 2)
}

func TestCycleBreakevenIsStrict(t *testing.T) {
	src, prices := triangle()
	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}

	got := s.Search(context.Background(), src, prices)
	require.Len(t, got, 1)

	// Raise breakeven to exactly the found margin: strict comparison drops
	// the candidate.
	s.BreakevenBps = got[0].SpreadBps + 1
	require.Empty(t, s.Search(context.Background(), src, prices))

	// Product exactly 1 never qualifies at breakeven 0.
	flat := newFakePricer()
	for _, pair := range [][2]string{{"WETH", "USDC"}, {"USDC", "WBTC"}, {"WBTC", "WETH"}} {
		flat.set("venue_a", pair[0], pair[1], 1.0)
		flat.set("venue_a", pair[1], pair[0], 1.0)
	}
	s.BreakevenBps = 0
	require.Empty(t, s.Search(context.Background(), src, flat))
}

func TestCycleSkipsOnUnavailableEdge(t *testing.T) {
	src, prices := triangle()
	delete(prices.prices, "venue_a|USDC|WBTC")

	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}
	require.Empty(t, s.Search(context.Background(), src, prices))
}

func TestCyclePicksBestVenuePerHop(t *testing.T) {
	src, prices := triangle()
	// A second venue with a better WETH→USDC edge.
	src.addPool("venue_b", "WETH", "USDC", 30)
	prices.set("venue_b", "WETH", "USDC", 1.002)

	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}
	got := s.Search(context.Background(), src, prices)
	require.Len(t, got, 1)
	require.Contains(t, got[0].Venues, "venue_b")
}

func TestCycleRequiresEnoughTokens(t *testing.T) {
	src := newFakeSource("WETH", "USDC")
	s := &Cycle{Strategy: "triangular", Hops: 3, BreakevenBps: 0}
	require.Empty(t, s.Search(context.Background(), src, newFakePricer()))
}

func TestCombinations(t *testing.T) {
	got := combinations([]string{"a", "b", "c", "d"}, 3)
	require.Len(t, got, 4)
	require.Contains(t, got, []string{"a", "b", "c"})
	require.Contains(t, got, []string{"b", "c", "d"})
}
