package strategy

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

func testTokens() []domain.Token {
	mk := func(i int64, sym string, stable bool) domain.Token {
		return domain.Token{
			Address: common.BigToAddress(big.NewInt(i)),
			Symbol:  sym,
			Stable:  stable,
		}
	}
	return []domain.Token{
		mk(1, "WETH", false),
		mk(2, "USDC", true),
		mk(3, "USDT", true),
		mk(4, "DAI", true),
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("momentum", Params{Tokens: testTokens()})
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown strategy "momentum"`)
}

func TestCrossVenueUniverseDefaultsToAllPairs(t *testing.T) {
	s, err := New("cross_venue", Params{Tokens: testTokens()})
	require.NoError(t, err)
	// C(4,2) combinations.
	require.Len(t, s.Universe(), 6)
}

func TestCrossVenueRespectsPairRestriction(t *testing.T) {
	pairs := [][2]string{{"WETH", "USDC"}}
	s, err := New("cross_venue", Params{Tokens: testTokens(), Pairs: pairs})
	require.NoError(t, err)
	require.Equal(t, pairs, s.Universe())
}

func TestStablePegRestrictsToStablePairs(t *testing.T) {
	s, err := New("stable_peg", Params{Tokens: testTokens()})
	require.NoError(t, err)

	universe := s.Universe()
	require.Len(t, universe, 3) // USDC/USDT, USDC/DAI, USDT/DAI
	for _, pair := range universe {
		require.NotContains(t, pair, "WETH")
	}
}

func TestStablePegRequiresStablePair(t *testing.T) {
	tokens := []domain.Token{
		{Address: common.BigToAddress(big.NewInt(1)), Symbol: "WETH"},
		{Address: common.BigToAddress(big.NewInt(2)), Symbol: "WBTC"},
	}
	_, err := New("stable_peg", Params{Tokens: tokens})
	require.Error(t, err)
}

// Zero min_spread_bps selects each strategy's own threshold.
func TestDefaultThresholds(t *testing.T) {
	cv, err := New("cross_venue", Params{Tokens: testTokens()})
	require.NoError(t, err)
	require.Equal(t, int64(DefaultCrossVenueSpreadBps), cv.(*crossVenue).searcher.MinSpreadBps)

	sp, err := New("stable_peg", Params{Tokens: testTokens()})
	require.NoError(t, err)
	require.Equal(t, int64(DefaultStablePegSpreadBps), sp.(*stablePeg).searcher.MinSpreadBps)

	tr, err := New("triangular", Params{Tokens: testTokens()})
	require.NoError(t, err)
	require.Equal(t, int64(DefaultCycleBreakevenBps), tr.(*triangular).searcher.BreakevenBps)

	// An explicit threshold wins.
	cv, err = New("cross_venue", Params{Tokens: testTokens(), MinSpreadBps: 80})
	require.NoError(t, err)
	require.Equal(t, int64(80), cv.(*crossVenue).searcher.MinSpreadBps)
}

func TestTriangularDiscoversAllCombinations(t *testing.T) {
	s, err := New("triangular", Params{Tokens: testTokens(), Pairs: [][2]string{{"WETH", "USDC"}}})
	require.NoError(t, err)
	// Nil universe: the registry falls back to every token combination.
	require.Nil(t, s.Universe())
}
