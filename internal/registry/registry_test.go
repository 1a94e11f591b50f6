package registry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rosegoldcruz/atom-sub001/internal/chain/stub"
	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

var (
	factoryA = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	wethAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	usdcAddr = common.HexToAddress("0x0000000000000000000000000000000000000002")
	daiAddr  = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func testUniverse() ([]domain.Venue, []domain.Token) {
	venues := []domain.Venue{{Name: "quickswap", Factory: factoryA, FeeBps: 30}}
	tokens := []domain.Token{
		{Address: wethAddr, Symbol: "WETH"},
		{Address: usdcAddr, Symbol: "USDC", Stable: true},
		{Address: daiAddr, Symbol: "DAI", Stable: true},
	}
	return venues, tokens
}

func seedChain() *stub.Reader {
	reader := stub.NewReader()
	reader.AddToken(wethAddr, stub.TokenMeta{Decimals: 18, Symbol: "WETH"})
	reader.AddToken(usdcAddr, stub.TokenMeta{Decimals: 6, Symbol: "USDC"})
	reader.AddToken(daiAddr, stub.TokenMeta{Decimals: 18, Symbol: "DAI"})

	reader.AddPool(factoryA, stub.Pool{
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Token0:   wethAddr,
		Token1:   usdcAddr,
		Reserve0: big.NewInt(1),
		Reserve1: big.NewInt(1),
	})
	reader.AddPool(factoryA, stub.Pool{
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000a2"),
		Token0:   daiAddr,
		Token1:   usdcAddr,
		Reserve0: big.NewInt(1),
		Reserve1: big.NewInt(1),
	})
	return reader
}

func newLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDiscoverFindsPools(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	// WETH/USDC and DAI/USDC exist; WETH/DAI does not.
	require.Equal(t, 2, reg.Len())
	require.Len(t, reg.PairsFor("WETH", "USDC"), 1)
	require.Len(t, reg.PairsFor("USDC", "DAI"), 1)
	require.Empty(t, reg.PairsFor("WETH", "DAI"))
}

func TestDiscoverResolvesDecimals(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	usdc, ok := reg.Token("USDC")
	require.True(t, ok)
	require.Equal(t, uint8(6), usdc.Decimals)

	pairs := reg.PairsFor("WETH", "USDC")
	require.Len(t, pairs, 1)
	require.Equal(t, uint8(18), pairs[0].Token0.Decimals)
	require.Equal(t, uint8(6), pairs[0].Token1.Decimals)
}

// One failed lookup never blocks the rest of the pass.
func TestDiscoverToleratesPartialFailure(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()
	reader.FailPair(factoryA, wethAddr, usdcAddr, errors.New("rpc timeout"))

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	require.Equal(t, 1, reg.Len())
	require.Len(t, reg.PairsFor("USDC", "DAI"), 1)
}

func TestDiscoverDecimalsFallback(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()
	reader.FailMetadata(wethAddr, errors.New("rpc timeout"))
	reader.FailMetadata(usdcAddr, errors.New("rpc timeout"))

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	pairs := reg.PairsFor("WETH", "USDC")
	require.Len(t, pairs, 1)
	// Fallbacks: 18 for ordinary tokens, 6 for configured stables.
	require.Equal(t, uint8(18), pairs[0].Token0.Decimals)
	require.Equal(t, uint8(6), pairs[0].Token1.Decimals)
}

func TestDiscoverWarnsOnSymbolMismatch(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()
	// The address configured as WETH reports a different on-chain symbol,
	// which is the signature of a mistyped token address.
	reader.AddToken(wethAddr, stub.TokenMeta{Decimals: 18, Symbol: "WMATIC"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// Concurrency 1 keeps the log buffer race-free.
	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens, Concurrency: 1}, reader, nil, logger)
	require.NoError(t, reg.Discover(context.Background()))

	// The configured symbol stays authoritative; the mismatch is only logged.
	require.Len(t, reg.PairsFor("WETH", "USDC"), 1)
	require.Contains(t, buf.String(), "does not match on-chain symbol")
	require.Contains(t, buf.String(), "WMATIC")
}

func TestDiscoverRespectsPairRestriction(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()

	reg := New(Config{
		Scanner: "stable_peg",
		Venues:  venues,
		Tokens:  tokens,
		Pairs:   [][2]string{{"USDC", "DAI"}},
	}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	require.Equal(t, 1, reg.Len())
	require.Empty(t, reg.PairsFor("WETH", "USDC"))
}

// Repeated discovery is additive: a pool that disappears from a later pass
// is kept.
func TestDiscoverIsAdditive(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, nil, newLogger())
	require.NoError(t, reg.Discover(context.Background()))
	require.Equal(t, 2, reg.Len())

	reader.FailPair(factoryA, wethAddr, usdcAddr, domain.ErrPairNotFound)
	require.NoError(t, reg.Discover(context.Background()))
	require.Equal(t, 2, reg.Len())
}

type snapshotRecorder struct {
	scanner string
	pairs   map[string]string
}

func (s *snapshotRecorder) SaveSnapshot(_ context.Context, scanner string, pairs map[string]string) error {
	s.scanner = scanner
	s.pairs = pairs
	return nil
}

func TestDiscoverWritesSnapshot(t *testing.T) {
	venues, tokens := testUniverse()
	reader := seedChain()
	rec := &snapshotRecorder{}

	reg := New(Config{Scanner: "cross_venue", Venues: venues, Tokens: tokens}, reader, rec, newLogger())
	require.NoError(t, reg.Discover(context.Background()))

	require.Equal(t, "cross_venue", rec.scanner)
	require.Len(t, rec.pairs, 2)
}
