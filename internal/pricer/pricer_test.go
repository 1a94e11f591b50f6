package pricer

import (
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
	wethAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	usdcAddr = common.HexToAddress("0x0000000000000000000000000000000000000002")
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func testTokens() (weth, usdc domain.Token) {
	weth = domain.Token{Address: wethAddr, Symbol: "WETH", Decimals: 18}
	usdc = domain.Token{Address: usdcAddr, Symbol: "USDC", Decimals: 6, Stable: true}
	return weth, usdc
}

// testPair is a WETH/USDC pool priced at 2000 USDC per WETH: 1000 WETH
// against 2,000,000 USDC.
func testPair(feeBps int64) (domain.Pair, *stub.Reader) {
	weth, usdc := testTokens()

	reader := stub.NewReader()
	reader.AddPool(common.Address{}, stub.Pool{
		Address:  poolAddr,
		Token0:   wethAddr,
		Token1:   usdcAddr,
		Reserve0: new(big.Int).Mul(big.NewInt(1000), exp10(18)),
		Reserve1: new(big.Int).Mul(big.NewInt(2_000_000), exp10(6)),
	})

	return domain.Pair{
		Venue:  "quickswap",
		FeeBps: feeBps,
		Pool:   poolAddr,
		Token0: weth,
		Token1: usdc,
	}, reader
}

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func newLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPriceNormalizesDecimals(t *testing.T) {
	pair, reader := testPair(0)
	weth, usdc := testTokens()
	p := New(reader, newLogger())

	edge, ok := p.Price(context.Background(), pair, weth, usdc)
	require.True(t, ok)
	require.InEpsilon(t, 2000.0, edge.Raw, 1e-9)
	require.InEpsilon(t, 2000.0, edge.Price, 1e-9) // zero fee
	require.Equal(t, "WETH", edge.Base)
	require.Equal(t, "USDC", edge.Quote)
}

func TestPriceAppliesFee(t *testing.T) {
	pair, reader := testPair(30)
	weth, usdc := testTokens()
	p := New(reader, newLogger())

	edge, ok := p.Price(context.Background(), pair, weth, usdc)
	require.True(t, ok)
	require.InEpsilon(t, 2000.0*0.997, edge.Price, 1e-9)
}

// A round trip across the same pool multiplies out to (1-f)^2, not 1: the
// fee is charged in both directions.
func TestPriceRoundTripIsFeeSquared(t *testing.T) {
	pair, reader := testPair(30)
	weth, usdc := testTokens()
	p := New(reader, newLogger())

	ab, ok := p.Price(context.Background(), pair, weth, usdc)
	require.True(t, ok)
	ba, ok := p.Price(context.Background(), pair, usdc, weth)
	require.True(t, ok)

	require.InEpsilon(t, 0.997*0.997, ab.Price*ba.Price, 1e-9)
}

func TestPriceZeroReservesUnavailable(t *testing.T) {
	pair, reader := testPair(30)
	weth, usdc := testTokens()
	reader.SetReserves(poolAddr, big.NewInt(0), new(big.Int).Mul(big.NewInt(2_000_000), exp10(6)))
	p := New(reader, newLogger())

	_, ok := p.Price(context.Background(), pair, weth, usdc)
	require.False(t, ok)
}

func TestPriceReserveReadFailureUnavailable(t *testing.T) {
	pair, reader := testPair(30)
	weth, usdc := testTokens()
	reader.FailReserves(poolAddr, errors.New("node timeout"))
	p := New(reader, newLogger())

	_, ok := p.Price(context.Background(), pair, weth, usdc)
	require.False(t, ok)
}

func TestPriceRejectsNonMemberToken(t *testing.T) {
	pair, reader := testPair(30)
	weth, _ := testTokens()
	other := domain.Token{
		Address: common.HexToAddress("0x0000000000000000000000000000000000000099"),
		Symbol:  "DAI", Decimals: 18,
	}
	p := New(reader, newLogger())

	_, ok := p.Price(context.Background(), pair, weth, other)
	require.False(t, ok)
}

func TestPriceRejectsUnresolvedMetadata(t *testing.T) {
	pair, reader := testPair(30)
	weth, usdc := testTokens()
	pair.Token0.Decimals = 0
	pair.Token1.Decimals = 0
	p := New(reader, newLogger())

	_, ok := p.Price(context.Background(), pair, weth, usdc)
	require.False(t, ok)
}
