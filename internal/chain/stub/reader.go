// Package stub provides an in-memory domain.ChainReader for tests. Pools,
// token metadata, gas price, and oracle answers are configured up front;
// individual lookups can be forced to fail to exercise partial-failure
// paths.
package stub

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// Pool is the stored state for one fake pool.
type Pool struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// TokenMeta is the stored metadata for one fake token.
type TokenMeta struct {
	Decimals uint8
	Symbol   string
}

// Reader is a configurable in-memory chain. The zero value is usable.
type Reader struct {
	mu sync.Mutex

	pools  map[string]Pool      // pairKey(factory,a,b) -> pool
	byAddr map[common.Address]Pool
	tokens map[common.Address]TokenMeta

	gasPriceWei *big.Int
	nativeUSD   float64

	// FailPairs / FailMeta / FailReserves force errors for specific
	// addresses.
	failPairs    map[string]error
	failMeta     map[common.Address]error
	failReserves map[common.Address]error
	oracleErr    error
	gasErr       error

	calls int
}

// NewReader returns an empty stub with a 30 gwei gas price and a $2000
// native price.
func NewReader() *Reader {
	return &Reader{
		pools:        make(map[string]Pool),
		byAddr:       make(map[common.Address]Pool),
		tokens:       make(map[common.Address]TokenMeta),
		failPairs:    make(map[string]error),
		failMeta:     make(map[common.Address]error),
		failReserves: make(map[common.Address]error),
		gasPriceWei:  big.NewInt(30_000_000_000),
		nativeUSD:    2000.0,
	}
}

func pairKey(factory, a, b common.Address) string {
	// Unordered: factory getPair is symmetric.
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return factory.Hex() + ":" + a.Hex() + ":" + b.Hex()
}

// AddPool registers a pool on a factory.
func (r *Reader) AddPool(factory common.Address, p Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[pairKey(factory, p.Token0, p.Token1)] = p
	r.byAddr[p.Address] = p
}

// SetReserves replaces a pool's reserves.
func (r *Reader) SetReserves(pool common.Address, r0, r1 *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byAddr[pool]
	p.Reserve0, p.Reserve1 = r0, r1
	r.byAddr[pool] = p
}

// AddToken registers token metadata.
func (r *Reader) AddToken(addr common.Address, meta TokenMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[addr] = meta
}

// FailPair makes PairFor fail for one (factory, a, b) lookup.
func (r *Reader) FailPair(factory, a, b common.Address, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPairs[pairKey(factory, a, b)] = err
}

// FailMetadata makes TokenDecimals/TokenSymbol fail for a token.
func (r *Reader) FailMetadata(token common.Address, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failMeta[token] = err
}

// FailReserves makes Reserves fail for a pool.
func (r *Reader) FailReserves(pool common.Address, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failReserves[pool] = err
}

// SetGasPrice configures the suggested gas price in wei.
func (r *Reader) SetGasPrice(wei *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gasPriceWei = wei
}

// SetNativeUSD configures the oracle answer.
func (r *Reader) SetNativeUSD(usd float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nativeUSD = usd
}

// FailOracle makes NativeUSD fail.
func (r *Reader) FailOracle(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oracleErr = err
}

// Calls returns the total number of chain reads observed. Used to assert
// that kill-switched scanners perform no on-chain reads.
func (r *Reader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Reader) PairFor(_ context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	key := pairKey(factory, tokenA, tokenB)
	if err, ok := r.failPairs[key]; ok {
		return common.Address{}, err
	}
	p, ok := r.pools[key]
	if !ok {
		return common.Address{}, domain.ErrPairNotFound
	}
	return p.Address, nil
}

func (r *Reader) Reserves(_ context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err, ok := r.failReserves[pool]; ok {
		return nil, nil, err
	}
	p, ok := r.byAddr[pool]
	if !ok {
		return nil, nil, errors.New("stub: unknown pool")
	}
	return new(big.Int).Set(p.Reserve0), new(big.Int).Set(p.Reserve1), nil
}

func (r *Reader) Token0(_ context.Context, pool common.Address) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.byAddr[pool]
	if !ok {
		return common.Address{}, errors.New("stub: unknown pool")
	}
	return p.Token0, nil
}

func (r *Reader) TokenDecimals(_ context.Context, token common.Address) (uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err, ok := r.failMeta[token]; ok {
		return 0, err
	}
	meta, ok := r.tokens[token]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return meta.Decimals, nil
}

func (r *Reader) TokenSymbol(_ context.Context, token common.Address) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err, ok := r.failMeta[token]; ok {
		return "", err
	}
	meta, ok := r.tokens[token]
	if !ok {
		return "", domain.ErrNotFound
	}
	return meta.Symbol, nil
}

func (r *Reader) GasPrice(_ context.Context) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.gasErr != nil {
		return nil, r.gasErr
	}
	return new(big.Int).Set(r.gasPriceWei), nil
}

// FailGasPrice makes GasPrice fail.
func (r *Reader) FailGasPrice(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gasErr = err
}

func (r *Reader) NativeUSD(_ context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.oracleErr != nil {
		return 0, r.oracleErr
	}
	return r.nativeUSD, nil
}

// Compile-time interface check.
var _ domain.ChainReader = (*Reader)(nil)
