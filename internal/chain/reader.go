package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// PairFor resolves the pool address for (tokenA, tokenB) on a V2-style
// factory. The factory returns the zero address when no pool exists, which
// is surfaced as domain.ErrPairNotFound.
func (c *Client) PairFor(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	data, err := factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: pack getPair: %w", err)
	}

	out, err := c.call(ctx, factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: getPair %s/%s on %s: %w", tokenA.Hex(), tokenB.Hex(), factory.Hex(), err)
	}

	res, err := factoryABI.Unpack("getPair", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: unpack getPair: %w", err)
	}
	pool := res[0].(common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, domain.ErrPairNotFound
	}
	return pool, nil
}

// Reserves reads the pool's current reserves in token0/token1 order.
func (c *Client) Reserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("chain: pack getReserves: %w", err)
	}

	out, err := c.call(ctx, pool, data)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: getReserves %s: %w", pool.Hex(), err)
	}

	res, err := pairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: unpack getReserves: %w", err)
	}
	return res[0].(*big.Int), res[1].(*big.Int), nil
}

// Token0 returns the pool's canonical first token address.
func (c *Client) Token0(ctx context.Context, pool common.Address) (common.Address, error) {
	data, err := pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: pack token0: %w", err)
	}

	out, err := c.call(ctx, pool, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: token0 %s: %w", pool.Hex(), err)
	}

	res, err := pairABI.Unpack("token0", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: unpack token0: %w", err)
	}
	return res[0].(common.Address), nil
}

// TokenDecimals reads ERC20 decimals.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("chain: pack decimals: %w", err)
	}

	out, err := c.call(ctx, token, data)
	if err != nil {
		return 0, fmt.Errorf("chain: decimals %s: %w", token.Hex(), err)
	}

	res, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("chain: unpack decimals: %w", err)
	}
	return res[0].(uint8), nil
}

// TokenSymbol reads the ERC20 symbol.
func (c *Client) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	data, err := erc20ABI.Pack("symbol")
	if err != nil {
		return "", fmt.Errorf("chain: pack symbol: %w", err)
	}

	out, err := c.call(ctx, token, data)
	if err != nil {
		return "", fmt.Errorf("chain: symbol %s: %w", token.Hex(), err)
	}

	res, err := erc20ABI.Unpack("symbol", out)
	if err != nil {
		return "", fmt.Errorf("chain: unpack symbol: %w", err)
	}
	return res[0].(string), nil
}
