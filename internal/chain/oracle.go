package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// NativeUSD reads the native-token/USD price from the configured Chainlink
// aggregator feed. Chainlink USD feeds report with 8 decimals; the feed's
// own decimals() is consulted so non-standard aggregators still work.
func (c *Client) NativeUSD(ctx context.Context) (float64, error) {
	if c.oracleFeed == (common.Address{}) {
		return 0, domain.ErrOracleUnavailable
	}

	data, err := aggregatorABI.Pack("latestRoundData")
	if err != nil {
		return 0, fmt.Errorf("chain: pack latestRoundData: %w", err)
	}

	out, err := c.call(ctx, c.oracleFeed, data)
	if err != nil {
		return 0, fmt.Errorf("%w: latestRoundData %s: %v", domain.ErrOracleUnavailable, c.oracleFeed.Hex(), err)
	}

	res, err := aggregatorABI.Unpack("latestRoundData", out)
	if err != nil {
		return 0, fmt.Errorf("%w: unpack latestRoundData: %v", domain.ErrOracleUnavailable, err)
	}
	answer := res[1].(*big.Int)
	if answer.Sign() <= 0 {
		return 0, fmt.Errorf("%w: non-positive answer %s", domain.ErrOracleUnavailable, answer)
	}

	decimals := uint8(8)
	if d, err := c.feedDecimals(ctx); err == nil {
		decimals = d
	}

	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(answer),
		new(big.Float).SetInt(pow10(int(decimals))),
	).Float64()
	return price, nil
}

func (c *Client) feedDecimals(ctx context.Context) (uint8, error) {
	data, err := aggregatorABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	out, err := c.call(ctx, c.oracleFeed, data)
	if err != nil {
		return 0, err
	}
	res, err := aggregatorABI.Unpack("decimals", out)
	if err != nil {
		return 0, err
	}
	return res[0].(uint8), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
