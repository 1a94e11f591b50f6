// Package chain implements domain.ChainReader over a JSON-RPC endpoint using
// go-ethereum. All reads are plain eth_call / eth_gasPrice requests wrapped
// with a bounded per-call timeout so that a stalled node degrades one tick
// instead of hanging the scan loop.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// ClientConfig holds connection parameters for the chain client.
type ClientConfig struct {
	RPCURL      string
	CallTimeout time.Duration
	// OracleFeed is the Chainlink aggregator address for the native/USD
	// price. Empty disables the oracle (NativeUSD always errors, callers
	// fall back).
	OracleFeed common.Address
}

// Client wraps an ethclient.Client with per-call timeouts and the minimal
// ABI surface the scanners need.
type Client struct {
	ec          *ethclient.Client
	callTimeout time.Duration
	oracleFeed  common.Address
}

// Dial connects to the RPC endpoint and verifies connectivity with a chain
// ID request.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		ec:          ec,
		callTimeout: timeout,
		oracleFeed:  cfg.OracleFeed,
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := ec.ChainID(pingCtx); err != nil {
		ec.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}

	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}

// call performs a read-only contract call with the client's bounded timeout.
func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	out, err := c.ec.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GasPrice returns the node's suggested gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	price, err := c.ec.SuggestGasPrice(callCtx)
	if err != nil {
		return nil, fmt.Errorf("chain: suggest gas price: %w", err)
	}
	return price, nil
}

// Compile-time interface check.
var _ domain.ChainReader = (*Client)(nil)
