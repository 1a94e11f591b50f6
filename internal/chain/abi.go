package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the contracts the scanners read. Only view
// functions are included; the core never sends transactions.

const factoryABIJSON = `[
  {"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
   "name":"getPair","outputs":[{"name":"pair","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
  {"constant":true,"inputs":[],"name":"getReserves",
   "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],
   "stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"token0",
   "outputs":[{"name":"","type":"address"}],
   "stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"token1",
   "outputs":[{"name":"","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

const erc20ABIJSON = `[
  {"constant":true,"inputs":[],"name":"decimals",
   "outputs":[{"name":"","type":"uint8"}],
   "stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"symbol",
   "outputs":[{"name":"","type":"string"}],
   "stateMutability":"view","type":"function"}
]`

const aggregatorABIJSON = `[
  {"constant":true,"inputs":[],"name":"latestRoundData",
   "outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}],
   "stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"decimals",
   "outputs":[{"name":"","type":"uint8"}],
   "stateMutability":"view","type":"function"}
]`

var (
	factoryABI    = mustParseABI(factoryABIJSON)
	pairABI       = mustParseABI(pairABIJSON)
	erc20ABI      = mustParseABI(erc20ABIJSON)
	aggregatorABI = mustParseABI(aggregatorABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("chain: parse abi: " + err.Error())
	}
	return parsed
}
