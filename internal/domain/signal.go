package domain

import "time"

// CandidateKind describes the geometric shape of a detected inefficiency.
type CandidateKind string

const (
	CandidatePairwise CandidateKind = "pairwise"
	CandidateCycle    CandidateKind = "cycle"
)

// Candidate is a geometrically valid opportunity emitted by the search
// engine, before economic qualification. SpreadBps is computed with the
// shared rounding rule: integer basis points, floored toward zero.
type Candidate struct {
	Strategy string
	Kind     CandidateKind
	// Route lists pair keys in traversal order, e.g.
	// ["quickswap:USDC/USDT", "sushiswap:USDC/USDT"] for a pairwise spread
	// or the hop pairs for a cycle.
	Route  []string
	Tokens []string
	Venues []string
	// Prices holds the raw observed fee-adjusted price per edge, in route
	// order. For pairwise spreads this is [buy, sell].
	Prices    []float64
	SpreadBps int64
}

// Signal is an immutable record of an economically qualified opportunity.
// Created once per detection and appended once to the scanner's stream;
// never mutated afterwards.
type Signal struct {
	ID        string        `json:"id"`
	Strategy  string        `json:"strategy"`
	Kind      CandidateKind `json:"kind"`
	Route     []string      `json:"route"`
	Tokens    []string      `json:"tokens"`
	Venues    []string      `json:"venues"`
	Prices    []float64     `json:"prices"`
	SpreadBps int64         `json:"spread_bps"`

	NotionalUSD    float64 `json:"notional_usd"`
	GrossProfitUSD float64 `json:"gross_profit_usd"`
	GasCostUSD     float64 `json:"gas_cost_usd"`
	FlashFeeUSD    float64 `json:"flash_fee_usd"`
	NetProfitUSD   float64 `json:"net_profit_usd"`

	// Timestamp is the unix detection time in seconds.
	Timestamp int64 `json:"timestamp"`
}

// DetectedAt returns the detection time as a time.Time.
func (s Signal) DetectedAt() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// StreamMessage is one raw entry read back from a signal stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}
