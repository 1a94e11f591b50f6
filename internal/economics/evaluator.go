// Package economics costs opportunity candidates: gas, flash-loan/protocol
// fees, and net profit. Candidates that do not clear the configured minimum
// net profit are discarded silently; most candidates are expected to fail
// this test.
package economics

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// CostModel holds the per-strategy economics constants.
type CostModel struct {
	// GasUnits is the fixed gas estimate for executing this strategy.
	GasUnits uint64
	// FlashFeeBps is the flash-loan/protocol fee rate on the notional.
	FlashFeeBps int64
	// NotionalUSD is the trade size candidates are costed at.
	NotionalUSD float64
	// MinNetProfitUSD is the inclusive qualification threshold.
	MinNetProfitUSD float64
}

// Evaluator qualifies candidates economically. The same inputs always yield
// the same signal: the only non-candidate inputs are the gas price, the
// oracle answer, and the clock, all read per call.
type Evaluator struct {
	chain  domain.ChainReader
	model  CostModel
	logger *slog.Logger

	// nativeUSDFallback substitutes for the oracle on failure.
	nativeUSDFallback float64
	// gasPriceFallbackWei substitutes for a failed gas price read.
	gasPriceFallbackWei *big.Int

	now   func() time.Time
	newID func() string
}

// Config holds the evaluator's construction parameters.
type Config struct {
	Model                CostModel
	NativeUSDFallback    float64
	GasPriceFallbackGwei float64
}

// New creates an Evaluator.
func New(cfg Config, chain domain.ChainReader, logger *slog.Logger) *Evaluator {
	fallbackWei := new(big.Int).SetInt64(int64(cfg.GasPriceFallbackGwei * 1e9))
	return &Evaluator{
		chain:               chain,
		model:               cfg.Model,
		logger:              logger.With(slog.String("component", "economics")),
		nativeUSDFallback:   cfg.NativeUSDFallback,
		gasPriceFallbackWei: fallbackWei,
		now:                 time.Now,
		newID:               func() string { return uuid.New().String() },
	}
}

// WithClock overrides the evaluator's clock and ID source. Used by tests to
// pin timestamps.
func (e *Evaluator) WithClock(now func() time.Time, newID func() string) *Evaluator {
	e.now = now
	e.newID = newID
	return e
}

// Evaluate costs one candidate. It returns ok=false when the candidate does
// not clear the minimum net profit; that is the expected common case, not an
// error.
func (e *Evaluator) Evaluate(ctx context.Context, c domain.Candidate) (domain.Signal, bool) {
	gross := e.model.NotionalUSD * float64(c.SpreadBps) / 10000

	gasUSD := e.gasCostUSD(ctx)
	feeUSD := e.model.NotionalUSD * float64(e.model.FlashFeeBps) / 10000
	net := gross - gasUSD - feeUSD

	if net < e.model.MinNetProfitUSD {
		return domain.Signal{}, false
	}

	return domain.Signal{
		ID:             e.newID(),
		Strategy:       c.Strategy,
		Kind:           c.Kind,
		Route:          c.Route,
		Tokens:         c.Tokens,
		Venues:         c.Venues,
		Prices:         c.Prices,
		SpreadBps:      c.SpreadBps,
		NotionalUSD:    e.model.NotionalUSD,
		GrossProfitUSD: gross,
		GasCostUSD:     gasUSD,
		FlashFeeUSD:    feeUSD,
		NetProfitUSD:   net,
		Timestamp:      e.now().Unix(),
	}, true
}

// gasCostUSD prices the strategy's gas estimate in USD. Both the gas price
// and the oracle degrade to conservative fallbacks rather than failing the
// scan.
func (e *Evaluator) gasCostUSD(ctx context.Context) float64 {
	gasPrice, err := e.chain.GasPrice(ctx)
	if err != nil {
		e.logger.Warn("gas price read failed, using fallback",
			slog.String("error", err.Error()))
		gasPrice = e.gasPriceFallbackWei
	}

	nativeUSD, err := e.chain.NativeUSD(ctx)
	if err != nil {
		e.logger.Warn("oracle read failed, using fallback",
			slog.Float64("fallback_usd", e.nativeUSDFallback),
			slog.String("error", err.Error()))
		nativeUSD = e.nativeUSDFallback
	}

	// gas units × gas price (wei) → native, then → USD.
	weiCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(e.model.GasUnits))
	native, _ := new(big.Float).Quo(
		new(big.Float).SetInt(weiCost),
		big.NewFloat(1e18),
	).Float64()
	return native * nativeUSD
}

// Model exposes the evaluator's cost constants for logging and metrics.
func (e *Evaluator) Model() CostModel {
	return e.model
}
