// Package pricer converts raw pool reserves into normalized, fee-adjusted
// directed prices. An edge that cannot be priced this tick is reported as
// unavailable (ok=false), never as an error, so one bad pool cannot block a
// scan pass.
package pricer

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// Pricer reads reserves through a ChainReader and prices pairs.
type Pricer struct {
	chain  domain.ChainReader
	logger *slog.Logger
}

// New creates a Pricer.
func New(chain domain.ChainReader, logger *slog.Logger) *Pricer {
	return &Pricer{
		chain:  chain,
		logger: logger.With(slog.String("component", "pricer")),
	}
}

// Price returns the fee-adjusted price of src in terms of dst on the given
// pair: how many dst one src buys after the venue's swap fee. The boolean is
// false when the edge is unavailable (zero reserves, missing metadata, or a
// failed reserve read).
func (p *Pricer) Price(ctx context.Context, pair domain.Pair, src, dst domain.Token) (domain.PriceEdge, bool) {
	if !pair.Has(src.Address) || !pair.Has(dst.Address) || src.Address == dst.Address {
		return domain.PriceEdge{}, false
	}
	if pair.Token0.Decimals == 0 && pair.Token1.Decimals == 0 {
		// Metadata never resolved; price would be meaningless.
		return domain.PriceEdge{}, false
	}

	r0, r1, err := p.chain.Reserves(ctx, pair.Pool)
	if err != nil {
		p.logger.Debug("reserve read failed",
			slog.String("pair", pair.Key()),
			slog.String("error", err.Error()),
		)
		return domain.PriceEdge{}, false
	}
	if r0 == nil || r1 == nil || r0.Sign() == 0 || r1.Sign() == 0 {
		return domain.PriceEdge{}, false
	}

	// Orient reserves so srcReserve belongs to src.
	srcReserve, dstReserve := r0, r1
	srcDec, dstDec := pair.Token0.Decimals, pair.Token1.Decimals
	if src.Address == pair.Token1.Address {
		srcReserve, dstReserve = r1, r0
		srcDec, dstDec = pair.Token1.Decimals, pair.Token0.Decimals
	}

	raw := spotRatio(srcReserve, dstReserve, srcDec, dstDec)
	if raw <= 0 {
		return domain.PriceEdge{}, false
	}

	adjusted := raw * float64(10000-pair.FeeBps) / 10000

	return domain.PriceEdge{
		Venue:  pair.Venue,
		Base:   src.Symbol,
		Quote:  dst.Symbol,
		Raw:    raw,
		Price:  adjusted,
		FeeBps: pair.FeeBps,
	}, true
}

// spotRatio computes dstReserve/srcReserve with both reserves normalized by
// their decimal precision. big.Float keeps precision for deep pools before
// the final float64 conversion.
func spotRatio(srcReserve, dstReserve *big.Int, srcDec, dstDec uint8) float64 {
	src := new(big.Float).Quo(
		new(big.Float).SetInt(srcReserve),
		new(big.Float).SetInt(pow10(int(srcDec))),
	)
	dst := new(big.Float).Quo(
		new(big.Float).SetInt(dstReserve),
		new(big.Float).SetInt(pow10(int(dstDec))),
	)
	if src.Sign() == 0 {
		return 0
	}
	ratio, _ := new(big.Float).Quo(dst, src).Float64()
	return ratio
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
