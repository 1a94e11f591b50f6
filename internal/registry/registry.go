// Package registry discovers and caches the tradeable pairs across the
// configured venues for one scanner instance. The cache is additive within a
// run and is owned exclusively by the scanner process that produced it;
// other processes only see it through the read-only snapshot side channel.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// Config holds the static inputs for one registry instance.
type Config struct {
	// Scanner is the owning scanner's name, used for snapshot keys and logs.
	Scanner string
	Venues  []domain.Venue
	// Tokens is the configured universe. Decimals may be unresolved (zero);
	// discovery fills them in from the chain with a fallback default.
	Tokens []domain.Token
	// Pairs optionally restricts discovery to explicit unordered symbol
	// pairs. Empty means every unordered combination of Tokens.
	Pairs [][2]string
	// Concurrency bounds the fan-out of pool lookups in one pass.
	Concurrency int
}

// Registry is the per-scanner venue/pair cache.
type Registry struct {
	cfg       Config
	chain     domain.ChainReader
	snapshots domain.PairSnapshotStore
	logger    *slog.Logger

	mu    sync.Mutex
	pairs map[string]domain.Pair
	meta  map[string]domain.Token // symbol -> resolved token
}

// New creates a Registry. snapshots may be nil, in which case no
// observability snapshot is written.
func New(cfg Config, chain domain.ChainReader, snapshots domain.PairSnapshotStore, logger *slog.Logger) *Registry {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 8
	}
	return &Registry{
		cfg:       cfg,
		chain:     chain,
		snapshots: snapshots,
		logger:    logger.With(slog.String("component", "registry"), slog.String("scanner", cfg.Scanner)),
		pairs:     make(map[string]domain.Pair),
		meta:      make(map[string]domain.Token),
	}
}

// Discover runs one full discovery pass: for every unordered token pair in
// the universe and every venue, look up the pool and resolve token ordering
// and metadata. Individual lookup failures are logged and skipped; they
// never abort the pass. Discover returns an error only when the pass could
// not run at all.
func (r *Registry) Discover(ctx context.Context) error {
	universe := r.universe()
	if len(universe) == 0 {
		return errors.New("registry: empty token universe")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, venue := range r.cfg.Venues {
		for _, pair := range universe {
			venue, a, b := venue, pair[0], pair[1]
			g.Go(func() error {
				r.discoverOne(gctx, venue, a, b)
				return nil
			})
		}
	}
	// Tasks never return errors; Wait only propagates ctx cancellation.
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.persistSnapshot(ctx)

	r.logger.Info("discovery pass complete", slog.Int("pairs", r.Len()))
	return nil
}

// discoverOne resolves one (venue, tokenA, tokenB) pool. All failures are
// terminal for this lookup only.
func (r *Registry) discoverOne(ctx context.Context, venue domain.Venue, a, b domain.Token) {
	pool, err := r.chain.PairFor(ctx, venue.Factory, a.Address, b.Address)
	if err != nil {
		if errors.Is(err, domain.ErrPairNotFound) {
			r.logger.Debug("no pool",
				slog.String("venue", venue.Name),
				slog.String("pair", domain.PairKey(a.Symbol, b.Symbol)),
			)
		} else {
			r.logger.Warn("pool lookup failed",
				slog.String("venue", venue.Name),
				slog.String("pair", domain.PairKey(a.Symbol, b.Symbol)),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	token0Addr, err := r.chain.Token0(ctx, pool)
	if err != nil {
		r.logger.Warn("token0 lookup failed",
			slog.String("venue", venue.Name),
			slog.String("pool", pool.Hex()),
			slog.String("error", err.Error()),
		)
		return
	}

	// Orient the configured tokens by the pool's canonical ordering.
	t0, t1 := a, b
	if token0Addr == b.Address {
		t0, t1 = b, a
	} else if token0Addr != a.Address {
		r.logger.Warn("pool token0 matches neither configured token",
			slog.String("venue", venue.Name),
			slog.String("pool", pool.Hex()),
			slog.String("token0", token0Addr.Hex()),
		)
		return
	}

	p := domain.Pair{
		Venue:  venue.Name,
		FeeBps: venue.FeeBps,
		Pool:   pool,
		Token0: r.resolveToken(ctx, t0),
		Token1: r.resolveToken(ctx, t1),
	}

	r.mu.Lock()
	r.pairs[p.Key()] = p
	r.mu.Unlock()
}

// resolveToken fills in token decimals from the chain, caching the result
// for the scanner's lifetime. When the metadata call fails the default is
// 18 decimals, or 6 for configured stable assets.
func (r *Registry) resolveToken(ctx context.Context, t domain.Token) domain.Token {
	r.mu.Lock()
	if cached, ok := r.meta[t.Symbol]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	resolved := t

	// Cross-check the configured symbol against the on-chain one. A mismatch
	// almost always means a misconfigured token address, so it is worth a
	// warning even though the configured symbol stays authoritative.
	if onchain, err := r.chain.TokenSymbol(ctx, t.Address); err == nil && onchain != t.Symbol {
		r.logger.Warn("configured symbol does not match on-chain symbol",
			slog.String("configured", t.Symbol),
			slog.String("onchain", onchain),
			slog.String("address", t.Address.Hex()),
		)
	}

	if resolved.Decimals == 0 {
		dec, err := r.chain.TokenDecimals(ctx, t.Address)
		if err != nil {
			fallback := uint8(18)
			if t.Stable {
				fallback = 6
			}
			r.logger.Warn("decimals lookup failed, using fallback",
				slog.String("token", t.Symbol),
				slog.Int("fallback", int(fallback)),
				slog.String("error", err.Error()),
			)
			resolved.Decimals = fallback
		} else {
			resolved.Decimals = dec
		}
	}

	r.mu.Lock()
	r.meta[t.Symbol] = resolved
	r.mu.Unlock()
	return resolved
}

// persistSnapshot writes the pair map to the observability side channel.
// Failures are logged only; the snapshot is never load-bearing.
func (r *Registry) persistSnapshot(ctx context.Context) {
	if r.snapshots == nil {
		return
	}
	snap := make(map[string]string, r.Len())
	r.mu.Lock()
	for key, p := range r.pairs {
		snap[key] = p.Pool.Hex()
	}
	r.mu.Unlock()

	if err := r.snapshots.SaveSnapshot(ctx, r.cfg.Scanner, snap); err != nil {
		r.logger.Warn("snapshot persist failed", slog.String("error", err.Error()))
	}
}

// universe returns the unordered token pairs to discover.
func (r *Registry) universe() [][2]domain.Token {
	bySymbol := make(map[string]domain.Token, len(r.cfg.Tokens))
	for _, t := range r.cfg.Tokens {
		bySymbol[t.Symbol] = t
	}

	if len(r.cfg.Pairs) > 0 {
		out := make([][2]domain.Token, 0, len(r.cfg.Pairs))
		for _, p := range r.cfg.Pairs {
			a, okA := bySymbol[p[0]]
			b, okB := bySymbol[p[1]]
			if !okA || !okB {
				r.logger.Warn("configured pair references unknown token",
					slog.String("pair", p[0]+"/"+p[1]))
				continue
			}
			out = append(out, [2]domain.Token{a, b})
		}
		return out
	}

	tokens := r.cfg.Tokens
	out := make([][2]domain.Token, 0, len(tokens)*(len(tokens)-1)/2)
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			out = append(out, [2]domain.Token{tokens[i], tokens[j]})
		}
	}
	return out
}

// Pairs returns all cached pairs.
func (r *Registry) Pairs() []domain.Pair {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	return out
}

// PairsFor returns every venue's pool for the unordered symbol pair (a, b).
func (r *Registry) PairsFor(a, b string) []domain.Pair {
	key := domain.PairKey(a, b)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Pair
	for _, p := range r.pairs {
		if domain.PairKey(p.Token0.Symbol, p.Token1.Symbol) == key {
			out = append(out, p)
		}
	}
	return out
}

// Token returns the resolved token for a configured symbol.
func (r *Registry) Token(symbol string) (domain.Token, bool) {
	r.mu.Lock()
	if t, ok := r.meta[symbol]; ok {
		r.mu.Unlock()
		return t, true
	}
	r.mu.Unlock()
	for _, t := range r.cfg.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return domain.Token{}, false
}

// Tokens returns the configured universe symbols in configuration order.
func (r *Registry) Tokens() []string {
	out := make([]string, 0, len(r.cfg.Tokens))
	for _, t := range r.cfg.Tokens {
		out = append(out, t.Symbol)
	}
	return out
}

// Len returns the number of cached pairs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}
