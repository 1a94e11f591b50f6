// Package strategy maps scanner strategy names to concrete search shapes.
// Each strategy owns its discovery universe and its qualification threshold;
// the scanner loop is identical across all of them.
package strategy

import (
	"context"
	"fmt"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/search"
)

// Strategy is one scan shape. Universe feeds the registry's discovery pass;
// Search runs once per tick against the live registry and pricer.
type Strategy interface {
	Name() string
	// Universe returns the unordered symbol pairs the registry should
	// discover. Nil means every combination of the configured tokens.
	Universe() [][2]string
	Search(ctx context.Context, src search.PairSource, prices search.EdgePricer) []domain.Candidate
}

// Params carries the configured inputs a strategy constructor needs.
type Params struct {
	Tokens []domain.Token
	// Pairs optionally restricts the universe to explicit symbol pairs.
	Pairs [][2]string
	// MinSpreadBps is the qualification threshold; zero selects the
	// strategy's own default.
	MinSpreadBps int64
}

// Per-strategy default thresholds, used when the config leaves
// min_spread_bps at zero.
const (
	DefaultCrossVenueSpreadBps = 35
	DefaultStablePegSpreadBps  = 10
	DefaultCycleBreakevenBps   = 30
)

type constructor func(Params) (Strategy, error)

var registry = map[string]constructor{
	"cross_venue": newCrossVenue,
	"stable_peg":  newStablePeg,
	"triangular":  newTriangular,
}

// New constructs the named strategy.
func New(name string, p Params) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("strategy: unknown strategy %q", name)
	}
	return ctor(p)
}

// Names returns every registered strategy name.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

// allPairs expands tokens into every unordered symbol combination.
func allPairs(tokens []domain.Token) [][2]string {
	out := make([][2]string, 0, len(tokens)*(len(tokens)-1)/2)
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			out = append(out, [2]string{tokens[i].Symbol, tokens[j].Symbol})
		}
	}
	return out
}
