package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/economics"
	"github.com/rosegoldcruz/atom-sub001/internal/metrics"
	"github.com/rosegoldcruz/atom-sub001/internal/notify"
	"github.com/rosegoldcruz/atom-sub001/internal/pricer"
	"github.com/rosegoldcruz/atom-sub001/internal/registry"
	"github.com/rosegoldcruz/atom-sub001/internal/scanner"
	"github.com/rosegoldcruz/atom-sub001/internal/strategy"
	"github.com/rosegoldcruz/atom-sub001/internal/supervisor"
)

// ScanMode runs a single scanner: acquire the stream lock, run discovery and
// the scan loop, serve metrics, and (when configured) the cold-storage
// archiver.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	tokens := a.tokens()
	venues := a.venues()
	pairs := a.pairs()

	strat, err := strategy.New(a.cfg.Scanner.Strategy, strategy.Params{
		Tokens:       tokens,
		Pairs:        pairs,
		MinSpreadBps: a.cfg.Scanner.MinSpreadBps,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	reg := registry.New(registry.Config{
		Scanner:     strat.Name(),
		Venues:      venues,
		Tokens:      tokens,
		Pairs:       strat.Universe(),
		Concurrency: a.cfg.Scanner.DiscoveryConcurrency,
	}, deps.Chain, deps.Snapshots, a.logger)

	prices := pricer.New(deps.Chain, a.logger)

	eval := economics.New(economics.Config{
		Model: economics.CostModel{
			GasUnits:        a.cfg.Scanner.GasUnits,
			FlashFeeBps:     a.cfg.Scanner.FlashFeeBps,
			NotionalUSD:     a.cfg.Scanner.TradeSizeUSD,
			MinNetProfitUSD: a.cfg.Scanner.MinNetProfitUSD,
		},
		NativeUSDFallback:    a.cfg.Chain.NativeUSDFallback,
		GasPriceFallbackGwei: a.cfg.Chain.GasPriceFallbackGwei,
	}, deps.Chain, a.logger)

	// One writer per stream: hold a refreshed lock for the scanner's
	// lifetime so a second instance of the same strategy cannot publish.
	lockKey := scanner.StreamName(strat.Name())
	lockTTL := 10 * a.cfg.Scanner.ScanInterval.Duration
	if lockTTL < 30*time.Second {
		lockTTL = 30 * time.Second
	}
	release, err := deps.Locks.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("app: stream %s already has a writer", scanner.StreamName(strat.Name()))
		}
		return fmt.Errorf("app: acquire stream lock: %w", err)
	}
	a.closers = append(a.closers, release)

	m := metrics.NewScannerMetrics()

	sc := scanner.New(scanner.Config{
		ScanInterval:      a.cfg.Scanner.ScanInterval.Duration,
		DiscoveryInterval: a.cfg.Scanner.DiscoveryInterval.Duration,
		LockKey:           lockKey,
		LockTTL:           lockTTL,
	}, strat, reg, prices, eval, deps.Sink, deps.Control, deps.Archive, deps.Locks, m, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sc.Run(gctx)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, a.cfg.Scanner.MetricsPort, m.Registry(), a.logger)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			deps.Archiver.RunLoop(gctx, a.cfg.S3.Interval.Duration, a.cfg.S3.MaxAge.Duration)
			return nil
		})
	}
	return g.Wait()
}

// TailMode follows the configured strategy's signal stream and logs every
// published signal, replaying recent archive history first when Postgres is
// enabled. This is the operator's read-only view of what a scanner publishes.
func (a *App) TailMode(ctx context.Context, deps *Dependencies) error {
	stream := scanner.StreamName(a.cfg.Scanner.Strategy)
	tailer := NewTailer(stream, a.cfg.Scanner.ScanInterval.Duration, deps.Signals, deps.Archive, a.logger)
	return tailer.Run(ctx)
}

// SuperviseMode runs the fleet supervisor, spawning one scan-mode child per
// enabled strategy.
func (a *App) SuperviseMode(ctx context.Context, deps *Dependencies) error {
	binary := a.cfg.Supervisor.ChildBinary
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("app: resolve own binary: %w", err)
		}
		binary = self
	}
	var args []string
	if a.cfg.Supervisor.ChildConfig != "" {
		args = append(args, "-config", a.cfg.Supervisor.ChildConfig)
	}

	m := metrics.NewSupervisorMetrics()

	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}

	sup := supervisor.New(supervisor.Config{
		Enabled:             a.cfg.Supervisor.Enabled,
		InitialBackoff:      a.cfg.Supervisor.InitialBackoff.Duration,
		MaxBackoff:          a.cfg.Supervisor.MaxBackoff.Duration,
		RestartWindow:       a.cfg.Supervisor.RestartWindow.Duration,
		MaxRestartsInWindow: a.cfg.Supervisor.MaxRestartsInWindow,
		GracePeriod:         a.cfg.Supervisor.GracePeriod.Duration,
		PollInterval:        a.cfg.Supervisor.PollInterval.Duration,
		// Children bind scanner_metrics_port + index so they never collide.
		ChildMetricsBasePort: a.cfg.Scanner.MetricsPort,
	}, binary, args, deps.Control, m, a.logger)
	if len(senders) > 0 {
		sup.WithNotifier(notify.New(senders, a.cfg.Notify.Events, a.logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, a.cfg.Supervisor.MetricsPort, m.Registry(), a.logger)
	})
	return g.Wait()
}

// tokens converts the configured token list into domain tokens.
func (a *App) tokens() []domain.Token {
	out := make([]domain.Token, 0, len(a.cfg.Tokens))
	for _, t := range a.cfg.Tokens {
		out = append(out, domain.Token{
			Address: common.HexToAddress(t.Address),
			Symbol:  t.Symbol,
			Stable:  t.Stable,
		})
	}
	return out
}

// venues converts the configured venue list into domain venues.
func (a *App) venues() []domain.Venue {
	out := make([]domain.Venue, 0, len(a.cfg.Venues))
	for _, v := range a.cfg.Venues {
		out = append(out, domain.Venue{
			Name:    v.Name,
			Factory: common.HexToAddress(v.Factory),
			FeeBps:  v.FeeBps,
		})
	}
	return out
}

// pairs converts the configured pair restriction list.
func (a *App) pairs() [][2]string {
	out := make([][2]string, 0, len(a.cfg.Pairs))
	for _, p := range a.cfg.Pairs {
		if len(p) == 2 {
			out = append(out, [2]string{p[0], p[1]})
		}
	}
	return out
}
