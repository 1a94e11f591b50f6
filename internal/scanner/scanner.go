// Package scanner runs the per-strategy scan loop: poll control flags,
// refresh discovery when due, search for candidates, cost them, and publish
// the qualified signals. One scanner process owns exactly one stream.
package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/economics"
	"github.com/rosegoldcruz/atom-sub001/internal/metrics"
	"github.com/rosegoldcruz/atom-sub001/internal/registry"
	"github.com/rosegoldcruz/atom-sub001/internal/search"
	"github.com/rosegoldcruz/atom-sub001/internal/strategy"
)

// Config holds the loop timing and stream parameters for one scanner.
type Config struct {
	ScanInterval      time.Duration
	DiscoveryInterval time.Duration
	// LockKey is the distributed lock guarding this scanner's stream. Empty
	// disables lock refresh.
	LockKey string
	LockTTL time.Duration
}

// Scanner is one strategy's scan loop.
type Scanner struct {
	cfg      Config
	strat    strategy.Strategy
	reg      *registry.Registry
	pricer   search.EdgePricer
	eval     *economics.Evaluator
	sink     domain.SignalSink
	control  domain.ControlPlane
	archive  domain.SignalArchive // optional
	locks    domain.LockManager   // optional
	metrics  *metrics.ScannerMetrics
	logger   *slog.Logger
	stream   string
	lastDisc time.Time
}

// New assembles a Scanner. archive and locks may be nil.
func New(
	cfg Config,
	strat strategy.Strategy,
	reg *registry.Registry,
	pricer search.EdgePricer,
	eval *economics.Evaluator,
	sink domain.SignalSink,
	control domain.ControlPlane,
	archive domain.SignalArchive,
	locks domain.LockManager,
	m *metrics.ScannerMetrics,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		cfg:     cfg,
		strat:   strat,
		reg:     reg,
		pricer:  pricer,
		eval:    eval,
		sink:    sink,
		control: control,
		archive: archive,
		locks:   locks,
		metrics: m,
		logger:  logger.With(slog.String("component", "scanner"), slog.String("strategy", strat.Name())),
		stream:  StreamName(strat.Name()),
	}
}

// StreamName returns the signal stream for a strategy.
func StreamName(strategyName string) string {
	return "signals:" + strategyName
}

// Run executes the scan loop until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner started",
		slog.Duration("scan_interval", s.cfg.ScanInterval),
		slog.Duration("discovery_interval", s.cfg.DiscoveryInterval),
		slog.String("stream", s.stream))

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return ctx.Err()
		case <-time.After(s.cfg.ScanInterval):
		}
	}
}

// Tick runs one loop iteration. Exported so tests can drive the loop without
// real time.
func (s *Scanner) Tick(ctx context.Context) {
	// Control flags gate everything, including chain reads: a killed or
	// paused scanner stays warm but touches nothing.
	if s.control.Killed(ctx) {
		s.logger.Warn("kill switch active, idling")
		return
	}
	if s.control.Paused(ctx, s.strat.Name()) {
		s.logger.Info("scanner paused, idling")
		return
	}

	started := time.Now()

	if s.discoveryDue(started) {
		if err := s.reg.Discover(ctx); err != nil {
			s.metrics.ScanErrors.WithLabelValues("discovery").Inc()
			s.logger.Error("discovery pass failed", slog.String("error", err.Error()))
		} else {
			s.lastDisc = started
		}
		s.metrics.PairsRegistered.Set(float64(s.reg.Len()))
	}

	candidates := s.strat.Search(ctx, s.reg, s.pricer)
	s.metrics.CandidatesFound.Add(float64(len(candidates)))

	signals := make([]domain.Signal, 0, len(candidates))
	for _, c := range candidates {
		if sig, ok := s.eval.Evaluate(ctx, c); ok {
			signals = append(signals, sig)
		}
	}

	sort.Slice(signals, func(i, j int) bool {
		return signals[i].NetProfitUSD > signals[j].NetProfitUSD
	})

	published := 0
	for _, sig := range signals {
		if err := s.publish(ctx, sig); err != nil {
			s.metrics.ScanErrors.WithLabelValues("publish").Inc()
			s.logger.Error("publish failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}

	if len(signals) > 0 {
		s.metrics.BestNetProfitUSD.Set(signals[0].NetProfitUSD)
		s.logger.Info("signals published",
			slog.Int("candidates", len(candidates)),
			slog.Int("qualified", len(signals)),
			slog.Int("published", published),
			slog.Float64("best_net_usd", signals[0].NetProfitUSD))
	} else {
		s.metrics.BestNetProfitUSD.Set(0)
	}

	s.refreshLock(ctx)

	s.metrics.ScanDuration.Observe(time.Since(started).Seconds())
	s.metrics.LastScanUnix.Set(float64(time.Now().Unix()))
}

// discoveryDue reports whether a discovery pass should run this tick. The
// first tick always discovers.
func (s *Scanner) discoveryDue(now time.Time) bool {
	if s.lastDisc.IsZero() {
		return true
	}
	return now.Sub(s.lastDisc) >= s.cfg.DiscoveryInterval
}

// publish appends one signal to the stream and mirrors it to the archive.
// Archive failures are logged only; the stream is the delivery channel.
func (s *Scanner) publish(ctx context.Context, sig domain.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	if err := s.sink.Append(ctx, s.stream, payload); err != nil {
		return err
	}
	s.metrics.SignalsPublished.Inc()

	if s.archive != nil {
		if err := s.archive.Insert(ctx, sig); err != nil {
			s.metrics.ScanErrors.WithLabelValues("archive").Inc()
			s.logger.Warn("archive mirror failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// refreshLock extends the stream ownership lock, when one is configured.
func (s *Scanner) refreshLock(ctx context.Context) {
	if s.locks == nil || s.cfg.LockKey == "" {
		return
	}
	if err := s.locks.Refresh(ctx, s.cfg.LockKey, s.cfg.LockTTL); err != nil {
		s.metrics.ScanErrors.WithLabelValues("lock").Inc()
		s.logger.Error("stream lock refresh failed", slog.String("error", err.Error()))
	}
}
