// Package supervisor owns the scanner fleet: it spawns one child process per
// enabled strategy, streams their output, restarts crashed children with
// jittered exponential backoff, and enforces the kill switch and per-scanner
// pause flags across the whole fleet.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/metrics"
	"github.com/rosegoldcruz/atom-sub001/internal/notify"
)

// State is a scanner's position in the supervision lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateBackoff      State = "backoff"
	StateDisabled     State = "disabled"
	StateKillSwitched State = "kill_switched"
)

// Config holds the supervision parameters.
type Config struct {
	// Enabled is the scanner allowlist, started in order.
	Enabled             []string
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	RestartWindow       time.Duration
	MaxRestartsInWindow int
	GracePeriod         time.Duration
	PollInterval        time.Duration
	// ChildMetricsBasePort assigns each child base+index so fleet members
	// on one host never collide. Zero disables child metrics endpoints.
	ChildMetricsBasePort int
}

// runner abstracts a live child so tests can supervise fakes.
type runner interface {
	Exited() <-chan error
	Uptime() time.Duration
	Stop(grace time.Duration)
}

// spawnFunc starts a child for the named scanner.
type spawnFunc func(scanner string) (runner, error)

// child is the supervisor's book-keeping for one scanner.
type child struct {
	name    string
	state   State
	worker  runner
	backoff *backoff
	// resumeAt gates the Backoff → Starting transition.
	resumeAt time.Time
	// exits holds recent exit times for restart-storm detection.
	exits    []time.Time
	restarts int
}

// Supervisor reconciles desired fleet state against running children. All
// child state is touched only by the sequential reconcile loop, so no
// locking is needed.
type Supervisor struct {
	cfg      Config
	control  domain.ControlPlane
	metrics  *metrics.SupervisorMetrics
	logger   *slog.Logger
	spawn    spawnFunc
	children []*child
	now      func() time.Time

	// notifier may be nil; alerts are best effort.
	notifier *notify.Notifier
	// killSeen tracks the kill switch edge so the alert fires once per
	// transition rather than every poll.
	killSeen bool
}

// WithNotifier attaches an operator alert channel.
func (s *Supervisor) WithNotifier(n *notify.Notifier) *Supervisor {
	s.notifier = n
	return s
}

// alert delivers a fleet event to the operator channels, if configured.
func (s *Supervisor) alert(event, title, message string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("alert delivery failed", slog.String("error", err.Error()))
	}
}

// New assembles a Supervisor that spawns real worker processes running
// `binary args... ` with ATOM_SCANNER_STRATEGY set per child.
func New(cfg Config, binary string, args []string, control domain.ControlPlane, m *metrics.SupervisorMetrics, logger *slog.Logger) *Supervisor {
	log := logger.With(slog.String("component", "supervisor"))

	ports := make(map[string]int, len(cfg.Enabled))
	for i, name := range cfg.Enabled {
		if cfg.ChildMetricsBasePort > 0 {
			ports[name] = cfg.ChildMetricsBasePort + i
		}
	}

	spawn := func(scanner string) (runner, error) {
		env := []string{
			"ATOM_MODE=scan",
			"ATOM_SCANNER_STRATEGY=" + scanner,
			"ATOM_SCANNER_METRICS_PORT=" + strconv.Itoa(ports[scanner]),
		}
		return StartWorker(scanner, binary, args, env, log)
	}
	return newWithSpawn(cfg, spawn, control, m, log)
}

func newWithSpawn(cfg Config, spawn spawnFunc, control domain.ControlPlane, m *metrics.SupervisorMetrics, logger *slog.Logger) *Supervisor {
	children := make([]*child, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		children = append(children, &child{
			name:    name,
			state:   StateIdle,
			backoff: newBackoff(cfg.InitialBackoff, cfg.MaxBackoff, cfg.RestartWindow),
		})
	}
	return &Supervisor{
		cfg:      cfg,
		control:  control,
		metrics:  m,
		logger:   logger,
		spawn:    spawn,
		children: children,
		now:      time.Now,
	}
}

// Run reconciles until ctx is cancelled, then stops every child gracefully.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor started",
		slog.Any("enabled", s.cfg.Enabled),
		slog.Duration("poll_interval", s.cfg.PollInterval))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.Reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			s.stopAll("shutdown")
			s.logger.Info("supervisor stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Reconcile(ctx)
		}
	}
}

// Reconcile runs one pass: collect exits, apply control flags, and start
// whatever should be running. Exported so tests can drive the loop without
// real time.
func (s *Supervisor) Reconcile(ctx context.Context) {
	killed := s.control.Killed(ctx)
	if killed != s.killSeen {
		s.killSeen = killed
		if killed {
			s.alert(notify.EventKillSwitch, "kill switch engaged", "stopping all scanners")
		} else {
			s.alert(notify.EventKillSwitch, "kill switch cleared", "resuming supervision")
		}
	}

	for _, c := range s.children {
		s.collectExit(c)

		switch {
		case killed:
			s.enforceStop(c, StateKillSwitched, "kill switch active")
		case s.control.Paused(ctx, c.name):
			s.enforceStop(c, StateDisabled, "scanner disabled")
		default:
			s.ensureRunning(c)
		}
	}
}

// collectExit moves a child from Running to Backoff when its process has
// exited, scheduling the next restart.
func (s *Supervisor) collectExit(c *child) {
	if c.state != StateRunning {
		return
	}
	select {
	case err := <-c.worker.Exited():
		uptime := c.worker.Uptime()
		now := s.now()
		delay := c.backoff.next(uptime)

		c.worker = nil
		c.state = StateBackoff
		c.resumeAt = now.Add(delay)
		c.restarts++
		c.exits = append(c.exits, now)

		s.metrics.ScannerUp.WithLabelValues(c.name).Set(0)
		s.metrics.Restarts.WithLabelValues(c.name).Inc()
		s.checkStorm(c, now)

		s.logger.Error("scanner exited",
			slog.String("scanner", c.name),
			slog.Duration("uptime", uptime),
			slog.Duration("backoff", delay),
			slog.Int("restarts", c.restarts),
			slog.Any("error", err))
		s.alert(notify.EventScannerExit, "scanner exited: "+c.name,
			fmt.Sprintf("up %s, restart #%d in %s", uptime.Round(time.Second), c.restarts, delay.Round(time.Millisecond)))
	default:
	}
}

// ensureRunning starts a child that is Idle, resumes one whose backoff has
// elapsed, and clears a kill/disable hold.
func (s *Supervisor) ensureRunning(c *child) {
	switch c.state {
	case StateRunning:
		return
	case StateBackoff:
		if s.now().Before(c.resumeAt) {
			return
		}
	case StateKillSwitched, StateDisabled:
		// Flag cleared: resume immediately, fresh backoff sequence.
		c.backoff.reset()
	case StateIdle:
	}

	worker, err := s.spawn(c.name)
	if err != nil {
		// Spawn failure is treated like an instant crash.
		now := s.now()
		delay := c.backoff.next(0)
		c.state = StateBackoff
		c.resumeAt = now.Add(delay)
		c.exits = append(c.exits, now)
		s.checkStorm(c, now)
		s.logger.Error("scanner spawn failed",
			slog.String("scanner", c.name),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()))
		return
	}

	c.worker = worker
	c.state = StateRunning
	s.metrics.ScannerUp.WithLabelValues(c.name).Set(1)
	s.logger.Info("scanner running", slog.String("scanner", c.name))
}

// enforceStop terminates a running child and parks it in the given state; no
// restart is scheduled until the flag clears.
func (s *Supervisor) enforceStop(c *child, state State, reason string) {
	if c.state == state {
		return
	}
	if c.worker != nil {
		s.logger.Warn("stopping scanner",
			slog.String("scanner", c.name),
			slog.String("reason", reason))
		c.worker.Stop(s.cfg.GracePeriod)
		c.worker = nil
		s.metrics.ScannerUp.WithLabelValues(c.name).Set(0)
	}
	c.state = state
}

// stopAll terminates every running child, used on shutdown.
func (s *Supervisor) stopAll(reason string) {
	for _, c := range s.children {
		s.enforceStop(c, StateIdle, reason)
	}
}

// checkStorm raises the restart-storm alarm when a child has exceeded the
// restart budget inside the window. Restarts stay unbounded; the alarm is
// operator-visible, not a circuit breaker.
func (s *Supervisor) checkStorm(c *child, now time.Time) {
	cutoff := now.Add(-s.cfg.RestartWindow)
	keep := c.exits[:0]
	for _, t := range c.exits {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	c.exits = keep

	if s.cfg.MaxRestartsInWindow > 0 && len(c.exits) > s.cfg.MaxRestartsInWindow {
		s.metrics.RestartStorm.WithLabelValues(c.name).Set(1)
		s.logger.Error("restart storm",
			slog.String("scanner", c.name),
			slog.Int("exits_in_window", len(c.exits)),
			slog.Duration("window", s.cfg.RestartWindow))
		s.alert(notify.EventRestartStorm, "restart storm: "+c.name,
			fmt.Sprintf("%d exits in %s, still restarting", len(c.exits), s.cfg.RestartWindow))
	} else {
		s.metrics.RestartStorm.WithLabelValues(c.name).Set(0)
	}
}

// States reports every child's current state, for tests and debugging.
func (s *Supervisor) States() map[string]State {
	out := make(map[string]State, len(s.children))
	for _, c := range s.children {
		out[c.name] = c.state
	}
	return out
}
