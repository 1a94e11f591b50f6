package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rosegoldcruz/atom-sub001/internal/metrics"
)

// fakeRunner is an in-memory child process.
type fakeRunner struct {
	mu      sync.Mutex
	exitCh  chan error
	stopped bool
	uptime  time.Duration
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{exitCh: make(chan error, 1)}
}

func (f *fakeRunner) Exited() <-chan error { return f.exitCh }

func (f *fakeRunner) Uptime() time.Duration { return f.uptime }

func (f *fakeRunner) Stop(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// crash delivers an exit so the next reconcile observes it.
func (f *fakeRunner) crash(err error) {
	f.exitCh <- err
}

func (f *fakeRunner) wasStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// memControl is a settable in-memory control plane.
type memControl struct {
	killed bool
	paused map[string]bool
}

func (c *memControl) Killed(context.Context) bool { return c.killed }
func (c *memControl) Paused(_ context.Context, scanner string) bool {
	return c.paused[scanner]
}

// harness wires a supervisor over fake runners with a manual clock.
type harness struct {
	sup     *Supervisor
	control *memControl
	now     time.Time
	runners map[string][]*fakeRunner
	spawnN  int
}

func newHarness(t *testing.T, enabled ...string) *harness {
	t.Helper()
	h := &harness{
		control: &memControl{paused: map[string]bool{}},
		now:     time.Unix(1_700_000_000, 0),
		runners: make(map[string][]*fakeRunner),
	}
	cfg := Config{
		Enabled:             enabled,
		InitialBackoff:      time.Second,
		MaxBackoff:          8 * time.Second,
		RestartWindow:       5 * time.Minute,
		MaxRestartsInWindow: 2,
		GracePeriod:         time.Second,
		PollInterval:        time.Second,
	}
	spawn := func(scanner string) (runner, error) {
		h.spawnN++
		r := newFakeRunner()
		h.runners[scanner] = append(h.runners[scanner], r)
		return r, nil
	}
	h.sup = newWithSpawn(cfg, spawn, h.control, metrics.NewSupervisorMetrics(), slog.New(slog.DiscardHandler))
	h.sup.now = func() time.Time { return h.now }
	for _, c := range h.sup.children {
		c.backoff.jitter = func(int64) int64 { return 0 }
	}
	return h
}

func (h *harness) latest(scanner string) *fakeRunner {
	rs := h.runners[scanner]
	return rs[len(rs)-1]
}

func TestReconcileStartsEnabledScanners(t *testing.T) {
	h := newHarness(t, "cross_venue", "triangular")
	h.sup.Reconcile(context.Background())

	require.Equal(t, 2, h.spawnN)
	states := h.sup.States()
	require.Equal(t, StateRunning, states["cross_venue"])
	require.Equal(t, StateRunning, states["triangular"])
}

func TestCrashBacksOffThenRestarts(t *testing.T) {
	h := newHarness(t, "cross_venue")
	ctx := context.Background()

	h.sup.Reconcile(ctx)
	h.latest("cross_venue").crash(errors.New("boom"))

	h.sup.Reconcile(ctx)
	require.Equal(t, StateBackoff, h.sup.States()["cross_venue"])
	require.Equal(t, 1, h.spawnN)

	// Before the 1s initial backoff elapses: still waiting.
	h.now = h.now.Add(500 * time.Millisecond)
	h.sup.Reconcile(ctx)
	require.Equal(t, 1, h.spawnN)

	// After: restarted.
	h.now = h.now.Add(600 * time.Millisecond)
	h.sup.Reconcile(ctx)
	require.Equal(t, 2, h.spawnN)
	require.Equal(t, StateRunning, h.sup.States()["cross_venue"])
}

func TestKillSwitchStopsFleetAndResumes(t *testing.T) {
	h := newHarness(t, "cross_venue", "triangular")
	ctx := context.Background()

	h.sup.Reconcile(ctx)
	first := h.latest("cross_venue")

	h.control.killed = true
	h.sup.Reconcile(ctx)
	require.True(t, first.wasStopped())
	require.Equal(t, StateKillSwitched, h.sup.States()["cross_venue"])
	require.Equal(t, StateKillSwitched, h.sup.States()["triangular"])

	// No restarts while the switch is set.
	h.now = h.now.Add(time.Minute)
	h.sup.Reconcile(ctx)
	require.Equal(t, 2, h.spawnN)

	// Cleared: resumes immediately, no backoff wait.
	h.control.killed = false
	h.sup.Reconcile(ctx)
	require.Equal(t, 4, h.spawnN)
	require.Equal(t, StateRunning, h.sup.States()["cross_venue"])
}

func TestPauseStopsOneScannerOnly(t *testing.T) {
	h := newHarness(t, "cross_venue", "triangular")
	ctx := context.Background()

	h.sup.Reconcile(ctx)
	h.control.paused["triangular"] = true
	h.sup.Reconcile(ctx)

	states := h.sup.States()
	require.Equal(t, StateRunning, states["cross_venue"])
	require.Equal(t, StateDisabled, states["triangular"])
	require.True(t, h.latest("triangular").wasStopped())
	require.False(t, h.latest("cross_venue").wasStopped())
}

// Restarts stay unbounded, but exceeding the restart budget inside the
// window raises the storm gauge.
func TestRestartStormAlarm(t *testing.T) {
	h := newHarness(t, "cross_venue")
	ctx := context.Background()
	gauge := h.sup.metrics.RestartStorm.WithLabelValues("cross_venue")

	h.sup.Reconcile(ctx)
	for i := 0; i < 3; i++ {
		h.latest("cross_venue").crash(errors.New("boom"))
		h.sup.Reconcile(ctx)
		// Jump past the backoff so the next reconcile restarts.
		h.now = h.now.Add(30 * time.Second)
		h.sup.Reconcile(ctx)
	}

	require.Equal(t, float64(1), testutil.ToFloat64(gauge))
	// Still restarting: no terminal give-up state.
	require.Equal(t, StateRunning, h.sup.States()["cross_venue"])

	// Exits age out of the window and the alarm clears on the next exit.
	h.now = h.now.Add(10 * time.Minute)
	h.latest("cross_venue").crash(errors.New("boom"))
	h.sup.Reconcile(ctx)
	require.Equal(t, float64(0), testutil.ToFloat64(gauge))
}
