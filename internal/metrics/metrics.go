// Package metrics exposes Prometheus instrumentation for the scanner and
// supervisor processes. Each process owns its own registry so supervised
// children never collide with the parent.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atom"

// ScannerMetrics instruments a single scanner loop.
type ScannerMetrics struct {
	registry *prometheus.Registry

	ScanDuration     prometheus.Histogram
	ScanErrors       *prometheus.CounterVec
	SignalsPublished prometheus.Counter
	CandidatesFound  prometheus.Counter
	BestNetProfitUSD prometheus.Gauge
	PairsRegistered  prometheus.Gauge
	LastScanUnix     prometheus.Gauge
}

// NewScannerMetrics registers all scanner metrics on a fresh registry.
func NewScannerMetrics() *ScannerMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ScannerMetrics{
		registry: reg,
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scan tick in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ScanErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "errors_total",
			Help:      "Total scan errors by stage",
		}, []string{"stage"}),
		SignalsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "signals_published_total",
			Help:      "Total signals published to the stream",
		}),
		CandidatesFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_found_total",
			Help:      "Total raw candidates produced by the search stage",
		}),
		BestNetProfitUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "best_net_profit_usd",
			Help:      "Net profit of the best signal in the latest tick, zero when none qualified",
		}),
		PairsRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "pairs_registered",
			Help:      "Pairs currently held by the venue registry",
		}),
		LastScanUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "last_scan_timestamp",
			Help:      "Unix timestamp of the last completed scan tick",
		}),
	}
}

// Registry returns the underlying registry for serving.
func (m *ScannerMetrics) Registry() *prometheus.Registry { return m.registry }

// SupervisorMetrics instruments the fleet supervisor.
type SupervisorMetrics struct {
	registry *prometheus.Registry

	ScannerUp    *prometheus.GaugeVec
	Restarts     *prometheus.CounterVec
	RestartStorm *prometheus.GaugeVec
}

// NewSupervisorMetrics registers all supervisor metrics on a fresh registry.
func NewSupervisorMetrics() *SupervisorMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &SupervisorMetrics{
		registry: reg,
		ScannerUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "scanner_up",
			Help:      "Whether the named scanner process is currently running",
		}, []string{"scanner"}),
		Restarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "restarts_total",
			Help:      "Total restarts per scanner",
		}, []string{"scanner"}),
		RestartStorm: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "restart_storm",
			Help:      "Set to 1 while a scanner is exceeding the restart budget",
		}, []string{"scanner"}),
	}
}

// Registry returns the underlying registry for serving.
func (m *SupervisorMetrics) Registry() *prometheus.Registry { return m.registry }

// Serve blocks serving /metrics from reg until ctx is cancelled. A port of
// zero disables the endpoint.
func Serve(ctx context.Context, port int, reg *prometheus.Registry, logger *slog.Logger) error {
	if port == 0 {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", slog.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	}
}
