// Package metrics provides Prometheus metrics for WebDAV sessions: capability
// operations (list/read/write), transferred bytes, and connection attempts.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "davnotes"

// Result label values.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// Connection attempt kinds.
const (
	KindConnect   = "connect"
	KindReconnect = "reconnect"
)

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Recorder records session metrics into a registry. A nil *Recorder is valid
// and records nothing, so callers never need to guard it.
type Recorder struct {
	ops       *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bytes     *prometheus.CounterVec
	attempts  *prometheus.CounterVec
	connected prometheus.Gauge
}

// NewRecorder registers the session metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		ops: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of WebDAV capability operations",
			},
			[]string{"op", "result"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "WebDAV capability operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_bytes_total",
				Help:      "Total file content bytes read or written",
			},
			[]string{"op"},
		),
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_attempts_total",
				Help:      "Connection attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		connected: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_connected",
				Help:      "1 while the session holds a bound capability",
			},
		),
	}
}

// ObserveOp records one capability operation. It satisfies dav.Observer.
func (r *Recorder) ObserveOp(op string, d time.Duration, n int64, err error) {
	if r == nil {
		return
	}

	r.ops.WithLabelValues(op, result(err == nil)).Inc()
	r.duration.WithLabelValues(op).Observe(d.Seconds())

	if n > 0 {
		r.bytes.WithLabelValues(op).Add(float64(n))
	}
}

// ObserveAttempt records a connect or reconnect attempt.
func (r *Recorder) ObserveAttempt(kind string, ok bool) {
	if r == nil {
		return
	}

	r.attempts.WithLabelValues(kind, result(ok)).Inc()
}

// SetConnected tracks the session's connection state.
func (r *Recorder) SetConnected(connected bool) {
	if r == nil {
		return
	}

	if connected {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
}

func result(ok bool) string {
	if ok {
		return resultSuccess
	}

	return resultError
}

// Handler returns an HTTP handler exposing the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr at /metrics until ctx is canceled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serving: %w", err)
	}

	return nil
}
