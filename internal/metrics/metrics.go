// Package metrics holds the prometheus collectors for calls to the message store.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/adi-253/msglist/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for StoreRequests.
const (
	OutcomeOK           = "ok"
	OutcomeRejected     = "rejected"
	OutcomeConnectivity = "connectivity"
)

// Recorder groups the store collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	StoreRequests   *prometheus.CounterVec
	StoreDurations  *prometheus.HistogramVec
	PendingRequests prometheus.Gauge
}

// NewRecorder registers the store collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		StoreRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msglist_store_requests_total",
				Help: "Calls to the message store by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		StoreDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "msglist_store_request_duration_seconds",
				Help:    "Latency of calls to the message store.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "msglist_store_requests_in_flight",
				Help: "Store calls that have not completed yet.",
			},
		),
	}
	r.registry.MustRegister(r.StoreRequests, r.StoreDurations, r.PendingRequests)
	return r
}

// Begin marks a store call as started and returns the function that ends it.
func (r *Recorder) Begin(op string) func(outcome string) {
	if r == nil {
		return func(string) {}
	}
	start := time.Now()
	r.PendingRequests.Inc()
	return func(outcome string) {
		r.PendingRequests.Dec()
		r.StoreDurations.WithLabelValues(op).Observe(time.Since(start).Seconds())
		r.StoreRequests.WithLabelValues(op, outcome).Inc()
	}
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics on a dedicated listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve starts a /metrics listener on addr in the background.
func (r *Recorder) Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", "addr", addr, "err", err)
		}
	}()
	return s, nil
}

// Addr is the address the listener is bound to.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
