// Package metricsapi exposes a small HTTP surface alongside the text
// protocol server: Prometheus-format metrics and a health check, adapted
// from the base HTTP transport's mux-and-logging-middleware shape.
package metricsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/emberkv/ember/lib/common"
	"github.com/emberkv/ember/lib/store"
)

// Server serves /metrics and /healthz on its own listen address, separate
// from the text-protocol port.
type Server struct {
	router *store.Router
	logger *common.Logger
	http   *http.Server
}

// New builds a Server bound to endpoint. It registers gauges over router's
// live aggregate counters via metrics.GetOrCreateGauge; each gauge's
// callback runs at scrape time, so no background polling goroutine is
// needed.
func New(endpoint string, router *store.Router, logger *common.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{router: router, logger: logger}

	registerGauges(router)

	if logger != nil {
		mux.HandleFunc("/metrics", loggerMiddleware(logger, s.handleMetrics))
		mux.HandleFunc("/healthz", loggerMiddleware(logger, s.handleHealthz))
	} else {
		mux.HandleFunc("/metrics", s.handleMetrics)
		mux.HandleFunc("/healthz", s.handleHealthz)
	}

	s.http = &http.Server{
		Addr:    endpoint,
		Handler: mux,
	}
	return s
}

// registerGauges wires the router's point-in-time stats into VictoriaMetrics
// gauges with lazily-evaluated callbacks, so each scrape reflects live state
// without a separate refresh loop.
func registerGauges(router *store.Router) {
	metrics.GetOrCreateGauge(`emberkv_store_size`, func() float64 {
		return float64(router.Size())
	})
	metrics.GetOrCreateGauge(`emberkv_store_shard_count`, func() float64 {
		return float64(router.ShardCount())
	})
	metrics.GetOrCreateGauge(`emberkv_store_capacity_per_shard`, func() float64 {
		return float64(router.CapacityPerShard())
	})
	metrics.GetOrCreateGauge(`emberkv_store_gets_total`, func() float64 {
		return float64(router.Stats().Gets)
	})
	metrics.GetOrCreateGauge(`emberkv_store_hits_total`, func() float64 {
		return float64(router.Stats().Hits)
	})
	metrics.GetOrCreateGauge(`emberkv_store_misses_total`, func() float64 {
		return float64(router.Stats().Misses)
	})
	metrics.GetOrCreateGauge(`emberkv_store_sets_total`, func() float64 {
		return float64(router.Stats().Sets)
	})
	metrics.GetOrCreateGauge(`emberkv_store_deletes_total`, func() float64 {
		return float64(router.Stats().Deletes)
	})
	metrics.GetOrCreateGauge(`emberkv_store_evictions_total`, func() float64 {
		return float64(router.Stats().Evictions)
	})
	metrics.GetOrCreateGauge(`emberkv_store_expirations_total`, func() float64 {
		return float64(router.Stats().Expirations)
	})
	metrics.GetOrCreateGauge(`emberkv_store_value_size_mean`, func() float64 {
		return router.ValueSizeMean()
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("metrics server listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for in-flight
// requests, bounded by the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggerMiddleware(logger *common.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
