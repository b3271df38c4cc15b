package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the mailer's /metrics endpoint, plus a /healthz
// liveness probe for the process running the "mailer metrics" subcommand.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics HTTP server on the given address,
// backed by reg. Unlike prometheus.DefaultRegisterer, a custom *Registry
// doesn't auto-register the Go runtime/process collectors, so
// NewMetricsServer adds them itself — a scrape of this endpoint reports
// goroutine counts, GC pauses, and RSS alongside the mailer's own
// send/rate-limit counters.
func NewMetricsServer(addr string, reg *prometheus.Registry) *MetricsServer {
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// ListenAndServe starts the metrics server.
func (s *MetricsServer) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
