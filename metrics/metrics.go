// Package metrics exposes Prometheus metrics for the agreement center
// backend and serves them on a dedicated address.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DocumentReads counts document store reads, by store and outcome.
	DocumentReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agreement_center",
		Name:      "document_reads_total",
		Help:      "Document store reads.",
	}, []string{"store", "outcome"})

	// DocumentWrites counts document store writes, by store and outcome.
	DocumentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agreement_center",
		Name:      "document_writes_total",
		Help:      "Document store writes.",
	}, []string{"store", "outcome"})

	// RevisionConflicts counts compare-and-swap rejections observed during
	// read-modify-write updates.
	RevisionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agreement_center",
		Name:      "revision_conflicts_total",
		Help:      "Optimistic-concurrency write rejections.",
	}, []string{"store"})

	// SignOperations counts signature attempts by outcome.
	SignOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agreement_center",
		Name:      "sign_operations_total",
		Help:      "Agreement sign operations.",
	}, []string{"outcome"})
)

// MetricsServer serves the Prometheus registry over HTTP.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
