package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magpie_fetch_requests_total",
			Help: "Total suggestion fetches executed, by backend and outcome",
		},
		[]string{"backend", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "magpie_fetch_duration_seconds",
			Help:    "Duration of suggestion fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"backend"},
	)

	SuggestionsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magpie_suggestions_extracted_total",
			Help: "Suggestions extracted from fetch payloads, by backend",
		},
		[]string{"backend"},
	)

	BlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magpie_blocked_total",
			Help: "Fetches that hit a block or challenge page",
		},
		[]string{"source"},
	)
)

// RecordFetch updates the fetch counters for one completed task.
func RecordFetch(backend string, err error, duration time.Duration, extracted int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FetchRequestsTotal.WithLabelValues(backend, status).Inc()
	FetchDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if extracted > 0 {
		SuggestionsExtracted.WithLabelValues(backend).Add(float64(extracted))
	}
}

// Server exposes /metrics for Prometheus scraping during long batch
// runs.
type Server struct {
	srv *http.Server
}

// Start begins serving on the given port in the background.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
