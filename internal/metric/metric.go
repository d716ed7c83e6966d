// Package metric exposes Prometheus collectors for the import pipeline
// and the operational HTTP listener serving them.
package metric // import "jobimporter.app/internal/metric"

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus Metrics.
var (
	ImportRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobimporter",
			Name:      "import_run_duration_seconds",
			Help:      "Processing time of one feed import run",
			Buckets:   prometheus.LinearBuckets(1, 2, 15),
		},
		[]string{"status"},
	)

	ItemResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobimporter",
			Name:      "import_items_total",
			Help:      "Processed feed items by upsert result",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(ImportRunDuration)
	prometheus.MustRegister(ItemResults)
}

// Pinger is a backend whose connectivity the healthcheck verifies.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartServer serves /metrics and /healthcheck on addr in a background
// goroutine and returns the server for graceful shutdown.
func StartServer(addr string, checks ...Pinger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metric: listener stopped", slog.Any("error", err))
		}
	}()
	return srv
}
