// Package metrics provides Prometheus metrics for namewise batches.
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
	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "namewise_analyses_total",
			Help: "Total analyses by outcome (suggested, fallback)",
		},
		[]string{"outcome"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "namewise_analysis_duration_seconds",
			Help:    "Time to prepare and analyze one file",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Rename metrics
	renamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "namewise_renames_total",
			Help: "Total rename attempts by result",
		},
		[]string{"result"},
	)

	// Pipeline metrics
	workersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "namewise_workers_busy",
			Help: "Number of analysis or rename tasks currently running",
		},
	)

	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "namewise_batches_total",
			Help: "Total batches started, by origin (cli, watch)",
		},
		[]string{"origin"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis records one finished analysis. fallback is true when the
// suggestion was synthesized locally.
func RecordAnalysis(fallback bool, duration time.Duration) {
	outcome := "suggested"
	if fallback {
		outcome = "fallback"
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(duration.Seconds())
}

// RecordRename records one rename attempt. result is "success" or a rename
// failure kind such as "destination exists".
func RecordRename(result string) {
	renamesTotal.WithLabelValues(result).Inc()
}

// AddWorkersBusy adjusts the busy worker gauge.
func AddWorkersBusy(delta int) {
	workersBusy.Add(float64(delta))
}

// RecordBatch records a started batch.
func RecordBatch(origin string) {
	batchesTotal.WithLabelValues(origin).Inc()
}

// Recorder forwards pipeline hooks to the package metrics.
type Recorder struct{}

func (Recorder) AnalysisFinished(fallback bool, d time.Duration) { RecordAnalysis(fallback, d) }
func (Recorder) RenameFinished(result string)                    { RecordRename(result) }
func (Recorder) WorkerStarted()                                  { AddWorkersBusy(1) }
func (Recorder) WorkerStopped()                                  { AddWorkersBusy(-1) }

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
