// ABOUTME: Prometheus counters for ingestion, ledger growth, and synthesis fallbacks
// ABOUTME: A nil *Recorder is valid and records nothing
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch outcomes
const (
	OutcomeApplied   = "applied"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeBusy      = "busy"
	OutcomeFailed    = "failed"
)

// Synthesis results
const (
	SynthesisParsed   = "parsed"
	SynthesisFallback = "fallback"
	SynthesisAbsent   = "absent"
)

// Recorder owns a private registry so tests and multiple engines never collide
type Recorder struct {
	registry  *prometheus.Registry
	batches   *prometheus.CounterVec
	deltas    *prometheus.CounterVec
	synthesis *prometheus.CounterVec
	commit    prometheus.Histogram
}

// New registers all collectors on a fresh registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_batches_total",
			Help: "Extraction batches by outcome",
		}, []string{"outcome"}),
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_deltas_total",
			Help: "Field deltas appended to the ledger by category",
		}, []string{"category"}),
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_synthesis_results_total",
			Help: "Synthesis texts by parse result",
		}, []string{"result"}),
		commit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "persona_commit_seconds",
			Help:    "Time spent committing deltas and snapshot rows",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(r.batches, r.deltas, r.synthesis, r.commit)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Batch counts one batch outcome
func (r *Recorder) Batch(outcome string) {
	if r == nil {
		return
	}
	r.batches.WithLabelValues(outcome).Inc()
}

// Delta counts one appended delta
func (r *Recorder) Delta(category string) {
	if r == nil {
		return
	}
	r.deltas.WithLabelValues(category).Inc()
}

// Synthesis counts one resolver pass by how the synthesis text fared
func (r *Recorder) Synthesis(result string) {
	if r == nil {
		return
	}
	r.synthesis.WithLabelValues(result).Inc()
}

// ObserveCommit records a commit duration
func (r *Recorder) ObserveCommit(d time.Duration) {
	if r == nil {
		return
	}
	r.commit.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
