// Package metrics records workflow run and step measurements in Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the workflow collectors.
type Recorder struct {
	runs     *prometheus.CounterVec
	steps    *prometheus.HistogramVec
	retries  prometheus.Counter
	inFlight prometheus.Gauge
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_runs_total",
			Help: "Completed workflow runs by final outcome.",
		}, []string{"outcome"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoice_step_duration_seconds",
			Help:    "Duration of each workflow step.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"step"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoice_ingest_retries_total",
			Help: "Ingest attempts beyond the first.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "invoice_runs_in_flight",
			Help: "Workflow runs currently executing.",
		}),
	}

	reg.MustRegister(r.runs, r.steps, r.retries, r.inFlight)
	return r
}

// RunStarted marks a run as in flight.
func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// RunFinished records the outcome of a run that RunStarted marked.
func (r *Recorder) RunFinished(outcome string) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.runs.WithLabelValues(outcome).Inc()
}

// ObserveStep records how long a step took.
func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(step).Observe(d.Seconds())
}

// IngestRetry counts an ingest attempt after the first.
func (r *Recorder) IngestRetry() {
	if r == nil {
		return
	}
	r.retries.Inc()
}
