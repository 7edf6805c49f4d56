package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	trainingRuns *prometheus.CounterVec
	trials       *prometheus.CounterVec
	predictions  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		trainingRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_training_runs_total",
				Help: "Total number of training runs",
			},
			[]string{"symbol", "status"},
		),
		trials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_search_trials_total",
				Help: "Total number of evaluated hyperparameter trials",
			},
			[]string{"kind"},
		),
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 3, 12),
			},
			[]string{"operation"},
		),
	}
}

// RecordTrainingRun records a finished training run.
func (r *Recorder) RecordTrainingRun(symbol, status string) {
	r.trainingRuns.WithLabelValues(symbol, status).Inc()
}

// RecordTrial records one evaluated hyperparameter trial.
func (r *Recorder) RecordTrial(kind string) {
	r.trials.WithLabelValues(kind).Inc()
}

// RecordPrediction records a prediction served for a symbol.
func (r *Recorder) RecordPrediction(symbol string) {
	r.predictions.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
