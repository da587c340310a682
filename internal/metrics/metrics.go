// Package metrics provides Prometheus metrics for the column classifier:
// prediction throughput, rule fallback and short-circuit activity,
// confidence distributions, and training-run outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the classifier.
type Metrics struct {
	// Classification metrics
	Predictions       prometheus.Counter
	RuleFallbacks     prometheus.Counter // predictions answered rule-only (no model bank)
	RuleShortCircuits prometheus.Counter // high-confidence rule overrides of the ensemble
	EmptyColumns      prometheus.Counter // columns with no usable values
	PredictionLatency prometheus.Histogram
	ConfidenceScores  prometheus.Histogram

	// Training metrics
	TrainingRuns     prometheus.Counter
	TrainingFailures prometheus.Counter
	TrainingAccuracy prometheus.Histogram
	MembersExcluded  prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, so tests get
// isolated collectors without touching the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_predictions_total",
			Help: "Total number of column predictions",
		}),
		RuleFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_rule_fallbacks_total",
			Help: "Predictions answered by rules alone because no model bank was loaded",
		}),
		RuleShortCircuits: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_rule_short_circuits_total",
			Help: "Predictions where a high-confidence rule overrode the ensemble vote",
		}),
		EmptyColumns: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_empty_columns_total",
			Help: "Columns classified with no usable values",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "colsense_prediction_latency_seconds",
			Help:    "End-to-end column classification latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "colsense_confidence_scores",
			Help:    "Distribution of reported prediction confidences",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_training_failures_total",
			Help: "Total number of failed training runs",
		}),
		TrainingAccuracy: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "colsense_training_accuracy",
			Help:    "Held-out test accuracy of completed training runs",
			Buckets: []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1.0},
		}),
		MembersExcluded: factory.NewCounter(prometheus.CounterOpts{
			Name: "colsense_members_excluded_total",
			Help: "Ensemble members excluded for falling below the validation accuracy bar",
		}),
	}
}

// The methods below satisfy the ensemble's metrics hook interface.

func (m *Metrics) PredictionsInc() { m.Predictions.Inc() }

func (m *Metrics) RuleFallbackInc() { m.RuleFallbacks.Inc() }

func (m *Metrics) ShortCircuitInc() { m.RuleShortCircuits.Inc() }

func (m *Metrics) EmptyColumnInc() { m.EmptyColumns.Inc() }

func (m *Metrics) LatencyObserve(seconds float64) {
	m.PredictionLatency.Observe(seconds)
}

func (m *Metrics) ConfidenceObserve(score float64) {
	m.ConfidenceScores.Observe(score)
}

// The methods below satisfy the training pipeline's hook interface.

func (m *Metrics) TrainingCompleted(accuracy float64, excluded int) {
	m.TrainingRuns.Inc()
	m.TrainingAccuracy.Observe(accuracy)
	m.MembersExcluded.Add(float64(excluded))
}

func (m *Metrics) TrainingFailed() { m.TrainingFailures.Inc() }
