package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"colsense/internal/ml"
	"colsense/internal/train"
)

// The concrete type must plug into both consumer-side hook interfaces.
var (
	_ ml.Metrics    = (*Metrics)(nil)
	_ train.Metrics = (*Metrics)(nil)
)

func TestNewWithRegistry_Isolated(t *testing.T) {
	t.Parallel()

	// Two registries must not collide on metric names.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.PredictionsInc()
	a.PredictionsInc()
	b.PredictionsInc()

	if got := testutil.ToFloat64(a.Predictions); got != 2 {
		t.Errorf("a.Predictions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.Predictions); got != 1 {
		t.Errorf("b.Predictions = %v, want 1", got)
	}
}

func TestClassificationHooks(t *testing.T) {
	t.Parallel()

	m := NewWithRegistry(prometheus.NewRegistry())

	m.RuleFallbackInc()
	m.ShortCircuitInc()
	m.ShortCircuitInc()
	m.EmptyColumnInc()
	m.LatencyObserve(0.002)
	m.ConfidenceObserve(0.85)

	if got := testutil.ToFloat64(m.RuleFallbacks); got != 1 {
		t.Errorf("RuleFallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RuleShortCircuits); got != 2 {
		t.Errorf("RuleShortCircuits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EmptyColumns); got != 1 {
		t.Errorf("EmptyColumns = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.PredictionLatency); got != 1 {
		t.Errorf("PredictionLatency collected %d series, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ConfidenceScores); got != 1 {
		t.Errorf("ConfidenceScores collected %d series, want 1", got)
	}
}

func TestTrainingHooks(t *testing.T) {
	t.Parallel()

	m := NewWithRegistry(prometheus.NewRegistry())
	m.TrainingCompleted(0.91, 1)
	m.TrainingCompleted(0.88, 0)
	m.TrainingFailed()

	if got := testutil.ToFloat64(m.TrainingRuns); got != 2 {
		t.Errorf("TrainingRuns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TrainingFailures); got != 1 {
		t.Errorf("TrainingFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MembersExcluded); got != 1 {
		t.Errorf("MembersExcluded = %v, want 1", got)
	}
}
