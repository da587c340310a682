package colsense_test

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"colsense"
)

func TestNew_RuleOnlyClassifier(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	if clf.HasModel() {
		t.Fatal("fresh classifier should not report a model")
	}

	species := colsense.TextColumn([]string{
		"Araucaria columnaris", "Agathis lanceolata", "Nothofagus aequilateralis",
		"Metrosideros operta", "Podocarpus minor",
	})
	pred := clf.Predict(species, nil)
	if pred.Label != "species_name" {
		t.Errorf("label = %s, want species_name", pred.Label)
	}
	if pred.Confidence < 0.7 {
		t.Errorf("confidence = %v, want >= 0.7 for clean binomials", pred.Confidence)
	}
	if pred.Method != colsense.MethodRule {
		t.Errorf("method = %s, want rule", pred.Method)
	}
}

func TestPredict_AllMissingColumn(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	col := colsense.TextColumn([]string{"NA", "", "null", "n/a"})
	pred := clf.Predict(col, nil)

	if pred.Label != "unknown" {
		t.Errorf("label = %s, want unknown", pred.Label)
	}
	if pred.Confidence > 0.3 {
		t.Errorf("confidence = %v, want <= 0.3 for an empty column", pred.Confidence)
	}
}

func TestPredict_DiameterColumn(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	dbh := colsense.NumericColumn([]float64{12.3, 45.1, 8.9, 23.4, 67.2, 15.8, 31.0, 19.5})
	pred := clf.Predict(dbh, nil)

	if pred.Label != "diameter" {
		t.Errorf("label = %s, want diameter", pred.Label)
	}
	if pred.Confidence <= 0 || pred.Confidence > 1 {
		t.Errorf("confidence %v out of (0,1]", pred.Confidence)
	}
}

func TestPredict_NeverPanicsOnHostileInput(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	cases := []colsense.Column{
		colsense.NumericColumn(nil),
		colsense.NumericColumn([]float64{math.NaN(), math.Inf(1), math.Inf(-1)}),
		colsense.NumericColumn([]float64{0}),
		colsense.TextColumn([]string{""}),
		colsense.TextColumn([]string{"\x00\xff", "🌲", "   "}),
	}
	for i, col := range cases {
		pred := clf.Predict(col, nil)
		if pred.Confidence < 0 || pred.Confidence > 1 {
			t.Errorf("case %d: confidence %v out of [0,1]", i, pred.Confidence)
		}
		if pred.Label == "" {
			t.Errorf("case %d: empty label", i)
		}
	}
}

// trainingExamples builds a labeled corpus from generated columns.
func trainingExamples(perLabel int, seed int64) []colsense.Example {
	rnd := rand.New(rand.NewSource(seed))
	genera := []string{"Araucaria", "Agathis", "Podocarpus", "Metrosideros", "Nothofagus"}
	epithets := []string{"columnaris", "lanceolata", "minor", "operta", "aequilateralis"}

	var examples []colsense.Example
	add := func(label string, col colsense.Column) {
		examples = append(examples, colsense.Example{Features: colsense.Features(col, nil), Label: label})
	}

	for i := 0; i < perLabel; i++ {
		n := 15 + rnd.Intn(10)

		diam := make([]float64, n)
		for j := range diam {
			diam[j] = 5 + rnd.ExpFloat64()*25
		}
		add("diameter", colsense.NumericColumn(diam))

		lat := make([]float64, n)
		for j := range lat {
			lat[j] = -22 + rnd.Float64()*2
		}
		add("latitude", colsense.NumericColumn(lat))

		species := make([]string, n)
		for j := range species {
			species[j] = genera[rnd.Intn(len(genera))] + " " + epithets[rnd.Intn(len(epithets))]
		}
		add("species_name", colsense.TextColumn(species))

		dates := make([]string, n)
		for j := range dates {
			dates[j] = fmt.Sprintf("20%02d-%02d-%02d", rnd.Intn(25), 1+rnd.Intn(12), 1+rnd.Intn(28))
		}
		add("date", colsense.TextColumn(dates))
	}
	return examples
}

func TestTrainSaveLoadPredict_EndToEnd(t *testing.T) {
	t.Parallel()

	bank, report, err := colsense.Train(trainingExamples(30, 11), colsense.TrainingConfig{Seed: 11})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if report.Accuracy < 0.6 {
		t.Fatalf("test accuracy %v too low for separable data", report.Accuracy)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := colsense.SaveBank(bank, report, path); err != nil {
		t.Fatalf("SaveBank: %v", err)
	}

	clf, err := colsense.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !clf.HasModel() {
		t.Fatal("loaded classifier should report a model")
	}

	species := colsense.TextColumn([]string{
		"Araucaria columnaris", "Agathis lanceolata", "Nothofagus aequilateralis",
	})
	pred := clf.Predict(species, nil)
	if pred.Label != "species_name" {
		t.Errorf("label = %s, want species_name", pred.Label)
	}
	if pred.Confidence < 0.7 {
		t.Errorf("confidence = %v, want >= 0.7", pred.Confidence)
	}

	// A column no rule fires on must go through the ensemble and still
	// return a full distribution over the vocabulary.
	vague := colsense.NumericColumn([]float64{-21.5, -21.6, -21.4, -21.55, -21.45, -21.52})
	pred = clf.Predict(vague, nil)
	if pred.Method != colsense.MethodEnsemble && pred.Method != colsense.MethodRule {
		t.Errorf("unexpected method %s", pred.Method)
	}
	if len(pred.Distribution) == 0 {
		t.Error("expected a label distribution")
	}
	for _, p := range pred.Distribution {
		if p < 0 || p > 1 {
			t.Errorf("distribution entry %v out of [0,1]", p)
		}
	}
}

func TestMetrics_WiredThroughFacade(t *testing.T) {
	t.Parallel()

	m := colsense.NewMetrics(prometheus.NewRegistry())
	clf := colsense.New(colsense.WithMetrics(m))

	clf.Predict(colsense.TextColumn([]string{"NA", ""}), nil)
	clf.Predict(colsense.NumericColumn([]float64{12.3, 45.1, 8.9, 23.4}), nil)

	if got := testutil.ToFloat64(m.Predictions); got != 2 {
		t.Errorf("Predictions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EmptyColumns); got != 1 {
		t.Errorf("EmptyColumns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RuleFallbacks); got != 1 {
		t.Errorf("RuleFallbacks = %v, want 1 for the rule-only answer", got)
	}

	// Training observes its outcome through the same instrumentation.
	_, _, err := colsense.Train(trainingExamples(15, 21), colsense.TrainingConfig{Seed: 21, Metrics: m})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got := testutil.ToFloat64(m.TrainingRuns); got != 1 {
		t.Errorf("TrainingRuns = %v, want 1", got)
	}
	if _, _, err := colsense.Train(nil, colsense.TrainingConfig{Metrics: m}); err == nil {
		t.Fatal("expected error training on no examples")
	}
	if got := testutil.ToFloat64(m.TrainingFailures); got != 1 {
		t.Errorf("TrainingFailures = %v, want 1", got)
	}
}

func TestLoad_MissingArtifact(t *testing.T) {
	t.Parallel()

	if _, err := colsense.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error loading a missing artifact")
	}
}

func TestLabels_ClosedVocabulary(t *testing.T) {
	t.Parallel()

	labels := colsense.Labels()
	if len(labels) == 0 {
		t.Fatal("empty vocabulary")
	}
	seen := make(map[string]bool)
	for _, l := range labels {
		if seen[l] {
			t.Errorf("duplicate label %s", l)
		}
		seen[l] = true
	}
	if !seen["unknown"] {
		t.Error("vocabulary must include unknown")
	}
}
