package colsense_test

import (
	"context"
	"testing"

	"colsense"
)

func forestTable() []colsense.Column {
	return []colsense.Column{
		colsense.TextColumn([]string{"NI-01-Q1", "NI-01-Q2", "NI-02-Q1", "NI-02-Q2"}),
		colsense.TextColumn([]string{"Araucaria columnaris", "Agathis lanceolata", "Podocarpus minor", "Metrosideros operta"}),
		colsense.NumericColumn([]float64{12.3, 45.1, 8.9, 23.4}),
		colsense.TextColumn([]string{"2023-04-01", "2023-04-01", "2023-04-02", "2023-04-02"}),
	}
}

func TestPredictTable_OrderedResults(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	cols := forestTable()

	preds, err := clf.PredictTable(context.Background(), cols)
	if err != nil {
		t.Fatalf("PredictTable: %v", err)
	}
	if len(preds) != len(cols) {
		t.Fatalf("got %d predictions for %d columns", len(preds), len(cols))
	}

	// Results must line up with their input columns.
	if preds[1].Label != "species_name" {
		t.Errorf("column 1 = %s, want species_name", preds[1].Label)
	}
	if preds[2].Label != "diameter" {
		t.Errorf("column 2 = %s, want diameter", preds[2].Label)
	}
	if preds[3].Label != "date" {
		t.Errorf("column 3 = %s, want date", preds[3].Label)
	}
}

func TestPredictTable_MatchesSingleColumnAnswers(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	cols := forestTable()

	preds, err := clf.PredictTable(context.Background(), cols)
	if err != nil {
		t.Fatalf("PredictTable: %v", err)
	}

	// Rule verdicts ignore table context, so batch answers for these
	// columns must equal the isolated ones.
	for i, col := range cols {
		single := clf.Predict(col, nil)
		if preds[i].Label != single.Label {
			t.Errorf("column %d: batch %s vs single %s", i, preds[i].Label, single.Label)
		}
	}
}

func TestPredictTable_EmptyAndCancelled(t *testing.T) {
	t.Parallel()

	clf := colsense.New()

	preds, err := clf.PredictTable(context.Background(), nil)
	if err != nil || preds != nil {
		t.Errorf("empty table: got (%v, %v), want (nil, nil)", preds, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cols := forestTable()
	preds, err = clf.PredictTable(ctx, cols)
	if err == nil {
		t.Fatal("expected context error for cancelled table classification")
	}
	if len(preds) != len(cols) {
		t.Fatalf("got %d predictions for %d columns", len(preds), len(cols))
	}
	// Skipped columns still answer with an in-vocabulary label.
	valid := make(map[string]bool)
	for _, l := range colsense.Labels() {
		valid[l] = true
	}
	for i, p := range preds {
		if !valid[p.Label] {
			t.Errorf("column %d: label %q outside vocabulary after cancellation", i, p.Label)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("column %d: confidence %v out of [0,1]", i, p.Confidence)
		}
	}
}

func TestPredictTable_Deterministic(t *testing.T) {
	t.Parallel()

	clf := colsense.New()
	cols := forestTable()

	a, err := clf.PredictTable(context.Background(), cols)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	b, err := clf.PredictTable(context.Background(), cols)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	for i := range a {
		if a[i].Label != b[i].Label || a[i].Confidence != b[i].Confidence {
			t.Errorf("column %d not deterministic: %+v vs %+v", i, a[i], b[i])
		}
	}
}
