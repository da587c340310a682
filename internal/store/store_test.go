package store

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"colsense/internal/featext"
	"colsense/internal/ml"
	"colsense/internal/taxonomy"
	"colsense/internal/train"
)

func trainedBank(t *testing.T) *ml.Bank {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	var X [][]float64
	var y []int
	for i := 0; i < 60; i++ {
		row := make([]float64, featext.Length())
		c := i % 2
		for j := range row {
			row[j] = rnd.NormFloat64() + float64(c)*2
		}
		X = append(X, row)
		y = append(y, c)
	}

	var members []ml.BankMember
	for _, m := range ml.DefaultMembers() {
		if err := m.Fit(X, y, taxonomy.Default().Len(), 42); err != nil {
			t.Fatalf("fit %s: %v", m.Name(), err)
		}
		members = append(members, ml.BankMember{Model: m, Weight: 0.8})
	}
	return ml.NewBank(featext.Version, taxonomy.Default(), members)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	bank := trainedBank(t)
	prov := Provenance{RunID: "run-1", TrainedAt: time.Now().UTC()}

	if err := Save(bank, prov, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Empty() {
		t.Fatal("loaded bank is empty")
	}
	if len(loaded.Members()) != len(bank.Members()) {
		t.Fatalf("loaded %d members, want %d", len(loaded.Members()), len(bank.Members()))
	}

	// Loaded members must answer identically to the originals.
	probe := make([]float64, featext.Length())
	for i := range probe {
		probe[i] = 0.5
	}
	for i, m := range bank.Members() {
		want := m.Model.Proba(probe)
		got := loaded.Members()[i].Model.Proba(probe)
		for c := range want {
			if want[c] != got[c] {
				t.Fatalf("member %s diverges after round trip", m.Model.Name())
			}
		}
	}
}

func TestLoad_FeatureVersionMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	if err := Save(trainedBank(t), Provenance{RunID: "run-2"}, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Rewrite the artifact as if produced by an older extractor.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	art.FeatureVersion = featext.Version - 1
	stale, _ := json.Marshal(art)
	if err := os.WriteFile(path, stale, 0o600); err != nil {
		t.Fatalf("write stale artifact: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrFeatureContractMismatch) {
		t.Fatalf("expected ErrFeatureContractMismatch, got %v", err)
	}
}

func TestLoad_VocabularyMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	if err := Save(trainedBank(t), Provenance{}, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(path)
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	art.Vocabulary = append(art.Vocabulary[:0:0], "old_label", taxonomy.Unknown)
	stale, _ := json.Marshal(art)
	os.WriteFile(path, stale, 0o600)

	if _, err := Load(path); !errors.Is(err, ErrFeatureContractMismatch) {
		t.Fatalf("expected ErrFeatureContractMismatch, got %v", err)
	}
}

func TestLoad_CorruptArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorruptArtifact) {
		t.Fatalf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestSave_RefusesEmptyBank(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	empty := ml.EmptyBank(featext.Version, taxonomy.Default())
	if err := Save(empty, Provenance{}, path); err == nil {
		t.Fatal("expected error saving empty bank")
	}
}

func TestSave_DoesNotCorruptExistingArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := Save(trainedBank(t), Provenance{RunID: "good"}, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A failed save (unwritable temp dir) must leave the old artifact
	// loadable.
	bad := filepath.Join(dir, "no-such-dir", "model.json")
	if err := Save(trainedBank(t), Provenance{}, bad); err == nil {
		t.Fatal("expected error saving into missing directory")
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("previous artifact corrupted: %v", err)
	}
}

func TestRegistry_RecordAndList(t *testing.T) {
	t.Parallel()

	reg, err := OpenRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	defer reg.Close()

	first := &train.Report{RunID: "run-a", TrainedAt: time.Now().UTC().Add(-time.Hour), Accuracy: 0.8}
	second := &train.Report{RunID: "run-b", TrainedAt: time.Now().UTC(), Accuracy: 0.9}
	if err := reg.Record(second); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := reg.Record(first); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("listed %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-a" || runs[1].RunID != "run-b" {
		t.Errorf("runs not in chronological order: %s, %s", runs[0].RunID, runs[1].RunID)
	}

	got, err := reg.Get("run-b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Accuracy != 0.9 {
		t.Errorf("Get(run-b) = %+v, want accuracy 0.9", got)
	}
	missing, err := reg.Get("run-z")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown run ID")
	}
}
