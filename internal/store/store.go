// Package store persists trained model banks as versioned artifacts and
// keeps a history of training runs. An artifact is one atomic unit:
// feature contract version, label vocabulary, per-member parameters, and
// training provenance. Loading refuses any artifact whose contract
// disagrees with the running extractor; a silently mismatched model is
// the most dangerous failure mode of the subsystem.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"colsense/internal/featext"
	"colsense/internal/ml"
	"colsense/internal/taxonomy"
)

// Contract and IO failures. Contract mismatches are fatal by design and
// never downgraded to a fallback.
var (
	ErrFeatureContractMismatch = errors.New("model artifact feature contract mismatch")
	ErrCorruptArtifact         = errors.New("model artifact is corrupt")
)

// Artifact is the on-disk schema. Fields are explicit and versioned; no
// opaque blobs.
type Artifact struct {
	FeatureVersion    int              `json:"feature_version"`
	VocabularyVersion int              `json:"vocabulary_version"`
	Vocabulary        []string         `json:"vocabulary"`
	CreatedAt         time.Time        `json:"created_at"`
	RunID             string           `json:"run_id,omitempty"`
	Members           []MemberArtifact `json:"members"`
}

// MemberArtifact carries one trained member's parameters plus the
// validation record the ensemble weighs votes with.
type MemberArtifact struct {
	Name    string             `json:"name"`
	Weight  float64            `json:"weight"`
	LabelF1 map[string]float64 `json:"label_f1,omitempty"`
	Params  json.RawMessage    `json:"params"`
}

// Provenance ties an artifact to the training run that produced it.
type Provenance struct {
	RunID     string
	TrainedAt time.Time
}

// Save persists a bank to path as one atomic artifact. The file is
// written to a temporary sibling and renamed into place, so a failed
// save never corrupts a previously valid artifact.
func Save(bank *ml.Bank, prov Provenance, path string) error {
	if bank == nil || bank.Empty() {
		return errors.New("store: refusing to save an empty bank")
	}

	art := Artifact{
		FeatureVersion:    bank.FeatureVersion(),
		VocabularyVersion: taxonomy.Version,
		Vocabulary:        bank.Vocab().Labels(),
		CreatedAt:         prov.TrainedAt,
		RunID:             prov.RunID,
	}
	if art.CreatedAt.IsZero() {
		art.CreatedAt = time.Now().UTC()
	}
	for _, m := range bank.Members() {
		params, err := m.Model.Params()
		if err != nil {
			return fmt.Errorf("store: encode member %s: %w", m.Model.Name(), err)
		}
		art.Members = append(art.Members, MemberArtifact{
			Name:    m.Model.Name(),
			Weight:  m.Weight,
			LabelF1: m.LabelF1,
			Params:  params,
		})
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: publish artifact: %w", err)
	}

	log.Info().Str("path", path).Str("run_id", prov.RunID).
		Int("members", len(art.Members)).Msg("model artifact saved")
	return nil
}

// Load reads an artifact and rebuilds the bank. It fails fast when the
// artifact's feature-vector or vocabulary version disagrees with the
// running code.
func Load(path string) (*ml.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read artifact %s: %w", path, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if len(art.Members) == 0 || len(art.Vocabulary) == 0 {
		return nil, fmt.Errorf("%w: missing members or vocabulary", ErrCorruptArtifact)
	}

	if art.FeatureVersion != featext.Version {
		return nil, fmt.Errorf("%w: artifact has feature version %d, extractor is %d",
			ErrFeatureContractMismatch, art.FeatureVersion, featext.Version)
	}
	if art.VocabularyVersion != taxonomy.Version {
		return nil, fmt.Errorf("%w: artifact has vocabulary version %d, current is %d",
			ErrFeatureContractMismatch, art.VocabularyVersion, taxonomy.Version)
	}
	vocab := taxonomy.New(art.Vocabulary)
	if !vocab.Equal(taxonomy.Default()) {
		return nil, fmt.Errorf("%w: artifact vocabulary diverges from current label set",
			ErrFeatureContractMismatch)
	}

	var members []ml.BankMember
	for _, ma := range art.Members {
		model, err := ml.NewMemberByName(ma.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
		}
		if err := model.Restore(ma.Params); err != nil {
			return nil, fmt.Errorf("%w: member %s: %v", ErrCorruptArtifact, ma.Name, err)
		}
		members = append(members, ml.BankMember{Model: model, Weight: ma.Weight, LabelF1: ma.LabelF1})
	}

	log.Info().Str("path", path).Str("run_id", art.RunID).
		Int("members", len(members)).Msg("model artifact loaded")
	return ml.NewBank(art.FeatureVersion, vocab, members), nil
}
