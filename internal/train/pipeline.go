// Package train converts labeled feature vectors into a trained model
// bank plus an evaluation report. Training is repeatable: identical
// examples and an identical seed reproduce the same bank and the same
// report metrics, because downstream systems depend on the exact
// vocabulary and feature contract produced.
package train

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"colsense/internal/featext"
	"colsense/internal/ml"
	"colsense/internal/taxonomy"
)

// Example is one labeled training row: a feature vector extracted by the
// current extractor plus its true semantic type.
type Example struct {
	Features []float64
	Label    string
}

// Metrics receives training-run outcomes. A nil implementation disables
// instrumentation.
type Metrics interface {
	TrainingCompleted(accuracy float64, excluded int)
	TrainingFailed()
}

// Config tunes the pipeline. Zero values fall back to Defaults.
type Config struct {
	Seed                int64
	TrainRatio          float64 // default 0.64
	ValRatio            float64 // default 0.16; test split is the remainder
	MinExamplesPerLabel int     // below this a warning is reported
	MinMemberAccuracy   float64 // validation accuracy bar for keeping a member

	Metrics Metrics
}

// Defaults returns the standard pipeline configuration.
func Defaults() Config {
	return Config{
		Seed:                1,
		TrainRatio:          0.64,
		ValRatio:            0.16,
		MinExamplesPerLabel: 10,
		MinMemberAccuracy:   0.5,
	}
}

// Report summarizes one training run.
type Report struct {
	RunID     string    `json:"run_id"`
	TrainedAt time.Time `json:"trained_at"`
	Seed      int64     `json:"seed"`

	Examples   int `json:"examples"`
	TrainCount int `json:"train_count"`
	ValCount   int `json:"val_count"`
	TestCount  int `json:"test_count"`

	// Test-split metrics of the assembled ensemble.
	Accuracy  float64                   `json:"accuracy"`
	LabelF1   map[string]float64        `json:"label_f1"`
	Confusion map[string]map[string]int `json:"confusion"`

	// Per-member validation accuracy, including members that were
	// excluded for falling below the bar.
	MemberAccuracy map[string]float64 `json:"member_accuracy"`
	Excluded       []string           `json:"excluded,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// Run fits every ensemble member on a stratified train split, gates them
// on validation accuracy, and evaluates the surviving ensemble on the
// held-out test split. At least one member is always retained so a bank
// is always produced.
func Run(examples []Example, vocab taxonomy.Vocabulary, cfg Config) (*ml.Bank, *Report, error) {
	cfg = withDefaults(cfg)
	fail := func(err error) (*ml.Bank, *Report, error) {
		if cfg.Metrics != nil {
			cfg.Metrics.TrainingFailed()
		}
		return nil, nil, err
	}
	if len(examples) == 0 {
		return fail(errors.New("train: no examples"))
	}

	X := make([][]float64, len(examples))
	y := make([]int, len(examples))
	for i, ex := range examples {
		if len(ex.Features) != featext.Length() {
			return fail(fmt.Errorf("train: example %d has %d features, extractor contract is %d",
				i, len(ex.Features), featext.Length()))
		}
		c := vocab.Index(ex.Label)
		if c < 0 {
			return fail(fmt.Errorf("train: example %d label %q outside vocabulary", i, ex.Label))
		}
		X[i] = ex.Features
		y[i] = c
	}

	report := &Report{
		RunID:          uuid.New().String(),
		TrainedAt:      time.Now().UTC(),
		Seed:           cfg.Seed,
		Examples:       len(examples),
		MemberAccuracy: make(map[string]float64),
	}

	trainIdx, valIdx, testIdx := stratifiedSplit(y, vocab.Len(), cfg)
	report.TrainCount = len(trainIdx)
	report.ValCount = len(valIdx)
	report.TestCount = len(testIdx)
	warnSmallLabels(report, y, vocab, cfg.MinExamplesPerLabel)

	if len(trainIdx) == 0 {
		return fail(errors.New("train: training split is empty"))
	}

	Xtr, ytr := gather(X, y, trainIdx)
	Xval, yval := gather(X, y, valIdx)

	// Fit each member independently, then gate on validation accuracy.
	type fitted struct {
		member ml.Member
		acc    float64
		f1     map[string]float64
	}
	var candidates []fitted
	for _, member := range ml.DefaultMembers() {
		if err := member.Fit(Xtr, ytr, vocab.Len(), cfg.Seed); err != nil {
			return fail(fmt.Errorf("train: fit %s: %w", member.Name(), err))
		}
		acc, f1 := evaluateMember(member, Xval, yval, vocab)
		report.MemberAccuracy[member.Name()] = acc
		candidates = append(candidates, fitted{member: member, acc: acc, f1: f1})
		log.Debug().Str("member", member.Name()).Float64("val_accuracy", acc).Msg("member fitted")
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].acc > candidates[j].acc })

	var members []ml.BankMember
	for i, c := range candidates {
		// The best member is always kept so the bank is never empty.
		if c.acc < cfg.MinMemberAccuracy && i > 0 {
			report.Excluded = append(report.Excluded, c.member.Name())
			log.Warn().Str("member", c.member.Name()).Float64("val_accuracy", c.acc).
				Float64("bar", cfg.MinMemberAccuracy).Msg("member below accuracy bar, excluded")
			continue
		}
		members = append(members, ml.BankMember{Model: c.member, Weight: c.acc, LabelF1: c.f1})
	}

	bank := ml.NewBank(featext.Version, vocab, members)
	evaluateEnsemble(bank, report, X, y, testIdx, vocab)

	if cfg.Metrics != nil {
		cfg.Metrics.TrainingCompleted(report.Accuracy, len(report.Excluded))
	}
	log.Info().Str("run_id", report.RunID).Int("examples", report.Examples).
		Int("members", len(members)).Float64("test_accuracy", report.Accuracy).
		Msg("training run complete")
	return bank, report, nil
}

func withDefaults(cfg Config) Config {
	def := Defaults()
	if cfg.TrainRatio <= 0 {
		cfg.TrainRatio = def.TrainRatio
	}
	if cfg.ValRatio <= 0 {
		cfg.ValRatio = def.ValRatio
	}
	if cfg.MinExamplesPerLabel <= 0 {
		cfg.MinExamplesPerLabel = def.MinExamplesPerLabel
	}
	if cfg.MinMemberAccuracy <= 0 {
		cfg.MinMemberAccuracy = def.MinMemberAccuracy
	}
	return cfg
}

// stratifiedSplit shuffles each label's indices with the seeded source
// and allocates them train/validation/test so label proportions are
// preserved across splits.
func stratifiedSplit(y []int, nClasses int, cfg Config) (trainIdx, valIdx, testIdx []int) {
	rnd := rand.New(rand.NewSource(cfg.Seed))

	byLabel := make([][]int, nClasses)
	for i, c := range y {
		byLabel[c] = append(byLabel[c], i)
	}
	for _, idx := range byLabel {
		if len(idx) == 0 {
			continue
		}
		rnd.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nTrain := int(float64(len(idx)) * cfg.TrainRatio)
		nVal := int(float64(len(idx)) * cfg.ValRatio)
		if nTrain == 0 {
			nTrain = 1
		}
		if nTrain > len(idx) {
			nTrain = len(idx)
		}
		if nTrain+nVal > len(idx) {
			nVal = len(idx) - nTrain
		}
		trainIdx = append(trainIdx, idx[:nTrain]...)
		valIdx = append(valIdx, idx[nTrain:nTrain+nVal]...)
		testIdx = append(testIdx, idx[nTrain+nVal:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(valIdx)
	sort.Ints(testIdx)
	return trainIdx, valIdx, testIdx
}

func warnSmallLabels(report *Report, y []int, vocab taxonomy.Vocabulary, min int) {
	counts := make([]int, vocab.Len())
	for _, c := range y {
		counts[c]++
	}
	for c, n := range counts {
		if n > 0 && n < min {
			w := fmt.Sprintf("label %q has only %d examples (minimum %d)", vocab.Label(c), n, min)
			report.Warnings = append(report.Warnings, w)
			log.Warn().Str("label", vocab.Label(c)).Int("count", n).Msg("insufficient training data for label")
		}
	}
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	gx := make([][]float64, len(idx))
	gy := make([]int, len(idx))
	for i, j := range idx {
		gx[i] = X[j]
		gy[i] = y[j]
	}
	return gx, gy
}

func evaluateMember(m ml.Member, Xval [][]float64, yval []int, vocab taxonomy.Vocabulary) (float64, map[string]float64) {
	if len(Xval) == 0 {
		return 0, map[string]float64{}
	}
	pred := make([]int, len(Xval))
	for i, row := range Xval {
		pred[i] = argmaxFloat(m.Proba(row))
	}
	f1 := perLabelF1(yval, pred, vocab.Len())
	byLabel := make(map[string]float64, vocab.Len())
	for c, v := range f1 {
		byLabel[vocab.Label(c)] = v
	}
	return accuracy(yval, pred), byLabel
}

// evaluateEnsemble scores the assembled bank's soft vote on the test
// split and fills the report's global metrics.
func evaluateEnsemble(bank *ml.Bank, report *Report, X [][]float64, y []int, testIdx []int, vocab taxonomy.Vocabulary) {
	report.LabelF1 = make(map[string]float64)
	report.Confusion = make(map[string]map[string]int)
	if len(testIdx) == 0 {
		return
	}

	yTrue := make([]int, len(testIdx))
	yPred := make([]int, len(testIdx))
	for i, j := range testIdx {
		yTrue[i] = y[j]
		yPred[i] = voteIndex(bank, X[j])
	}

	report.Accuracy = accuracy(yTrue, yPred)
	for c, v := range perLabelF1(yTrue, yPred, vocab.Len()) {
		report.LabelF1[vocab.Label(c)] = v
	}
	for ti, row := range confusionCounts(yTrue, yPred, vocab.Len()) {
		for pi, n := range row {
			if n == 0 {
				continue
			}
			label := vocab.Label(ti)
			if report.Confusion[label] == nil {
				report.Confusion[label] = make(map[string]int)
			}
			report.Confusion[label][vocab.Label(pi)] = n
		}
	}
}

func voteIndex(bank *ml.Bank, x []float64) int {
	sums := make([]float64, bank.Vocab().Len())
	for _, m := range bank.Members() {
		w := m.Weight
		if w <= 0 {
			w = 1e-6
		}
		for c, p := range m.Model.Proba(x) {
			if c < len(sums) {
				sums[c] += w * p
			}
		}
	}
	return argmaxFloat(sums)
}
