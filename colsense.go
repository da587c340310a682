// Package colsense classifies tabular data columns into semantic types
// used by ecological datasets: stem diameters, tree heights, species
// names, coordinates, dates, plot identifiers, and related fields. A
// Classifier combines deterministic pattern rules with a trained model
// ensemble; without a trained model it degrades to rule-only answers.
//
// Typical use is load once, classify many:
//
//	clf, err := colsense.Load("model.json")
//	if err != nil { ... }
//	pred := clf.Predict(colsense.NumericColumn(values), nil)
package colsense

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"colsense/internal/cfg"
	"colsense/internal/featext"
	"colsense/internal/metrics"
	"colsense/internal/ml"
	"colsense/internal/rules"
	"colsense/internal/sample"
	"colsense/internal/store"
	"colsense/internal/taxonomy"
	"colsense/internal/train"
)

// Re-exported domain types. The internal packages own the behavior; the
// aliases keep call sites free of internal import paths.
type (
	Column       = sample.Column
	TableContext = sample.TableContext
	Kind         = sample.Kind

	Prediction = ml.Prediction
	Bank       = ml.Bank

	Example        = train.Example
	TrainingConfig = train.Config
	TrainingReport = train.Report

	Settings = cfg.Settings
)

const (
	KindNumeric = sample.KindNumeric
	KindText    = sample.KindText

	MethodRule     = ml.MethodRule
	MethodEnsemble = ml.MethodEnsemble
)

// Artifact contract failures surfaced by Load.
var (
	ErrFeatureContractMismatch = store.ErrFeatureContractMismatch
	ErrCorruptArtifact         = store.ErrCorruptArtifact
)

// NumericColumn builds a column from numeric cell values. NaN and
// infinite entries count as missing and are dropped.
func NumericColumn(values []float64) Column { return sample.Numeric(values) }

// TextColumn builds a column from text cell values. Blank cells and
// conventional missing-value markers are dropped.
func TextColumn(values []string) Column { return sample.Text(values) }

// Labels returns the closed label vocabulary, in canonical order.
func Labels() []string { return taxonomy.Default().Labels() }

// Features extracts the feature vector the models consume. Exposed so
// callers can assemble labeled Examples for Train from their own
// annotated columns.
func Features(col Column, tctx *TableContext) []float64 {
	return featext.Extract(col, tctx)
}

// Option configures a Classifier.
type Option func(*options)

type options struct {
	settings cfg.Settings
	metrics  ml.Metrics
}

// WithSettings overrides the default thresholds (rule short-circuit,
// domain boost, empty-column confidence, batch workers).
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithMetrics attaches an instrumentation sink, typically a *Metrics
// from NewMetrics.
func WithMetrics(m ml.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Metrics is the module's Prometheus instrumentation. Attach it to a
// Classifier with WithMetrics and to training via
// TrainingConfig.Metrics.
type Metrics = metrics.Metrics

// NewMetrics creates and registers the module's collectors. Pass
// prometheus.DefaultRegisterer for production use or a fresh registry in
// tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.NewWithRegistry(reg)
}

// Classifier answers semantic-type queries for columns. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	ens     *ml.Ensemble
	bank    *ml.Bank
	workers int
}

// New returns a rule-only classifier. Every prediction carries
// MethodRule until a trained bank is supplied via Load or NewFromBank.
func New(opts ...Option) *Classifier {
	return NewFromBank(nil, opts...)
}

// NewFromBank builds a classifier over an already loaded bank. A nil
// bank yields rule-only behavior.
func NewFromBank(bank *Bank, opts ...Option) *Classifier {
	o := options{settings: cfg.Defaults()}
	for _, opt := range opts {
		opt(&o)
	}

	ensOpts := ml.Options{
		RuleShortCircuit:      o.settings.RuleShortCircuit,
		DomainBoost:           o.settings.DomainBoost,
		EmptyColumnConfidence: o.settings.EmptyColumnConfidence,
		Metrics:               o.metrics,
	}
	return &Classifier{
		ens:     ml.NewEnsemble(bank, rules.New(), ensOpts),
		bank:    bank,
		workers: o.settings.Workers,
	}
}

// Load reads a model artifact from path and returns a classifier over
// it. Contract mismatches fail fast with ErrFeatureContractMismatch;
// they are never downgraded to rule-only behavior, because a silently
// stale model is worse than a loud failure.
func Load(path string, opts ...Option) (*Classifier, error) {
	bank, err := store.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromBank(bank, opts...), nil
}

// Predict classifies a single column. tctx may be nil when the column
// is considered in isolation. Predict never fails: the worst answer is
// unknown with low confidence.
func (c *Classifier) Predict(col Column, tctx *TableContext) Prediction {
	return c.ens.Predict(col, tctx)
}

// HasModel reports whether a trained bank backs this classifier.
func (c *Classifier) HasModel() bool {
	return c.bank != nil && !c.bank.Empty()
}

// Train fits a fresh ensemble on labeled examples and reports held-out
// metrics. The returned bank is independent of any Classifier; pass it
// to SaveBank and NewFromBank as needed.
func Train(examples []Example, tcfg TrainingConfig) (*Bank, *TrainingReport, error) {
	return train.Run(examples, taxonomy.Default(), tcfg)
}

// SaveBank persists a trained bank to path as a versioned artifact. The
// report, when given, stamps the artifact with run provenance.
func SaveBank(bank *Bank, report *TrainingReport, path string) error {
	var prov store.Provenance
	if report != nil {
		prov = store.Provenance{RunID: report.RunID, TrainedAt: report.TrainedAt}
	}
	return store.Save(bank, prov, path)
}

// LoadBank reads a model artifact without wrapping it in a Classifier.
func LoadBank(path string) (*Bank, error) {
	return store.Load(path)
}

// RunRegistry records training-run history so retrained models can be
// compared against their predecessors.
type RunRegistry = store.Registry

// OpenRunRegistry opens (or creates) the run registry under dataPath.
// Callers own the Close.
func OpenRunRegistry(dataPath string) (*RunRegistry, error) {
	return store.OpenRegistry(dataPath)
}

// LoadSettings resolves runtime configuration from the environment and
// the optional COLSENSE_CONFIG YAML file.
func LoadSettings() (Settings, error) {
	s, err := cfg.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration load failed")
		return Settings{}, err
	}
	return s, nil
}
