package ml

import (
	"time"

	"github.com/rs/zerolog/log"

	"colsense/internal/featext"
	"colsense/internal/rules"
	"colsense/internal/sample"
	"colsense/internal/taxonomy"
)

// Metrics is the narrow instrumentation surface the ensemble needs. A nil
// implementation disables instrumentation.
type Metrics interface {
	PredictionsInc()
	RuleFallbackInc()
	ShortCircuitInc()
	EmptyColumnInc()
	LatencyObserve(seconds float64)
	ConfidenceObserve(score float64)
}

// Options tune the combination step.
type Options struct {
	// RuleShortCircuit is the rule confidence at or above which the rule
	// verdict overrides the ensemble vote entirely.
	RuleShortCircuit float64
	// DomainBoost is added to the winning confidence when the column's
	// domain-plausibility feature corroborates the chosen label. The
	// result is capped at 1.
	DomainBoost float64
	// EmptyColumnConfidence is the confidence reported for columns with
	// no usable values.
	EmptyColumnConfidence float64

	Metrics Metrics
}

// DefaultOptions mirror the configuration defaults in internal/cfg.
func DefaultOptions() Options {
	return Options{
		RuleShortCircuit:      0.95,
		DomainBoost:           0.1,
		EmptyColumnConfidence: 0.1,
	}
}

// Ensemble combines model-bank votes with the rule fallback. It holds
// only read-only state and is safe for concurrent use.
type Ensemble struct {
	bank *Bank
	det  *rules.Detector
	opts Options
}

// NewEnsemble builds a classifier over a bank. A nil or empty bank is
// valid: prediction degrades transparently to rule-only results.
func NewEnsemble(bank *Bank, det *rules.Detector, opts Options) *Ensemble {
	if det == nil {
		det = rules.New()
	}
	if opts.RuleShortCircuit <= 0 {
		opts.RuleShortCircuit = DefaultOptions().RuleShortCircuit
	}
	// Zero is a legal, deliberate empty-column confidence; only a
	// negative value falls back to the default.
	if opts.EmptyColumnConfidence < 0 {
		opts.EmptyColumnConfidence = DefaultOptions().EmptyColumnConfidence
	}
	if bank == nil {
		bank = EmptyBank(featext.Version, taxonomy.Default())
	}
	return &Ensemble{bank: bank, det: det, opts: opts}
}

// Bank exposes the read-only bank backing this ensemble.
func (e *Ensemble) Bank() *Bank { return e.bank }

// Predict classifies one column. Data-quality problems never surface as
// errors: the worst outcome is an unknown label at low confidence.
func (e *Ensemble) Predict(col sample.Column, tctx *sample.TableContext) Prediction {
	start := time.Now()
	defer func() {
		if m := e.opts.Metrics; m != nil {
			m.PredictionsInc()
			m.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if col.Empty() {
		if m := e.opts.Metrics; m != nil {
			m.EmptyColumnInc()
		}
		return e.observe(Prediction{
			Label:        taxonomy.Unknown,
			Confidence:   e.opts.EmptyColumnConfidence,
			Distribution: map[string]float64{taxonomy.Unknown: e.opts.EmptyColumnConfidence},
			Method:       MethodRule,
			Reason:       "empty-column",
		})
	}

	ruleRes := e.det.Detect(col)

	if e.bank.Empty() {
		if m := e.opts.Metrics; m != nil {
			m.RuleFallbackInc()
		}
		log.Debug().Str("label", ruleRes.Label).Float64("confidence", ruleRes.Confidence).
			Msg("no trained bank, using rule fallback")
		return e.observe(rulePrediction(ruleRes))
	}

	vec := featext.Extract(col, tctx)

	// A strong deterministic signal must not be overridden by
	// statistical noise.
	if ruleRes.Confidence >= e.opts.RuleShortCircuit {
		if m := e.opts.Metrics; m != nil {
			m.ShortCircuitInc()
		}
		return e.observe(rulePrediction(ruleRes))
	}

	dist := e.softVote(vec)
	label := e.topLabel(dist)
	conf := dist[label]

	// Bounded, monotonic confidence boost when the domain-plausibility
	// features corroborate the chosen label.
	if feat, ok := domainFeature[label]; ok && vec.Get(feat) >= 1 {
		conf += e.opts.DomainBoost
		if conf > 1 {
			conf = 1
		}
	}

	return e.observe(Prediction{
		Label:        label,
		Confidence:   conf,
		Distribution: dist,
		Method:       MethodEnsemble,
	})
}

// softVote is the single combination function: per label, the
// confidence-weighted average of member probabilities.
func (e *Ensemble) softVote(vec featext.Vector) map[string]float64 {
	vocab := e.bank.Vocab()
	sums := make([]float64, vocab.Len())
	var totalWeight float64
	for _, m := range e.bank.Members() {
		w := m.Weight
		if w <= 0 {
			w = 1e-6
		}
		probs := m.Model.Proba(vec)
		for c := 0; c < vocab.Len() && c < len(probs); c++ {
			sums[c] += w * probs[c]
		}
		totalWeight += w
	}

	dist := make(map[string]float64, vocab.Len())
	for c, label := range vocab.Labels() {
		if totalWeight > 0 {
			dist[label] = sums[c] / totalWeight
		} else {
			dist[label] = 0
		}
	}
	return dist
}

// topLabel picks the argmax of the distribution. Near-ties are broken in
// favour of the label some member has historically classified best
// (highest validation F1), then lexicographically for stability.
func (e *Ensemble) topLabel(dist map[string]float64) string {
	const eps = 1e-9
	best := ""
	bestScore := -1.0
	for _, label := range e.bank.Vocab().Labels() {
		score := dist[label]
		switch {
		case score > bestScore+eps:
			best, bestScore = label, score
		case score >= bestScore-eps && best != "":
			if e.bestMemberF1(label) > e.bestMemberF1(best) {
				best = label
			}
		}
	}
	if best == "" {
		return taxonomy.Unknown
	}
	return best
}

func (e *Ensemble) bestMemberF1(label string) float64 {
	best := 0.0
	for _, m := range e.bank.Members() {
		if f1 := m.LabelF1[label]; f1 > best {
			best = f1
		}
	}
	return best
}

func (e *Ensemble) observe(p Prediction) Prediction {
	if m := e.opts.Metrics; m != nil {
		m.ConfidenceObserve(p.Confidence)
	}
	return p
}

func rulePrediction(r rules.Result) Prediction {
	return Prediction{
		Label:        r.Label,
		Confidence:   r.Confidence,
		Distribution: map[string]float64{r.Label: r.Confidence},
		Method:       MethodRule,
		Reason:       r.Reason,
	}
}

// domainFeature maps labels to the plausibility indicator that can
// corroborate them.
var domainFeature = map[string]string{
	taxonomy.Diameter:    "dom_diameter",
	taxonomy.Height:      "dom_height",
	taxonomy.Latitude:    "dom_latitude",
	taxonomy.Longitude:   "dom_longitude",
	taxonomy.WoodDensity: "dom_density",
	taxonomy.StemCount:   "dom_count",
}
