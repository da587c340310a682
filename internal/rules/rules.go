// Package rules implements the deterministic fallback classifier. It needs
// no trained model: a fixed-priority list of range and pattern rules is
// evaluated in order and the first satisfied rule wins. Confidences here
// are fixed severity scores on the rule scale, not calibrated
// probabilities; they are comparable against the configured short-circuit
// threshold, nothing else.
package rules

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"colsense/internal/patterns"
	"colsense/internal/sample"
	"colsense/internal/taxonomy"
)

// UnknownConfidence is the floor score returned when no rule matches.
const UnknownConfidence = 0.2

// Result is the outcome of rule evaluation. Reason names the rule that
// fired so the decision stays explainable.
type Result struct {
	Label      string
	Confidence float64
	Reason     string
}

type rule struct {
	name       string
	label      string
	confidence float64
	match      func(p profile) bool
}

// profile is the small set of column statistics the rules test against.
type profile struct {
	kind        sample.Kind
	n           int
	mean        float64
	min         float64
	max         float64
	skew        float64
	fracInt     float64
	fracPos     float64
	binomial    float64
	isoDate     float64
	identifier  float64
	decimalCoor float64
}

// Detector evaluates the fixed rule set. The zero value is not usable;
// construct with New.
type Detector struct {
	rules []rule
}

// New returns a detector with the built-in rule set.
func New() *Detector {
	return &Detector{rules: []rule{
		{
			name: "binomial-species", label: taxonomy.SpeciesName, confidence: 0.95,
			match: func(p profile) bool {
				return p.kind == sample.KindText && p.binomial >= 0.8
			},
		},
		{
			name: "iso-date", label: taxonomy.Date, confidence: 0.9,
			match: func(p profile) bool {
				return p.kind == sample.KindText && p.isoDate >= 0.8
			},
		},
		{
			name: "identifier-code", label: taxonomy.PlotID, confidence: 0.75,
			match: func(p profile) bool {
				return p.kind == sample.KindText && p.identifier >= 0.8
			},
		},
		{
			name: "coordinate-text", label: taxonomy.Latitude, confidence: 0.6,
			match: func(p profile) bool {
				return p.kind == sample.KindText && p.decimalCoor >= 0.8
			},
		},
		{
			// Mostly-positive, right-skewed, bounded like DBH in cm.
			name: "dbh-range", label: taxonomy.Diameter, confidence: 0.6,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					p.fracPos >= 0.95 &&
					p.mean >= 5 && p.mean <= 100 &&
					p.max < 500 &&
					p.skew >= 0
			},
		},
		{
			name: "latitude-range", label: taxonomy.Latitude, confidence: 0.55,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					patterns.LatitudeRange.Covers(p.min, p.max) &&
					p.fracInt < 0.5 &&
					p.min < 0
			},
		},
		{
			name: "longitude-range", label: taxonomy.Longitude, confidence: 0.55,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					patterns.LongitudeRange.Covers(p.min, p.max) &&
					p.fracInt < 0.5 &&
					(p.min < -90 || p.max > 90)
			},
		},
		{
			name: "height-range", label: taxonomy.Height, confidence: 0.5,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					p.fracPos >= 0.95 &&
					patterns.HeightRange.Covers(p.min, p.max) &&
					p.fracInt < 0.5 &&
					p.mean >= 2 && p.mean <= 60
			},
		},
		{
			name: "density-range", label: taxonomy.WoodDensity, confidence: 0.5,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					patterns.WoodDensityRange.Covers(p.min, p.max) &&
					p.fracInt < 0.5
			},
		},
		{
			name: "integer-count", label: taxonomy.StemCount, confidence: 0.4,
			match: func(p profile) bool {
				return p.kind == sample.KindNumeric &&
					p.fracInt >= 0.95 &&
					p.min >= 0
			},
		},
	}}
}

// Detect evaluates the rules in priority order against a column. It never
// fails: an empty column or one matching no rule yields Unknown at the
// floor confidence.
func (d *Detector) Detect(col sample.Column) Result {
	if col.Empty() {
		return Result{Label: taxonomy.Unknown, Confidence: UnknownConfidence, Reason: "empty-column"}
	}
	p := profileColumn(col)
	for _, r := range d.rules {
		if r.match(p) {
			return Result{Label: r.label, Confidence: r.confidence, Reason: r.name}
		}
	}
	return Result{Label: taxonomy.Unknown, Confidence: UnknownConfidence, Reason: "no-rule-matched"}
}

func profileColumn(col sample.Column) profile {
	p := profile{kind: col.Kind(), n: col.Len()}
	switch col.Kind() {
	case sample.KindNumeric:
		xs := col.Values()
		p.min, p.max = xs[0], xs[0]
		pos, integer := 0, 0
		for _, x := range xs {
			if x < p.min {
				p.min = x
			}
			if x > p.max {
				p.max = x
			}
			if x > 0 {
				pos++
			}
			if x == math.Trunc(x) {
				integer++
			}
		}
		n := float64(len(xs))
		p.mean = stat.Mean(xs, nil)
		p.skew = skewOrZero(xs)
		p.fracPos = float64(pos) / n
		p.fracInt = float64(integer) / n
	case sample.KindText:
		vals := col.Strings()
		p.binomial = patterns.MatchRate(vals, patterns.IsBinomialName)
		p.isoDate = patterns.MatchRate(vals, patterns.IsISODate)
		p.identifier = patterns.MatchRate(vals, patterns.IsIdentifierCode)
		p.decimalCoor = patterns.MatchRate(vals, patterns.IsDecimalCoordinate)
	}
	return p
}

func skewOrZero(xs []float64) float64 {
	s := stat.Skew(xs, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}
