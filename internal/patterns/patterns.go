// Package patterns holds the reusable regex and range primitives shared by
// the feature extractor and the rule fallback detector. Everything here is
// stateless and safe for concurrent use.
package patterns

import (
	"regexp"
	"strings"
)

var (
	// Binomial taxonomic name: "Genus epithet", optionally with a
	// subspecies/variety/forma qualifier ("Agathis ovata var. ovata").
	binomialRe = regexp.MustCompile(`^[A-Z][a-zë-]+ [a-zë-]+(?: (?:var|subsp|ssp|f)\. [a-z-]+)?$`)

	// ISO 8601 calendar date, optionally with a time part.
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?Z?)?$`)

	// Decimal coordinate rendered as text: signed, with at least three
	// decimal places ("-21.348912").
	decimalCoordRe = regexp.MustCompile(`^[-+]?\d{1,3}\.\d{3,}$`)

	// Identifier-like code: short letter prefix plus digits, optionally
	// separated ("P04", "NC-0123", "PLOT_17").
	identifierRe = regexp.MustCompile(`^[A-Za-z]{1,6}[-_ ]?\d{1,6}[A-Za-z]?$`)
)

// IsBinomialName reports whether s looks like a binomial species name.
func IsBinomialName(s string) bool { return binomialRe.MatchString(s) }

// IsISODate reports whether s is an ISO 8601 date or datetime.
func IsISODate(s string) bool { return isoDateRe.MatchString(s) }

// IsDecimalCoordinate reports whether s is a decimal coordinate string.
func IsDecimalCoordinate(s string) bool { return decimalCoordRe.MatchString(s) }

// IsIdentifierCode reports whether s looks like a plot or specimen code.
func IsIdentifierCode(s string) bool { return identifierRe.MatchString(s) }

// Measurement unit suffixes seen in field data exports ("12.3 cm").
var unitSuffixes = []string{"cm", "mm", "m", "dbh", "kg", "ha", "g/cm3"}

// HasUnitSuffix reports whether s ends in a known measurement unit.
func HasUnitSuffix(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	for _, suf := range unitSuffixes {
		if t == suf {
			continue
		}
		if strings.HasSuffix(t, " "+suf) || strings.HasSuffix(t, suf) && hasDigitPrefix(t, suf) {
			return true
		}
	}
	return false
}

func hasDigitPrefix(t, suf string) bool {
	head := strings.TrimSuffix(t, suf)
	if head == "" {
		return false
	}
	c := head[len(head)-1]
	return c >= '0' && c <= '9' || c == ' ' || c == '.'
}

// MatchRate returns the fraction of values matched by m. Zero for an
// empty slice, so empty columns never look like a perfect match.
func MatchRate(values []string, m func(string) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if m(v) {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// Range is a closed numeric interval encoding what plausible values of a
// measurement domain look like.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies inside the interval.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Covers reports whether the whole observed span [lo, hi] lies inside the
// interval. A single out-of-range extreme disqualifies the column.
func (r Range) Covers(lo, hi float64) bool { return lo >= r.Min && hi <= r.Max }

// Plausibility ranges for the measurement domains of the platform.
// Diameters are DBH in centimetres, heights in metres, wood density in
// g/cm3. Coordinates are decimal degrees.
var (
	DiameterRange    = Range{Min: 0.1, Max: 500}
	HeightRange      = Range{Min: 0.1, Max: 130}
	LatitudeRange    = Range{Min: -90, Max: 90}
	LongitudeRange   = Range{Min: -180, Max: 180}
	WoodDensityRange = Range{Min: 0.05, Max: 1.6}
	StemCountRange   = Range{Min: 0, Max: 1e6}
)

// Indicator converts a boolean check into the 0/1 feature encoding.
func Indicator(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
