// Package featext turns one column of raw values into a fixed-length
// numeric feature vector. Extraction is pure and deterministic: identical
// input always yields the identical vector, no entry is ever NaN or Inf,
// and an empty-after-cleaning column yields the zero vector of contract
// length.
package featext

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/stat"

	"colsense/internal/patterns"
	"colsense/internal/sample"
)

// Vector is one extracted feature vector of Length() dimensions, ordered
// per Names().
type Vector []float64

// Get returns the value of a named dimension, 0 for unknown names.
func (v Vector) Get(name string) float64 {
	i := Index(name)
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

// Extract computes the feature vector for a column. ctx is optional; when
// absent the contextual group is left at neutral zero so the vector length
// never changes.
func Extract(col sample.Column, ctx *sample.TableContext) Vector {
	v := make(Vector, Length())
	if col.Empty() {
		return v
	}

	switch col.Kind() {
	case sample.KindNumeric:
		extractNumeric(v, col)
	case sample.KindText:
		extractText(v, col)
	}

	v.set("missing_ratio", col.MissingRatio())
	extractChars(v, renderValues(col))
	extractContext(v, col, ctx)

	for i := range v {
		v[i] = sanitize(v[i])
	}
	return v
}

func (v Vector) set(name string, val float64) {
	if i := Index(name); i >= 0 {
		v[i] = val
	}
}

func extractNumeric(v Vector, col sample.Column) {
	xs := col.Values()
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	min := sorted[0]
	max := sorted[len(sorted)-1]
	mean := stat.Mean(xs, nil)

	v.set("num_mean", mean)
	v.set("num_std", stat.StdDev(xs, nil))
	v.set("num_min", min)
	v.set("num_max", max)
	v.set("num_q25", stat.Quantile(0.25, stat.Empirical, sorted, nil))
	v.set("num_median", stat.Quantile(0.5, stat.Empirical, sorted, nil))
	v.set("num_q75", stat.Quantile(0.75, stat.Empirical, sorted, nil))
	v.set("num_range", max-min)
	v.set("num_skew", stat.Skew(xs, nil))
	v.set("num_kurtosis", stat.ExKurtosis(xs, nil))

	pos, integer := 0, 0
	for _, x := range xs {
		if x > 0 {
			pos++
		}
		if x == math.Trunc(x) {
			integer++
		}
	}
	n := float64(len(xs))
	v.set("num_frac_positive", float64(pos)/n)
	v.set("num_frac_integer", float64(integer)/n)

	// Histogram bucket proportions over the observed span. A constant
	// column puts all mass in the first bucket.
	span := max - min
	counts := make([]float64, histBins)
	for _, x := range xs {
		b := 0
		if span > 0 {
			b = int((x - min) / span * histBins)
			if b >= histBins {
				b = histBins - 1
			}
		}
		counts[b]++
	}
	for i, c := range counts {
		v.set("num_hist_"+strconv.Itoa(i), c/n)
	}

	v.set("uniq_ratio", numericUniqueness(sorted))

	v.set("dom_diameter", patterns.Indicator(patterns.DiameterRange.Covers(min, max)))
	v.set("dom_height", patterns.Indicator(patterns.HeightRange.Covers(min, max)))
	v.set("dom_latitude", patterns.Indicator(patterns.LatitudeRange.Covers(min, max)))
	v.set("dom_longitude", patterns.Indicator(patterns.LongitudeRange.Covers(min, max)))
	v.set("dom_density", patterns.Indicator(patterns.WoodDensityRange.Covers(min, max)))
	countLike := patterns.StemCountRange.Covers(min, max) && float64(integer)/n >= 0.95
	v.set("dom_count", patterns.Indicator(countLike))
}

func extractText(v Vector, col sample.Column) {
	vals := col.Strings()
	n := float64(len(vals))

	lens := make([]float64, len(vals))
	toks := make([]float64, len(vals))
	upper, title := 0, 0
	seen := make(map[string]struct{}, len(vals))
	for i, s := range vals {
		lens[i] = float64(len([]rune(s)))
		toks[i] = float64(len(strings.Fields(s)))
		if s == strings.ToUpper(s) && s != strings.ToLower(s) {
			upper++
		}
		if isTitleCase(s) {
			title++
		}
		seen[s] = struct{}{}
	}

	sortedLens := append([]float64(nil), lens...)
	sort.Float64s(sortedLens)

	v.set("txt_len_mean", stat.Mean(lens, nil))
	v.set("txt_len_std", stat.StdDev(lens, nil))
	v.set("txt_len_min", sortedLens[0])
	v.set("txt_len_max", sortedLens[len(sortedLens)-1])
	v.set("txt_tokens_mean", stat.Mean(toks, nil))
	v.set("txt_tokens_std", stat.StdDev(toks, nil))
	v.set("txt_frac_upper", float64(upper)/n)
	v.set("txt_frac_title", float64(title)/n)
	v.set("uniq_ratio", float64(len(seen))/n)

	v.set("pat_binomial", patterns.MatchRate(vals, patterns.IsBinomialName))
	v.set("pat_iso_date", patterns.MatchRate(vals, patterns.IsISODate))
	v.set("pat_decimal_coord", patterns.MatchRate(vals, patterns.IsDecimalCoordinate))
	v.set("pat_identifier", patterns.MatchRate(vals, patterns.IsIdentifierCode))
	v.set("pat_unit_suffix", patterns.MatchRate(vals, patterns.HasUnitSuffix))
}

// extractChars fills the character-category proportions over the
// concatenation of all rendered values, normalized by total character
// count so they are independent of column length.
func extractChars(v Vector, rendered []string) {
	var letter, digit, punct, space, other, total float64
	for _, s := range rendered {
		for _, r := range s {
			total++
			switch {
			case unicode.IsLetter(r):
				letter++
			case unicode.IsDigit(r):
				digit++
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				punct++
			case unicode.IsSpace(r):
				space++
			default:
				other++
			}
		}
	}
	if total == 0 {
		return
	}
	v.set("chr_frac_letter", letter/total)
	v.set("chr_frac_digit", digit/total)
	v.set("chr_frac_punct", punct/total)
	v.set("chr_frac_space", space/total)
	v.set("chr_frac_other", other/total)
}

func extractContext(v Vector, col sample.Column, ctx *sample.TableContext) {
	if !ctx.Valid() {
		return
	}
	cols := len(ctx.Kinds)
	if cols > 1 {
		v.set("ctx_position", float64(ctx.Index)/float64(cols-1))
	}

	// Agreement of the immediate neighbours' kind with this column's.
	neighbours, agree := 0, 0
	for _, j := range []int{ctx.Index - 1, ctx.Index + 1} {
		if j < 0 || j >= cols {
			continue
		}
		neighbours++
		if ctx.Kinds[j] == col.Kind() {
			agree++
		}
	}
	if neighbours > 0 {
		v.set("ctx_kind_agreement", float64(agree)/float64(neighbours))
	}

	numeric := 0
	for _, k := range ctx.Kinds {
		if k == sample.KindNumeric {
			numeric++
		}
	}
	v.set("ctx_numeric_share", float64(numeric)/float64(cols))
}

func renderValues(col sample.Column) []string {
	if col.Kind() == sample.KindText {
		return col.Strings()
	}
	out := make([]string, col.Len())
	for i, x := range col.Values() {
		out[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return out
}

func numericUniqueness(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return float64(distinct) / float64(len(sorted))
}

func isTitleCase(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	r := []rune(fields[0])
	return unicode.IsUpper(r[0])
}

// sanitize replaces NaN and Inf with 0 before a value enters the vector.
// Single-value columns produce NaN moments; the contract is zero, never
// NaN.
func sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
