// Package sample holds the immutable column representation that the rest of
// the classifier operates on. Values arrive already parsed by an upstream
// file reader; this package only normalizes missing markers and tags each
// column with its primitive kind.
package sample

import (
	"math"
	"strings"
)

// Kind is the primitive kind of a column, resolved once at construction.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Missing markers recognized in text columns, compared case-insensitively
// after trimming.
var textMissing = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"-":    {},
}

// Column is one column of raw values. It is immutable after construction:
// the constructors copy and clean their input, and accessors return the
// cleaned values. Callers must not modify returned slices.
type Column struct {
	kind    Kind
	numeric []float64
	text    []string
	rawLen  int
}

// Numeric builds a numeric column. NaN and Inf entries are treated as
// missing and dropped; rawLen keeps the original count so the missing
// ratio stays observable.
func Numeric(values []float64) Column {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	return Column{kind: KindNumeric, numeric: clean, rawLen: len(values)}
}

// Text builds a text column. Recognized missing markers are dropped and
// surrounding whitespace is trimmed.
func Text(values []string) Column {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		t := strings.TrimSpace(v)
		if _, miss := textMissing[strings.ToLower(t)]; miss {
			continue
		}
		clean = append(clean, t)
	}
	return Column{kind: KindText, text: clean, rawLen: len(values)}
}

func (c Column) Kind() Kind { return c.kind }

// Values returns the cleaned numeric values. Empty for text columns.
func (c Column) Values() []float64 { return c.numeric }

// Strings returns the cleaned text values. Empty for numeric columns.
func (c Column) Strings() []string { return c.text }

// Len is the number of usable values after cleaning.
func (c Column) Len() int {
	if c.kind == KindNumeric {
		return len(c.numeric)
	}
	return len(c.text)
}

// RawLen is the number of values before missing markers were dropped.
func (c Column) RawLen() int { return c.rawLen }

// Empty reports whether no usable values survived cleaning.
func (c Column) Empty() bool { return c.Len() == 0 }

// MissingRatio is the fraction of raw values that were missing markers.
func (c Column) MissingRatio() float64 {
	if c.rawLen == 0 {
		return 0
	}
	return float64(c.rawLen-c.Len()) / float64(c.rawLen)
}

// TableContext describes the table a column came from, for the optional
// contextual feature group. Kinds lists every column kind in table order
// and Index is the position of the column under analysis.
type TableContext struct {
	Kinds []Kind
	Index int
}

// Valid reports whether the context is usable: a sane index into a
// non-empty kind list.
func (t *TableContext) Valid() bool {
	return t != nil && len(t.Kinds) > 0 && t.Index >= 0 && t.Index < len(t.Kinds)
}
