package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumeric_DropsMissing(t *testing.T) {
	t.Parallel()

	col := Numeric([]float64{1.5, math.NaN(), 2.5, math.Inf(1), 3.5})
	require.Equal(t, KindNumeric, col.Kind())
	assert.Equal(t, 3, col.Len())
	assert.Equal(t, 5, col.RawLen())
	assert.InDelta(t, 2.0/5.0, col.MissingRatio(), 1e-12)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, col.Values())
}

func TestText_DropsMissingMarkers(t *testing.T) {
	t.Parallel()

	col := Text([]string{"Araucaria columnaris", "NA", "", "  null ", "Agathis lanceolata", "-"})
	require.Equal(t, KindText, col.Kind())
	require.Equal(t, 2, col.Len())
	assert.Equal(t, "Araucaria columnaris", col.Strings()[0])
	assert.Equal(t, "Agathis lanceolata", col.Strings()[1])
}

func TestColumn_Empty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		col   Column
		empty bool
	}{
		{"all NaN numeric", Numeric([]float64{math.NaN(), math.NaN()}), true},
		{"all markers text", Text([]string{"NA", "", "null"}), true},
		{"no values at all", Numeric(nil), true},
		{"one value", Numeric([]float64{12.3}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.empty, tc.col.Empty())
		})
	}
}

func TestTableContext_Valid(t *testing.T) {
	t.Parallel()

	kinds := []Kind{KindNumeric, KindText, KindNumeric}

	cases := []struct {
		name  string
		ctx   *TableContext
		valid bool
	}{
		{"nil context", nil, false},
		{"in range", &TableContext{Kinds: kinds, Index: 1}, true},
		{"negative index", &TableContext{Kinds: kinds, Index: -1}, false},
		{"index past end", &TableContext{Kinds: kinds, Index: 3}, false},
		{"empty kinds", &TableContext{Kinds: nil, Index: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.ctx.Valid())
		})
	}
}
