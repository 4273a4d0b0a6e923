package causal

import (
	"fmt"
	"math"

	"causalkit/domain/core"
)

// Series is an indexed vector of float64 values, one per sample.
// NaN marks a missing value.
type Series struct {
	ids  Index
	vals []float64
}

// NewSeries pairs values with sample identifiers. Length mismatch is an
// alignment error: a value without an identity cannot be tracked through
// estimation.
func NewSeries(ids Index, vals []float64) (Series, error) {
	if len(ids) != len(vals) {
		return Series{}, core.NewAlignmentError(fmt.Sprintf(
			"series has %d values but %d sample identifiers", len(vals), len(ids)))
	}
	return Series{ids: ids, vals: vals}, nil
}

// MustSeries builds a series or panics. Test and fixture use only.
func MustSeries(ids Index, vals []float64) Series {
	s, err := NewSeries(ids, vals)
	if err != nil {
		panic(err)
	}
	return s
}

// ConstantSeries builds a series holding the same value for every identifier.
func ConstantSeries(ids Index, v float64) Series {
	vals := make([]float64, len(ids))
	for i := range vals {
		vals[i] = v
	}
	return Series{ids: ids, vals: vals}
}

func (s Series) Len() int     { return len(s.vals) }
func (s Series) Index() Index { return s.ids }

// Values returns the underlying value slice. Callers must not modify it.
func (s Series) Values() []float64 { return s.vals }

func (s Series) At(i int) float64 { return s.vals[i] }

// IsZero reports whether the series is the zero value (no index, no data).
func (s Series) IsZero() bool { return s.ids == nil && s.vals == nil }

// CountMissing returns the number of NaN entries.
func (s Series) CountMissing() int {
	n := 0
	for _, v := range s.vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// DropMissing returns a new series with NaN entries removed.
func (s Series) DropMissing() Series {
	ids := make(Index, 0, len(s.ids))
	vals := make([]float64, 0, len(s.vals))
	for i, v := range s.vals {
		if !math.IsNaN(v) {
			ids = append(ids, s.ids[i])
			vals = append(vals, v)
		}
	}
	return Series{ids: ids, vals: vals}
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	vals := make([]float64, len(s.vals))
	copy(vals, s.vals)
	return Series{ids: s.ids.Clone(), vals: vals}
}
