package causal

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"causalkit/domain/core"
)

// Table is an indexed covariate matrix: one row per sample, one named
// feature column. Backed by a gonum dense matrix.
type Table struct {
	ids  Index
	cols []string
	data *mat.Dense
}

// NewTable builds a covariate table from row-major data.
func NewTable(ids Index, cols []string, rows [][]float64) (Table, error) {
	if len(rows) != len(ids) {
		return Table{}, core.NewAlignmentError(fmt.Sprintf(
			"covariate matrix has %d rows but %d sample identifiers", len(rows), len(ids)))
	}
	if len(ids) == 0 {
		return Table{}, core.NewEmptyInputError("covariate matrix")
	}
	flat := make([]float64, 0, len(rows)*len(cols))
	for i, row := range rows {
		if len(row) != len(cols) {
			return Table{}, core.NewAlignmentError(fmt.Sprintf(
				"covariate row %d has %d values but %d feature columns", i, len(row), len(cols)))
		}
		flat = append(flat, row...)
	}
	return Table{ids: ids, cols: cols, data: mat.NewDense(len(ids), len(cols), flat)}, nil
}

// MustTable builds a table or panics. Test and fixture use only.
func MustTable(ids Index, cols []string, rows [][]float64) Table {
	t, err := NewTable(ids, cols, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Table) Len() int          { return len(t.ids) }
func (t Table) NumFeatures() int  { return len(t.cols) }
func (t Table) Columns() []string { return t.cols }
func (t Table) Index() Index      { return t.ids }

// IsZero reports whether the table is the zero value (no backing matrix).
func (t Table) IsZero() bool { return t.data == nil }

// Row returns a copy of row i.
func (t Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// Dense exposes the backing matrix for numeric code. Callers must not
// modify it.
func (t Table) Dense() *mat.Dense { return t.data }

// LevelTable is an indexed sample-by-treatment-level matrix. It carries
// propensity scores, per-level weights, and per-level potential outcomes.
// Rows need not sum to 1: a mis-calibrated model is diagnosed, not rejected.
type LevelTable struct {
	ids    Index
	levels []Level
	data   *mat.Dense
}

// NewLevelTable wraps a dense matrix with sample and level labels.
func NewLevelTable(ids Index, levels []Level, data *mat.Dense) (LevelTable, error) {
	r, c := data.Dims()
	if r != len(ids) {
		return LevelTable{}, core.NewAlignmentError(fmt.Sprintf(
			"level table has %d rows but %d sample identifiers", r, len(ids)))
	}
	if c != len(levels) {
		return LevelTable{}, core.NewAlignmentError(fmt.Sprintf(
			"level table has %d columns but %d level labels", c, len(levels)))
	}
	return LevelTable{ids: ids, levels: levels, data: data}, nil
}

// NewLevelTableFromRows builds a level table from row-major data.
func NewLevelTableFromRows(ids Index, levels []Level, rows [][]float64) (LevelTable, error) {
	flat := make([]float64, 0, len(rows)*len(levels))
	for i, row := range rows {
		if len(row) != len(levels) {
			return LevelTable{}, core.NewAlignmentError(fmt.Sprintf(
				"level table row %d has %d values but %d level labels", i, len(row), len(levels)))
		}
		flat = append(flat, row...)
	}
	if len(ids) == 0 || len(levels) == 0 {
		return LevelTable{}, core.NewEmptyInputError("level table")
	}
	return NewLevelTable(ids, levels, mat.NewDense(len(ids), len(levels), flat))
}

func (t LevelTable) Len() int        { return len(t.ids) }
func (t LevelTable) Levels() []Level { return t.levels }
func (t LevelTable) Index() Index    { return t.ids }

// IsZero reports whether the table is the zero value (no backing matrix).
func (t LevelTable) IsZero() bool { return t.data == nil }

// LevelPos returns the column position of a level.
func (t LevelTable) LevelPos(l Level) (int, bool) {
	for i, known := range t.levels {
		if known == l {
			return i, true
		}
	}
	return -1, false
}

// HasLevel reports whether the table has a column for the level.
func (t LevelTable) HasLevel(l Level) bool {
	_, ok := t.LevelPos(l)
	return ok
}

// Column extracts one level's values as an indexed series.
func (t LevelTable) Column(l Level) (Series, error) {
	pos, ok := t.LevelPos(l)
	if !ok {
		return Series{}, core.NewLevelNotFoundError(string(l), LevelStrings(t.levels))
	}
	vals := make([]float64, len(t.ids))
	mat.Col(vals, pos, t.data)
	return Series{ids: t.ids, vals: vals}, nil
}

// At returns the value for sample row i under column position j.
func (t LevelTable) At(i, j int) float64 { return t.data.At(i, j) }

// Dense exposes the backing matrix. Callers must not modify it.
func (t LevelTable) Dense() *mat.Dense { return t.data }

// Clone returns a deep copy, used before in-place numeric transforms so the
// source table stays immutable.
func (t LevelTable) Clone() LevelTable {
	data := mat.DenseCopyOf(t.data)
	levels := make([]Level, len(t.levels))
	copy(levels, t.levels)
	return LevelTable{ids: t.ids.Clone(), levels: levels, data: data}
}
