// Package excel loads estimation datasets from spreadsheet files. The first
// sheet is read as a header row followed by one row per sample: an optional
// identifier column, a treatment column, an optional outcome column, and
// numeric covariate columns for everything else.
package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// Options names the special columns of a dataset sheet. Column matching is
// case-insensitive.
type Options struct {
	// IDColumn holds sample identifiers. Empty means rows are numbered.
	IDColumn string

	// TreatmentColumn holds the observed treatment level. Required.
	TreatmentColumn string

	// OutcomeColumn holds the observed outcome. Empty means no outcome is
	// loaded. Blank cells become missing values.
	OutcomeColumn string

	// Sheet selects a sheet by name. Empty means the first sheet.
	Sheet string
}

// Dataset is the loaded triple. Y is the zero value when no outcome column
// was requested.
type Dataset struct {
	X causal.Table
	A causal.Assignment
	Y causal.Series
}

// ReadFile loads a dataset from an xlsx file on disk.
func ReadFile(path string, opts Options) (Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return read(f, opts)
}

func read(f *excelize.File, opts Options) (Dataset, error) {
	if opts.TreatmentColumn == "" {
		return Dataset{}, core.NewStructuralTypeError("treatment column", "must be named")
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return Dataset{}, core.NewEmptyInputError("dataset sheet")
	}

	header := rows[0]
	idCol, treatCol, outCol := -1, -1, -1
	var covCols []int
	var covNames []string
	for j, name := range header {
		switch {
		case opts.IDColumn != "" && strings.EqualFold(name, opts.IDColumn):
			idCol = j
		case strings.EqualFold(name, opts.TreatmentColumn):
			treatCol = j
		case opts.OutcomeColumn != "" && strings.EqualFold(name, opts.OutcomeColumn):
			outCol = j
		default:
			covCols = append(covCols, j)
			covNames = append(covNames, name)
		}
	}
	if treatCol == -1 {
		return Dataset{}, core.NewStructuralTypeError(
			fmt.Sprintf("treatment column %q", opts.TreatmentColumn), "not found in header")
	}
	if opts.OutcomeColumn != "" && outCol == -1 {
		return Dataset{}, core.NewStructuralTypeError(
			fmt.Sprintf("outcome column %q", opts.OutcomeColumn), "not found in header")
	}
	if len(covCols) == 0 {
		return Dataset{}, core.NewEmptyInputError("covariate columns")
	}

	n := len(rows) - 1
	ids := make(causal.Index, n)
	levels := make([]causal.Level, n)
	covRows := make([][]float64, n)
	outcomes := make([]float64, n)

	for i, row := range rows[1:] {
		if idCol >= 0 {
			ids[i] = causal.SampleID(cell(row, idCol))
		} else {
			ids[i] = causal.SampleID(strconv.Itoa(i))
		}
		levels[i] = causal.Level(cell(row, treatCol))

		covRows[i] = make([]float64, len(covCols))
		for k, j := range covCols {
			v, err := parseCell(cell(row, j))
			if err != nil {
				return Dataset{}, core.NewStructuralTypeError(
					fmt.Sprintf("covariate %q row %d", covNames[k], i+2),
					fmt.Sprintf("is not numeric: %q", cell(row, j)))
			}
			covRows[i][k] = v
		}

		if outCol >= 0 {
			raw := cell(row, outCol)
			if raw == "" {
				outcomes[i] = math.NaN()
			} else {
				v, err := parseCell(raw)
				if err != nil {
					return Dataset{}, core.NewStructuralTypeError(
						fmt.Sprintf("outcome row %d", i+2),
						fmt.Sprintf("is not numeric: %q", raw))
				}
				outcomes[i] = v
			}
		}
	}

	X, err := causal.NewTable(ids, covNames, covRows)
	if err != nil {
		return Dataset{}, err
	}
	a, err := causal.NewAssignment(ids, levels)
	if err != nil {
		return Dataset{}, err
	}
	ds := Dataset{X: X, A: a}
	if outCol >= 0 {
		y, err := causal.NewSeries(ids, outcomes)
		if err != nil {
			return Dataset{}, err
		}
		ds.Y = y
	}
	return ds, nil
}

// cell returns a trimmed cell value, tolerating ragged rows.
func cell(row []string, j int) string {
	if j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

func parseCell(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
