package excel

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"causalkit/domain/core"
)

func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}

func TestReadFileFullDataset(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"id", "age", "bmi", "treatment", "outcome"},
		{"p7", 54, 22.5, "drug", 1.5},
		{"p2", 61, 27.0, "placebo", 0.8},
		{"p9", 47, 24.1, "drug", 2.1},
	})

	ds, err := ReadFile(path, Options{
		IDColumn:        "id",
		TreatmentColumn: "treatment",
		OutcomeColumn:   "outcome",
	})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if ds.X.Len() != 3 || ds.X.NumFeatures() != 2 {
		t.Fatalf("covariates = %dx%d, want 3x2", ds.X.Len(), ds.X.NumFeatures())
	}
	if got := ds.X.Index()[0]; string(got) != "p7" {
		t.Errorf("first id = %q, want p7", got)
	}
	if got := ds.A.At(1); string(got) != "placebo" {
		t.Errorf("treatment[1] = %q, want placebo", got)
	}
	if got := ds.Y.At(2); got != 2.1 {
		t.Errorf("outcome[2] = %v, want 2.1", got)
	}
	if got := ds.X.Row(0)[1]; got != 22.5 {
		t.Errorf("bmi[0] = %v, want 22.5", got)
	}
}

func TestReadFileBlankOutcomeIsMissing(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"x", "treatment", "outcome"},
		{1.0, "a", 5.0},
		{2.0, "b", ""},
	})

	ds, err := ReadFile(path, Options{TreatmentColumn: "treatment", OutcomeColumn: "outcome"})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !math.IsNaN(ds.Y.At(1)) {
		t.Errorf("blank outcome read as %v, want NaN", ds.Y.At(1))
	}
	// Numbered identifiers when no id column is named.
	if string(ds.X.Index()[1]) != "1" {
		t.Errorf("default id = %q, want 1", ds.X.Index()[1])
	}
}

func TestReadFileWithoutOutcomeColumn(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"x", "treatment"},
		{1.0, "a"},
		{2.0, "b"},
	})

	ds, err := ReadFile(path, Options{TreatmentColumn: "treatment"})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !ds.Y.IsZero() {
		t.Error("outcome should be the zero series when no column is requested")
	}
}

func TestReadFileMissingTreatmentColumn(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"x", "group"},
		{1.0, "a"},
	})

	_, err := ReadFile(path, Options{TreatmentColumn: "treatment"})
	if !errors.Is(err, core.ErrStructuralType) {
		t.Fatalf("expected structural-type error, got %v", err)
	}
}

func TestReadFileNonNumericCovariate(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"x", "treatment"},
		{"not a number", "a"},
	})

	_, err := ReadFile(path, Options{TreatmentColumn: "treatment"})
	if !errors.Is(err, core.ErrStructuralType) {
		t.Fatalf("expected structural-type error, got %v", err)
	}
}

func TestReadFileEmptySheet(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"x", "treatment"},
	})

	_, err := ReadFile(path, Options{TreatmentColumn: "treatment"})
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Fatalf("expected empty-input error, got %v", err)
	}
}
