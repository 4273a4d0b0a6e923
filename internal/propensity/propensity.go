package propensity

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"causalkit/domain/causal"
	"causalkit/domain/core"
	"causalkit/internal/diagnostics"
	"causalkit/ports"
)

// ClipStats records how many scores a clipping pass moved.
type ClipStats struct {
	NClippedLow  int     `json:"n_clipped_low"`
	NClippedHigh int     `json:"n_clipped_high"`
	PctClipped   float64 `json:"pct_clipped"`
}

// NClipped returns the total number of clipped entries.
func (c ClipStats) NClipped() int { return c.NClippedLow + c.NClippedHigh }

// Extract obtains a per-sample, per-level propensity matrix from a fitted
// learner. Calibrated probabilities are preferred; when the learner only
// exposes a raw decision score, that score is used as-is for the first
// fit-time level and a warning records the degraded capability.
func Extract(learner ports.Learner, X causal.Table, log *diagnostics.Log) (causal.LevelTable, error) {
	if pe, ok := learner.(ports.ProbabilityEstimator); ok {
		m, err := pe.PredictProba(X)
		if err != nil {
			return causal.LevelTable{}, err
		}
		if !m.Index().Equal(X.Index()) {
			return causal.LevelTable{}, core.NewAlignmentError(
				"learner returned probabilities with an index different from the covariates")
		}
		return m, nil
	}
	if ds, ok := learner.(ports.DecisionScorer); ok {
		scores, err := ds.DecisionScore(X)
		if err != nil {
			return causal.LevelTable{}, err
		}
		levels := learner.Levels()
		if len(levels) == 0 {
			return causal.LevelTable{}, core.NewNotFittedError(learner.Name(), []string{"treatment levels"})
		}
		diagnostics.WarnLearnerInterface(log, learner.Name(), "PredictProba")
		vals := make([]float64, scores.Len())
		copy(vals, scores.Values())
		data := mat.NewDense(scores.Len(), 1, vals)
		return causal.NewLevelTable(scores.Index(), levels[:1], data)
	}
	return causal.LevelTable{}, core.NewLearnerInterfaceError(learner.Name(), "PredictProba or DecisionScore")
}

// Clip bounds every score in the matrix to [lo, hi]. Either bound may be
// nil, leaving that side open. The source matrix is never modified, and
// clipping already-clipped scores with the same bounds is a no-op.
func Clip(m causal.LevelTable, lo, hi *float64) (causal.LevelTable, ClipStats, error) {
	if err := ValidateBounds(lo, hi); err != nil {
		return causal.LevelTable{}, ClipStats{}, err
	}
	out := m.Clone()
	stats := ClipStats{}
	if lo == nil && hi == nil {
		return out, stats, nil
	}

	data := out.Dense()
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := data.At(i, j)
			if lo != nil && v < *lo {
				data.Set(i, j, *lo)
				stats.NClippedLow++
			} else if hi != nil && v > *hi {
				data.Set(i, j, *hi)
				stats.NClippedHigh++
			}
		}
	}
	if n := r * c; n > 0 {
		stats.PctClipped = 100 * float64(stats.NClipped()) / float64(n)
	}
	return out, stats, nil
}

// ValidateBounds enforces the clipping contract: the lower bound lives in
// [0, 0.5], the upper bound in [0.5, 1], and the lower bound stays strictly
// below the upper. Either bound may be nil.
func ValidateBounds(lo, hi *float64) error {
	if lo != nil && (*lo < 0 || *lo > 0.5) {
		return core.NewRangeError("clip lower bound", fmt.Sprintf(
			"%.6f is outside [0, 0.5]", *lo))
	}
	if hi != nil && (*hi < 0.5 || *hi > 1) {
		return core.NewRangeError("clip upper bound", fmt.Sprintf(
			"%.6f is outside [0.5, 1]", *hi))
	}
	if lo != nil && hi != nil && *lo >= *hi {
		return core.NewRangeError("clip bounds", fmt.Sprintf(
			"lower bound %.6f must be strictly below upper bound %.6f", *lo, *hi))
	}
	return nil
}
