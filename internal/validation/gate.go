package validation

import (
	"fmt"
	"sort"

	"causalkit/domain/causal"
	"causalkit/domain/core"
	"causalkit/internal/diagnostics"
	"causalkit/ports"
)

// The validation gate runs before any numeric work. Every public estimation
// entry point calls through here, so the numeric core can assume aligned,
// non-degenerate inputs.

// CheckXA validates covariates and treatment assignment together: structure,
// index alignment, treatment completeness and non-degeneracy.
func CheckXA(X causal.Table, a causal.Assignment) error {
	if X.IsZero() || X.Len() == 0 {
		return core.NewEmptyInputError("covariate matrix")
	}
	if a.Len() == 0 {
		return core.NewEmptyInputError("treatment assignment")
	}
	if err := checkAligned(X.Index(), a.Index(), "covariate matrix", "treatment assignment"); err != nil {
		return err
	}
	if n := a.CountMissing(); n > 0 {
		return core.NewMissingDataError("treatment assignment", n, a.Len())
	}
	return CheckConsistentAssignment(a)
}

// CheckXAY validates the full (X, a, y) triple. Missing outcome values are
// tolerated up to half the sample: past that the estimate would describe a
// minority of the data, so the check fails instead of warning.
func CheckXAY(X causal.Table, a causal.Assignment, y causal.Series, log *diagnostics.Log) error {
	if err := CheckXA(X, a); err != nil {
		return err
	}
	if y.Len() == 0 {
		return core.NewEmptyInputError("outcome")
	}
	if err := checkAligned(X.Index(), y.Index(), "covariate matrix", "outcome"); err != nil {
		return err
	}
	if n := y.CountMissing(); n > 0 {
		if 2*n > y.Len() {
			return core.NewMissingDataError("outcome", n, y.Len())
		}
		diagnostics.WarnMissingValues(log, "outcome", n, y.Len())
	}
	return nil
}

// CheckConsistentAssignment requires at least two observed treatment levels.
// A single-level assignment admits no contrast and no estimand.
func CheckConsistentAssignment(a causal.Assignment) error {
	if n := len(a.Levels()); n < 2 {
		return core.NewDegenerateTreatmentError(n)
	}
	return nil
}

// CheckLevelsMatch compares treatment levels seen at prediction time against
// those seen at fit time. With allowSubset, predicting on fewer levels than
// were fit is fine; a level the model never saw is always an error.
func CheckLevelsMatch(fitLevels, newLevels []causal.Level, allowSubset bool) error {
	known := make(map[causal.Level]bool, len(fitLevels))
	for _, l := range fitLevels {
		known[l] = true
	}
	var unseen []string
	for _, l := range newLevels {
		if !known[l] {
			unseen = append(unseen, string(l))
		}
	}
	if len(unseen) > 0 {
		sort.Strings(unseen)
		return core.NewAlignmentError(fmt.Sprintf(
			"treatment levels %v were not present at fit time (known levels: %v)",
			unseen, causal.LevelStrings(fitLevels)))
	}
	if !allowSubset && len(newLevels) < len(fitLevels) {
		return core.NewAlignmentError(fmt.Sprintf(
			"treatment has %d levels but the model was fit on %d",
			len(newLevels), len(fitLevels)))
	}
	return nil
}

// CheckIsFitted verifies that every named fit marker is set. The marker map
// is supplied by the estimator's fitted-state value object, so readiness is
// an explicit contract instead of attribute probing.
func CheckIsFitted(estimatorName string, markers map[string]bool) error {
	var missing []string
	for name, set := range markers {
		if !set {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return core.NewNotFittedError(estimatorName, missing)
	}
	return nil
}

// CheckLearnerCapability verifies the learner exposes at least one usable
// prediction capability.
func CheckLearnerCapability(learner ports.Learner) error {
	if learner == nil {
		return core.NewStructuralTypeError("learner", "is nil")
	}
	if _, ok := learner.(ports.ProbabilityEstimator); ok {
		return nil
	}
	if _, ok := learner.(ports.DecisionScorer); ok {
		return nil
	}
	return core.NewLearnerInterfaceError(learner.Name(), "PredictProba or DecisionScore")
}

// ValidatePropensityScores rejects a propensity matrix containing values
// outside [0, 1] or NaN. Rows summing away from 1 are a calibration concern
// for diagnostics, not a validation failure.
func ValidatePropensityScores(m causal.LevelTable) error {
	if m.IsZero() || m.Len() == 0 {
		return core.NewEmptyInputError("propensity matrix")
	}
	for i := 0; i < m.Len(); i++ {
		for j := range m.Levels() {
			v := m.At(i, j)
			if v != v { // NaN
				return core.NewRangeError("propensity matrix", fmt.Sprintf(
					"NaN score for sample %q under level %q", m.Index()[i], m.Levels()[j]))
			}
			if v < 0 || v > 1 {
				return core.NewRangeError("propensity matrix", fmt.Sprintf(
					"score %.6f for sample %q under level %q is outside [0, 1]",
					v, m.Index()[i], m.Levels()[j]))
			}
		}
	}
	return nil
}

func checkAligned(a, b causal.Index, aName, bName string) error {
	if a.Equal(b) {
		return nil
	}
	if len(a) != len(b) {
		return core.NewAlignmentError(fmt.Sprintf(
			"%s has %d samples but %s has %d", aName, len(a), bName, len(b)))
	}
	return core.NewAlignmentError(fmt.Sprintf(
		"%s index %v... does not match %s index %v...; inputs must share identifiers in the same order",
		aName, a.Head(3), bName, b.Head(3)))
}
