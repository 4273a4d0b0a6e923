package estimation

import (
	"math"

	"causalkit/domain/causal"
	"causalkit/ports"
)

// Outcome type labels inferred from the observed outcome vector.
const (
	OutcomeClassification = "classification"
	OutcomeRegression     = "regression"
	OutcomeUnknown        = "unknown"
)

// FittedState is the explicit value object recording what a completed Fit
// produced. Readiness checks read its markers instead of probing estimator
// attributes, so "is this estimator usable" has exactly one answer.
type FittedState struct {
	Learner     ports.Learner
	Levels      []causal.Level
	NSamples    int
	OutcomeType string
}

// Markers exposes the named fit preconditions for readiness checking.
// A nil state reports every marker missing.
func (s *FittedState) Markers() map[string]bool {
	if s == nil {
		return map[string]bool{
			"trained learner":  false,
			"treatment levels": false,
			"sample count":     false,
		}
	}
	return map[string]bool{
		"trained learner":  s.Learner != nil,
		"treatment levels": len(s.Levels) > 0,
		"sample count":     s.NSamples > 0,
	}
}

// InferOutcomeType classifies an outcome vector: integral values taking at
// most two distinct levels read as a classification target, anything else
// numeric as regression. A zero-value series is unknown.
func InferOutcomeType(y causal.Series) string {
	if y.IsZero() {
		return OutcomeUnknown
	}
	distinct := make(map[float64]bool)
	for _, v := range y.Values() {
		if math.IsNaN(v) {
			continue
		}
		if v != math.Trunc(v) {
			return OutcomeRegression
		}
		distinct[v] = true
	}
	if len(distinct) == 0 {
		return OutcomeUnknown
	}
	if len(distinct) <= 2 {
		return OutcomeClassification
	}
	return OutcomeRegression
}
