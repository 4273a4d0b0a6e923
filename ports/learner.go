package ports

import (
	"causalkit/domain/causal"
)

// Learner is the minimal contract for a pluggable treatment model. The core
// never inspects a learner beyond these capability checks.
type Learner interface {
	// Fit trains the model on covariates and observed treatment assignment.
	Fit(X causal.Table, a causal.Assignment) error

	// Levels returns the treatment levels the learner was fit on, in the
	// column order its predictions use. Empty before Fit.
	Levels() []causal.Level

	// Name identifies the learner in error messages and summaries.
	Name() string
}

// ProbabilityEstimator is the preferred capability: per-level class
// probabilities given covariates.
type ProbabilityEstimator interface {
	Learner

	// PredictProba returns a samples-by-levels probability matrix whose
	// columns are labeled by the fit-time treatment levels and whose row
	// index matches X exactly.
	PredictProba(X causal.Table) (causal.LevelTable, error)
}

// DecisionScorer is the fallback capability: a raw per-sample decision
// score, used directly without calibration.
type DecisionScorer interface {
	Learner

	DecisionScore(X causal.Table) (causal.Series, error)
}
