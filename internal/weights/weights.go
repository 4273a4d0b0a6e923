package weights

import (
	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// Options controls weight computation. Stabilization multiplies each
// inverse-probability weight by the marginal treatment prevalence of the
// level it inverts, shrinking variance without changing the estimand.
// Prevalence overrides the empirical marginals when the caller knows the
// design probabilities; leave it nil to use the observed assignment.
type Options struct {
	Stabilized bool
	Prevalence map[causal.Level]float64
}

// Compute produces one weight per sample: the reciprocal of the propensity
// the model assigned to that sample's observed treatment. The gather is by
// level label, never by column position, so arbitrary level encodings and
// orderings are safe.
func Compute(probs causal.LevelTable, a causal.Assignment, opts Options) (causal.Series, error) {
	if probs.IsZero() || probs.Len() == 0 {
		return causal.Series{}, core.NewEmptyInputError("propensity matrix")
	}
	if !probs.Index().Equal(a.Index()) {
		return causal.Series{}, core.NewAlignmentError(
			"propensity matrix and treatment assignment must share identifiers in the same order")
	}

	positions := make(map[causal.Level]int, len(probs.Levels()))
	for _, l := range a.Levels() {
		pos, ok := probs.LevelPos(l)
		if !ok {
			return causal.Series{}, core.NewLevelNotFoundError(string(l), causal.LevelStrings(probs.Levels()))
		}
		positions[l] = pos
	}

	prevalence := opts.Prevalence
	if opts.Stabilized && prevalence == nil {
		prevalence = a.Prevalence()
	}

	// First pass: a zero propensity at the observed level means the model
	// claims the observed treatment was impossible. Fail with a count
	// instead of emitting infinite weights.
	nZeros := 0
	for i := 0; i < a.Len(); i++ {
		if probs.At(i, positions[a.At(i)]) == 0 {
			nZeros++
		}
	}
	if nZeros > 0 {
		return causal.Series{}, core.NewDivisionByZeroError("propensity at observed treatment", nZeros)
	}

	vals := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		level := a.At(i)
		w := 1 / probs.At(i, positions[level])
		if opts.Stabilized {
			w *= prevalence[level]
		}
		vals[i] = w
	}
	return causal.NewSeries(a.Index(), vals)
}

// ComputeForLevel produces the counterfactual weight vector for one
// specific treatment level, for every sample regardless of what it actually
// received.
func ComputeForLevel(probs causal.LevelTable, a causal.Assignment, level causal.Level, opts Options) (causal.Series, error) {
	wm, err := ComputeMatrix(probs, a, opts)
	if err != nil {
		return causal.Series{}, err
	}
	return wm.Column(level)
}

// ComputeMatrix produces the full samples-by-levels weight matrix: the
// counterfactual weight each sample would receive under every treatment
// level, not just the observed one. Stabilization scales each level column
// by that level's marginal prevalence.
func ComputeMatrix(probs causal.LevelTable, a causal.Assignment, opts Options) (causal.LevelTable, error) {
	if probs.IsZero() || probs.Len() == 0 {
		return causal.LevelTable{}, core.NewEmptyInputError("propensity matrix")
	}
	if !probs.Index().Equal(a.Index()) {
		return causal.LevelTable{}, core.NewAlignmentError(
			"propensity matrix and treatment assignment must share identifiers in the same order")
	}

	prevalence := opts.Prevalence
	if opts.Stabilized && prevalence == nil {
		prevalence = a.Prevalence()
	}

	nZeros := 0
	data := probs.Dense()
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if data.At(i, j) == 0 {
				nZeros++
			}
		}
	}
	if nZeros > 0 {
		return causal.LevelTable{}, core.NewDivisionByZeroError("propensity matrix", nZeros)
	}

	out := probs.Clone()
	outData := out.Dense()
	for j, level := range out.Levels() {
		scale := 1.0
		if opts.Stabilized {
			scale = prevalence[level]
		}
		for i := 0; i < r; i++ {
			outData.Set(i, j, scale/data.At(i, j))
		}
	}
	return out, nil
}
