// Package logistic provides a multinomial logistic regression treatment
// model trained by batch gradient descent. It is the default learner for
// inverse probability weighting: simple, dependency-light, and calibrated
// enough for propensity estimation on modest feature counts.
package logistic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// Model is a softmax regression classifier over treatment levels. The zero
// value is unusable; construct with New.
type Model struct {
	learningRate float64
	iterations   int
	l2           float64

	levels  []causal.Level
	weights *mat.Dense // (features+1) x levels, first row is the intercept
}

// ModelOption configures the trainer.
type ModelOption func(*Model)

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(rate float64) ModelOption {
	return func(m *Model) { m.learningRate = rate }
}

// WithIterations sets the number of full-batch descent steps.
func WithIterations(n int) ModelOption {
	return func(m *Model) { m.iterations = n }
}

// WithL2 sets the ridge penalty on non-intercept coefficients.
func WithL2(lambda float64) ModelOption {
	return func(m *Model) { m.l2 = lambda }
}

// New builds an untrained model with sane defaults.
func New(opts ...ModelOption) *Model {
	m := &Model{learningRate: 0.1, iterations: 500, l2: 1e-4}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name identifies the learner in errors and summaries.
func (m *Model) Name() string { return "logistic" }

// Levels returns the treatment levels seen at fit time, in column order.
func (m *Model) Levels() []causal.Level {
	out := make([]causal.Level, len(m.levels))
	copy(out, m.levels)
	return out
}

// Fit trains the classifier on covariates and observed treatment. Levels
// are taken in the assignment's deterministic order, so prediction columns
// are stable across refits on the same data.
func (m *Model) Fit(X causal.Table, a causal.Assignment) error {
	if X.IsZero() || X.Len() == 0 {
		return core.NewEmptyInputError("covariate matrix")
	}
	if !X.Index().Equal(a.Index()) {
		return core.NewAlignmentError(
			"covariate matrix and treatment assignment must share identifiers in the same order")
	}
	levels := a.Levels()
	if len(levels) < 2 {
		return core.NewDegenerateTreatmentError(len(levels))
	}

	n := X.Len()
	p := X.NumFeatures() + 1 // intercept column
	k := len(levels)

	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		row := X.Row(i)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	// One-hot treatment indicator per level column.
	pos := make(map[causal.Level]int, k)
	for j, l := range levels {
		pos[l] = j
	}
	indicator := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		indicator.Set(i, pos[a.At(i)], 1)
	}

	w := mat.NewDense(p, k, nil)
	logits := mat.NewDense(n, k, nil)
	grad := mat.NewDense(p, k, nil)
	for iter := 0; iter < m.iterations; iter++ {
		logits.Mul(design, w)
		softmaxRows(logits)

		// gradient = X^T (softmax - indicator) / n + l2 * w
		logits.Sub(logits, indicator)
		grad.Mul(design.T(), logits)
		grad.Scale(1/float64(n), grad)
		for j := 0; j < k; j++ {
			for r := 1; r < p; r++ { // intercept unpenalized
				grad.Set(r, j, grad.At(r, j)+m.l2*w.At(r, j))
			}
		}
		grad.Scale(m.learningRate, grad)
		w.Sub(w, grad)
	}

	m.levels = levels
	m.weights = w
	return nil
}

// PredictProba returns per-level treatment probabilities for new covariates.
// Rows sum to 1.
func (m *Model) PredictProba(X causal.Table) (causal.LevelTable, error) {
	if m.weights == nil {
		return causal.LevelTable{}, core.NewNotFittedError(m.Name(), []string{"coefficients"})
	}
	p, _ := m.weights.Dims()
	if X.NumFeatures()+1 != p {
		return causal.LevelTable{}, core.NewAlignmentError(fmt.Sprintf(
			"covariates have %d features but the model was fit on %d", X.NumFeatures(), p-1))
	}

	n := X.Len()
	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j, v := range X.Row(i) {
			design.Set(i, j+1, v)
		}
	}
	probs := mat.NewDense(n, len(m.levels), nil)
	probs.Mul(design, m.weights)
	softmaxRows(probs)
	return causal.NewLevelTable(X.Index(), m.Levels(), probs)
}

// softmaxRows converts each row of logits to probabilities in place, with
// the usual max-shift for numerical stability.
func softmaxRows(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		max := math.Inf(-1)
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v > max {
				max = v
			}
		}
		sum := 0.0
		for j := 0; j < c; j++ {
			v := math.Exp(m.At(i, j) - max)
			m.Set(i, j, v)
			sum += v
		}
		for j := 0; j < c; j++ {
			m.Set(i, j, m.At(i, j)/sum)
		}
	}
}
