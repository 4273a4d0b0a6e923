package estimation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"causalkit/domain/causal"
	"causalkit/domain/core"
	"causalkit/internal/diagnostics"
	"causalkit/internal/effects"
	"causalkit/internal/propensity"
	"causalkit/internal/validation"
	"causalkit/internal/weights"
	"causalkit/ports"
)

// Aggregation methods for population outcome estimation.
const (
	AggregateMean   = "mean"
	AggregateMedian = "median"
)

// IPW estimates treatment effects by inverse probability weighting: a
// treatment model yields per-sample propensity scores, their reciprocals
// reweight the observed outcomes into a pseudo-population free of measured
// confounding, and contrasts of the weighted group outcomes estimate the
// effect.
//
// IPW is not safe for concurrent use; share the warning Log, not the
// estimator.
type IPW struct {
	name       string
	learner    ports.Learner
	clipLo     *float64
	clipHi     *float64
	stabilized bool
	log        *diagnostics.Log

	state     *FittedState
	clipStats propensity.ClipStats
}

// Option configures an IPW estimator at construction time.
type Option func(*IPW)

// WithName overrides the default estimator name used in errors and summaries.
func WithName(name string) Option {
	return func(e *IPW) { e.name = name }
}

// WithClipBounds bounds extracted propensity scores to [lo, hi]. Either
// bound may be nil.
func WithClipBounds(lo, hi *float64) Option {
	return func(e *IPW) { e.clipLo, e.clipHi = lo, hi }
}

// WithStabilization multiplies weights by marginal treatment prevalence.
func WithStabilization(on bool) Option {
	return func(e *IPW) { e.stabilized = on }
}

// WithLog injects the warning accumulator. Without one, warnings are dropped.
func WithLog(log *diagnostics.Log) Option {
	return func(e *IPW) { e.log = log }
}

// NewIPW builds an IPW estimator around a treatment model. The learner's
// capabilities and the clip bounds are checked here so misconfiguration
// fails at construction, not mid-pipeline.
func NewIPW(learner ports.Learner, opts ...Option) (*IPW, error) {
	if err := validation.CheckLearnerCapability(learner); err != nil {
		return nil, err
	}
	e := &IPW{name: "IPW", learner: learner}
	for _, opt := range opts {
		opt(e)
	}
	if err := propensity.ValidateBounds(e.clipLo, e.clipHi); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *IPW) Name() string { return e.name }

// IsFitted reports whether Fit has completed successfully.
func (e *IPW) IsFitted() bool {
	for _, set := range e.state.Markers() {
		if !set {
			return false
		}
	}
	return true
}

// State returns the fitted-state value object, nil before Fit.
func (e *IPW) State() *FittedState { return e.state }

// ClipStats returns counts from the most recent propensity clipping pass.
func (e *IPW) ClipStats() propensity.ClipStats { return e.clipStats }

// Fit validates the inputs and trains the treatment model. A failed fit
// leaves the estimator unfitted; a repeated fit replaces the previous state
// entirely.
func (e *IPW) Fit(X causal.Table, a causal.Assignment) error {
	e.state = nil
	if err := validation.CheckXA(X, a); err != nil {
		return err
	}
	if counts := a.Counts(); len(counts) > 0 {
		diagnostics.WarnTreatmentDominance(e.log, counts)
	}
	if err := e.learner.Fit(X, a); err != nil {
		return fmt.Errorf("fitting treatment model %s: %w", e.learner.Name(), err)
	}
	levels := e.learner.Levels()
	if len(levels) == 0 {
		levels = a.Levels()
	}
	e.state = &FittedState{
		Learner:     e.learner,
		Levels:      levels,
		NSamples:    X.Len(),
		OutcomeType: OutcomeUnknown,
	}
	return nil
}

// PropensityMatrix extracts, validates, and clips the per-sample
// per-level propensity scores for new covariates.
func (e *IPW) PropensityMatrix(X causal.Table, a causal.Assignment) (causal.LevelTable, error) {
	if err := e.checkFitted(); err != nil {
		return causal.LevelTable{}, err
	}
	if err := validation.CheckLevelsMatch(e.state.Levels, a.Levels(), true); err != nil {
		return causal.LevelTable{}, err
	}
	m, err := propensity.Extract(e.learner, X, e.log)
	if err != nil {
		return causal.LevelTable{}, err
	}
	if err := validation.ValidatePropensityScores(m); err != nil {
		return causal.LevelTable{}, err
	}
	clipped, stats, err := propensity.Clip(m, e.clipLo, e.clipHi)
	if err != nil {
		return causal.LevelTable{}, err
	}
	e.clipStats = stats
	return clipped, nil
}

// Weights computes one inverse-probability weight per sample, against the
// sample's observed treatment level.
func (e *IPW) Weights(X causal.Table, a causal.Assignment) (causal.Series, error) {
	m, err := e.PropensityMatrix(X, a)
	if err != nil {
		return causal.Series{}, err
	}
	return weights.Compute(m, a, weights.Options{Stabilized: e.stabilized})
}

// WeightMatrix computes the counterfactual weight each sample would receive
// under every treatment level.
func (e *IPW) WeightMatrix(X causal.Table, a causal.Assignment) (causal.LevelTable, error) {
	m, err := e.PropensityMatrix(X, a)
	if err != nil {
		return causal.LevelTable{}, err
	}
	return weights.ComputeMatrix(m, a, weights.Options{Stabilized: e.stabilized})
}

// EstimatePopulationOutcome aggregates the observed outcome within each
// treatment group of the weighted pseudo-population. Missing outcomes are
// excluded per group. Supported aggregations: mean, median.
func (e *IPW) EstimatePopulationOutcome(
	X causal.Table,
	a causal.Assignment,
	y causal.Series,
	aggregation string,
) (map[causal.Level]causal.PotentialOutcome, error) {
	if aggregation != AggregateMean && aggregation != AggregateMedian {
		return nil, core.NewRangeError("population aggregation", fmt.Sprintf(
			"unsupported method %q (supported: %s, %s)", aggregation, AggregateMean, AggregateMedian))
	}
	if err := validation.CheckXAY(X, a, y, e.log); err != nil {
		return nil, err
	}
	w, err := e.Weights(X, a)
	if err != nil {
		return nil, err
	}
	if e.state.OutcomeType == OutcomeUnknown {
		e.state.OutcomeType = InferOutcomeType(y)
	}

	out := make(map[causal.Level]causal.PotentialOutcome)
	for _, level := range a.Levels() {
		var vals, wts []float64
		for i := 0; i < a.Len(); i++ {
			if a.At(i) != level || math.IsNaN(y.At(i)) {
				continue
			}
			vals = append(vals, y.At(i))
			wts = append(wts, w.At(i))
		}
		if len(vals) == 0 {
			return nil, core.NewEmptyInputError(fmt.Sprintf(
				"outcome for treatment level %q", level))
		}
		out[level] = causal.ScalarOutcome(aggregate(aggregation, vals, wts))
	}
	return out, nil
}

// EstimateEffect contrasts two potential outcomes under the requested
// effect types. Outcomes typically come from EstimatePopulationOutcome,
// but individual-level series work the same way.
func (e *IPW) EstimateEffect(
	o1, o2 causal.PotentialOutcome,
	types ...effects.EffectType,
) (effects.Effect, error) {
	if err := e.checkFitted(); err != nil {
		return effects.Effect{}, err
	}
	return effects.Calculate(o1, o2, types...)
}

// Diagnostics computes the full report bundle for the fitted estimator on
// the given data and emits the corresponding warnings.
func (e *IPW) Diagnostics(X causal.Table, a causal.Assignment) (*diagnostics.EffectEstimationReport, error) {
	if err := e.checkFitted(); err != nil {
		return nil, err
	}
	m, err := e.PropensityMatrix(X, a)
	if err != nil {
		return nil, err
	}
	observed, err := observedScores(m, a)
	if err != nil {
		return nil, err
	}
	w, err := weights.Compute(m, a, weights.Options{Stabilized: e.stabilized})
	if err != nil {
		return nil, err
	}

	ps, err := diagnostics.ComputePropensityStats(observed)
	if err != nil {
		return nil, err
	}
	wd, err := diagnostics.ComputeWeightDistribution(w)
	if err != nil {
		return nil, err
	}
	od, err := diagnostics.ComputeOverlapDiagnostic(observed, a, e.state.Levels)
	if err != nil {
		return nil, err
	}

	diagnostics.WarnPropensityExtremity(e.log, ps)
	diagnostics.WarnExtremeWeights(e.log, wd)
	diagnostics.WarnLowOverlap(e.log, od)

	return &diagnostics.EffectEstimationReport{
		EstimatorName:      e.name,
		EstimatorClass:     "IPW",
		TreatmentLevels:    e.state.Levels,
		NSamples:           e.state.NSamples,
		OutcomeType:        e.state.OutcomeType,
		PropensityStats:    &ps,
		WeightDistribution: &wd,
		Overlap:            &od,
		Warnings:           e.log.Messages(),
		Assumptions:        diagnostics.AssumptionsFor("IPW"),
		CreatedAt:          core.Now(),
	}, nil
}

// Summary returns a serializable snapshot of the estimator's configuration
// and fitted state.
func (e *IPW) Summary() map[string]any {
	fitted := e.IsFitted()
	var levels []string
	nSamples := 0
	outcomeType := OutcomeUnknown
	if e.state != nil {
		levels = causal.LevelStrings(e.state.Levels)
		nSamples = e.state.NSamples
		outcomeType = e.state.OutcomeType
	}
	assumptions := make([]map[string]any, 0)
	for _, a := range diagnostics.AssumptionsFor("IPW") {
		assumptions = append(assumptions, a.ToMap())
	}
	return map[string]any{
		"estimator_name":   e.name,
		"estimator_class":  "IPW",
		"is_fitted":        fitted,
		"treatment_levels": levels,
		"n_samples":        nSamples,
		"outcome_type":     outcomeType,
		"stabilized":       e.stabilized,
		"assumptions":      assumptions,
		"warnings":         e.log.Messages(),
	}
}

func (e *IPW) checkFitted() error {
	return validation.CheckIsFitted(e.name, e.state.Markers())
}

// observedScores gathers each sample's propensity at its observed level.
func observedScores(m causal.LevelTable, a causal.Assignment) (causal.Series, error) {
	vals := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		pos, ok := m.LevelPos(a.At(i))
		if !ok {
			return causal.Series{}, core.NewLevelNotFoundError(
				string(a.At(i)), causal.LevelStrings(m.Levels()))
		}
		vals[i] = m.At(i, pos)
	}
	return causal.NewSeries(a.Index(), vals)
}

// aggregate computes a weighted mean or weighted median over paired values.
func aggregate(method string, vals, wts []float64) float64 {
	if method == AggregateMean {
		return stat.Mean(vals, wts)
	}
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(vals))
	for i := range vals {
		pairs[i] = pair{vals[i], wts[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	xs := make([]float64, len(pairs))
	ws := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i] = p.v
		ws[i] = p.w
	}
	return stat.Quantile(0.5, stat.Empirical, xs, ws)
}
