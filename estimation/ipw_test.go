package estimation

import (
	"errors"
	"math"
	"testing"

	"causalkit/domain/causal"
	"causalkit/domain/core"
	"causalkit/internal/diagnostics"
	"causalkit/internal/effects"
	"causalkit/internal/testkit"
)

// fixture returns a 4-sample scenario with a preset propensity matrix so
// every weighted quantity can be asserted exactly. Identifiers and level
// labels are deliberately unsorted and non-numeric.
func fixture(t *testing.T) (*IPW, causal.Table, causal.Assignment, causal.Series, *diagnostics.Log) {
	t.Helper()
	ids := causal.Index{"7", "3", "9", "5"}
	X := causal.MustTable(ids, []string{"x"}, [][]float64{{1}, {2}, {3}, {4}})
	a := causal.MustAssignment(ids, []causal.Level{"trt", "ctl", "ctl", "trt"})
	y := causal.MustSeries(ids, []float64{10, 20, 30, 40})

	probs, err := causal.NewLevelTableFromRows(ids, []causal.Level{"ctl", "trt"}, [][]float64{
		{0.8, 0.2},
		{0.5, 0.5},
		{0.25, 0.75},
		{0.2, 0.8},
	})
	if err != nil {
		t.Fatalf("building probs: %v", err)
	}

	log := diagnostics.NewLog()
	est, err := NewIPW(&testkit.StaticLearner{Probs: probs}, WithLog(log))
	if err != nil {
		t.Fatalf("NewIPW: %v", err)
	}
	return est, X, a, y, log
}

func TestUnfittedEstimatorRejectsEstimation(t *testing.T) {
	est, X, a, _, _ := fixture(t)

	_, err := est.Weights(X, a)
	if !errors.Is(err, core.ErrNotFitted) {
		t.Fatalf("expected not-fitted error, got %v", err)
	}
	if est.IsFitted() {
		t.Error("estimator reports fitted before Fit")
	}
}

func TestFitTransitionsState(t *testing.T) {
	est, X, a, _, _ := fixture(t)

	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !est.IsFitted() {
		t.Fatal("estimator not fitted after successful Fit")
	}
	state := est.State()
	if state.NSamples != 4 {
		t.Errorf("NSamples = %d, want 4", state.NSamples)
	}
	if len(state.Levels) != 2 {
		t.Errorf("levels = %v, want 2 levels", state.Levels)
	}
}

func TestFailedFitLeavesEstimatorUnfitted(t *testing.T) {
	est, X, _, _, _ := fixture(t)
	degenerate := causal.MustAssignment(X.Index(), []causal.Level{"trt", "trt", "trt", "trt"})

	if err := est.Fit(X, degenerate); !errors.Is(err, core.ErrDegenerateTreatment) {
		t.Fatalf("expected degenerate-treatment error, got %v", err)
	}
	if est.IsFitted() {
		t.Error("estimator reports fitted after failed Fit")
	}
}

func TestWeightsAreExactReciprocals(t *testing.T) {
	est, X, a, _, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	w, err := est.Weights(X, a)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	want := []float64{1 / 0.2, 1 / 0.5, 1 / 0.25, 1 / 0.8}
	for i, expected := range want {
		if math.Abs(w.At(i)-expected) > 1e-12 {
			t.Errorf("weight[%d] = %v, want %v", i, w.At(i), expected)
		}
	}
}

func TestEstimatePopulationOutcomeWeightedMean(t *testing.T) {
	est, X, a, y, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	outcomes, err := est.EstimatePopulationOutcome(X, a, y, AggregateMean)
	if err != nil {
		t.Fatalf("EstimatePopulationOutcome: %v", err)
	}

	// ctl: weights 2 and 4 over outcomes 20 and 30.
	wantCtl := (2*20.0 + 4*30.0) / 6.0
	// trt: weights 5 and 1.25 over outcomes 10 and 40.
	wantTrt := (5*10.0 + 1.25*40.0) / 6.25

	if got := outcomes["ctl"].Scalar(); math.Abs(got-wantCtl) > 1e-9 {
		t.Errorf("ctl outcome = %v, want %v", got, wantCtl)
	}
	if got := outcomes["trt"].Scalar(); math.Abs(got-wantTrt) > 1e-9 {
		t.Errorf("trt outcome = %v, want %v", got, wantTrt)
	}
}

func TestEstimatePopulationOutcomeRejectsUnknownAggregation(t *testing.T) {
	est, X, a, y, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	_, err := est.EstimatePopulationOutcome(X, a, y, "mode")
	if !errors.Is(err, core.ErrRange) {
		t.Fatalf("expected range error for unknown aggregation, got %v", err)
	}
}

func TestEstimatePopulationOutcomeSkipsMissingOutcomes(t *testing.T) {
	est, X, a, _, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	y := causal.MustSeries(X.Index(), []float64{10, math.NaN(), 30, 40})

	outcomes, err := est.EstimatePopulationOutcome(X, a, y, AggregateMean)
	if err != nil {
		t.Fatalf("EstimatePopulationOutcome: %v", err)
	}
	// Only sample "9" remains in ctl, so its outcome is the group value.
	if got := outcomes["ctl"].Scalar(); math.Abs(got-30) > 1e-12 {
		t.Errorf("ctl outcome = %v, want 30", got)
	}
}

func TestEstimateEffectEndToEnd(t *testing.T) {
	est, X, a, y, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	outcomes, err := est.EstimatePopulationOutcome(X, a, y, AggregateMean)
	if err != nil {
		t.Fatalf("EstimatePopulationOutcome: %v", err)
	}
	effect, err := est.EstimateEffect(outcomes["trt"], outcomes["ctl"], effects.Diff, effects.Ratio)
	if err != nil {
		t.Fatalf("EstimateEffect: %v", err)
	}

	pop := effect.Population()
	wantDiff := 16.0 - 160.0/6.0
	if math.Abs(pop[effects.Diff]-wantDiff) > 1e-9 {
		t.Errorf("diff = %v, want %v", pop[effects.Diff], wantDiff)
	}
	wantRatio := 16.0 / (160.0 / 6.0)
	if math.Abs(pop[effects.Ratio]-wantRatio) > 1e-9 {
		t.Errorf("ratio = %v, want %v", pop[effects.Ratio], wantRatio)
	}
}

func TestStabilizationPreservesWeightRatiosWithinLevel(t *testing.T) {
	est, X, a, _, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	plain, err := est.Weights(X, a)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}

	stab, err := NewIPW(est.learner, WithStabilization(true))
	if err != nil {
		t.Fatalf("NewIPW: %v", err)
	}
	if err := stab.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	stabilized, err := stab.Weights(X, a)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}

	// Samples 3 and 9 are both ctl: stabilization scales both by the same
	// prevalence, so their ratio is unchanged.
	plainRatio := plain.At(1) / plain.At(2)
	stabRatio := stabilized.At(1) / stabilized.At(2)
	if math.Abs(plainRatio-stabRatio) > 1e-12 {
		t.Errorf("within-level weight ratio changed: %v vs %v", plainRatio, stabRatio)
	}
	// Both levels have prevalence 0.5 here.
	if math.Abs(stabilized.At(0)-plain.At(0)*0.5) > 1e-12 {
		t.Errorf("stabilized weight = %v, want %v", stabilized.At(0), plain.At(0)*0.5)
	}
}

func TestDiagnosticsBundlesReports(t *testing.T) {
	est, X, a, y, _ := fixture(t)
	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := est.EstimatePopulationOutcome(X, a, y, AggregateMean); err != nil {
		t.Fatalf("EstimatePopulationOutcome: %v", err)
	}

	report, err := est.Diagnostics(X, a)
	if err != nil {
		t.Fatalf("Diagnostics: %v", err)
	}
	if report.EstimatorClass != "IPW" {
		t.Errorf("estimator class = %q", report.EstimatorClass)
	}
	if report.PropensityStats == nil || report.WeightDistribution == nil || report.Overlap == nil {
		t.Fatal("diagnostics report is missing sections")
	}
	if report.WeightDistribution.EffectiveSampleSize == nil {
		t.Error("ESS should be defined for this fixture")
	}
	if report.OutcomeType != OutcomeRegression {
		t.Errorf("outcome type = %q, want %q", report.OutcomeType, OutcomeRegression)
	}
	if len(report.Assumptions) == 0 {
		t.Error("report should declare assumptions")
	}
}

func TestSummaryKeys(t *testing.T) {
	est, X, a, _, _ := fixture(t)

	summary := est.Summary()
	if summary["is_fitted"] != false {
		t.Errorf("is_fitted = %v before Fit", summary["is_fitted"])
	}

	if err := est.Fit(X, a); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	summary = est.Summary()
	for _, key := range []string{
		"estimator_name", "estimator_class", "is_fitted", "treatment_levels",
		"n_samples", "outcome_type", "stabilized", "assumptions", "warnings",
	} {
		if _, ok := summary[key]; !ok {
			t.Errorf("summary missing key %q", key)
		}
	}
	if summary["is_fitted"] != true {
		t.Errorf("is_fitted = %v after Fit", summary["is_fitted"])
	}
	if summary["n_samples"] != 4 {
		t.Errorf("n_samples = %v, want 4", summary["n_samples"])
	}
}

func TestNewIPWRejectsBadClipBounds(t *testing.T) {
	lo, hi := 0.7, 0.9
	_, err := NewIPW(&testkit.StaticLearner{}, WithClipBounds(&lo, &hi))
	if !errors.Is(err, core.ErrRange) {
		t.Fatalf("expected range error for invalid bounds, got %v", err)
	}
}
