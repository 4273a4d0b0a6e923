package diagnostics

import (
	"errors"
	"math"
	"testing"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

func TestEffectiveSampleSizeUniformWeights(t *testing.T) {
	ids := causal.RangeIndex(4)
	w := causal.MustSeries(ids, []float64{1, 1, 1, 1})

	wd, err := ComputeWeightDistribution(w)
	if err != nil {
		t.Fatalf("ComputeWeightDistribution: %v", err)
	}
	if wd.EffectiveSampleSize == nil {
		t.Fatal("ESS should be defined for positive weights")
	}
	if math.Abs(*wd.EffectiveSampleSize-4) > 1e-12 {
		t.Errorf("ESS = %v, want 4", *wd.EffectiveSampleSize)
	}
}

func TestEffectiveSampleSizeCollapsesUnderDominantWeight(t *testing.T) {
	ids := causal.RangeIndex(4)
	w := causal.MustSeries(ids, []float64{1, 1, 1, 97})

	wd, err := ComputeWeightDistribution(w)
	if err != nil {
		t.Fatalf("ComputeWeightDistribution: %v", err)
	}
	// (1+1+1+97)^2 / (1+1+1+97^2) = 10000/9412
	if math.Abs(*wd.EffectiveSampleSize-10000.0/9412.0) > 1e-9 {
		t.Errorf("ESS = %v, want %v", *wd.EffectiveSampleSize, 10000.0/9412.0)
	}
	if *wd.EffectiveSampleSize > 1.1 {
		t.Errorf("dominant weight should collapse ESS toward 1, got %v", *wd.EffectiveSampleSize)
	}
}

func TestEffectiveSampleSizeUndefinedForAllZero(t *testing.T) {
	ids := causal.RangeIndex(3)
	w := causal.MustSeries(ids, []float64{0, 0, 0})

	wd, err := ComputeWeightDistribution(w)
	if err != nil {
		t.Fatalf("ComputeWeightDistribution: %v", err)
	}
	if wd.EffectiveSampleSize != nil {
		t.Errorf("ESS should be nil for all-zero weights, got %v", *wd.EffectiveSampleSize)
	}
}

func TestWeightDistributionEmptyInput(t *testing.T) {
	ids := causal.RangeIndex(2)
	w := causal.MustSeries(ids, []float64{math.NaN(), math.NaN()})

	_, err := ComputeWeightDistribution(w)
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Fatalf("expected empty-input error, got %v", err)
	}
}

func TestPropensityStatsCountsExtremes(t *testing.T) {
	ids := causal.RangeIndex(5)
	scores := causal.MustSeries(ids, []float64{0.005, 0.3, 0.5, 0.7, 0.995})

	ps, err := ComputePropensityStats(scores)
	if err != nil {
		t.Fatalf("ComputePropensityStats: %v", err)
	}
	if ps.NExtremeLow != 1 || ps.NExtremeHigh != 1 {
		t.Errorf("extremes = (%d, %d), want (1, 1)", ps.NExtremeLow, ps.NExtremeHigh)
	}
	if math.Abs(ps.PctExtreme-40) > 1e-9 {
		t.Errorf("pct extreme = %v, want 40", ps.PctExtreme)
	}
	if ps.MinScore != 0.005 || ps.MaxScore != 0.995 {
		t.Errorf("min/max = %v/%v", ps.MinScore, ps.MaxScore)
	}
}

func TestPropensityStatsSkipsMissing(t *testing.T) {
	ids := causal.RangeIndex(3)
	scores := causal.MustSeries(ids, []float64{0.5, math.NaN(), 0.7})

	ps, err := ComputePropensityStats(scores)
	if err != nil {
		t.Fatalf("ComputePropensityStats: %v", err)
	}
	if math.Abs(ps.MeanScore-0.6) > 1e-12 {
		t.Errorf("mean over valid scores = %v, want 0.6", ps.MeanScore)
	}
}

func TestOverlapDiagnosticInterquartileRegion(t *testing.T) {
	n := 100
	ids := causal.RangeIndex(n)
	vals := make([]float64, n)
	levels := make([]causal.Level, n)
	for i := 0; i < n; i++ {
		vals[i] = float64(i+1) / float64(n+1)
		if i%2 == 0 {
			levels[i] = "control"
		} else {
			levels[i] = "treated"
		}
	}
	scores := causal.MustSeries(ids, vals)
	a := causal.MustAssignment(ids, levels)

	od, err := ComputeOverlapDiagnostic(scores, a, []causal.Level{"control", "treated"})
	if err != nil {
		t.Fatalf("ComputeOverlapDiagnostic: %v", err)
	}

	if !od.HasOverlap {
		t.Error("interleaved groups should overlap")
	}
	if od.OverlapLow >= od.OverlapHigh {
		t.Errorf("overlap region [%v, %v] is empty", od.OverlapLow, od.OverlapHigh)
	}
	// Each alternating group holds about half its samples inside [Q1, Q3].
	for _, level := range od.TreatmentLevels {
		pct := od.PctInOverlap[level]
		if pct < 40 || pct > 60 {
			t.Errorf("pct in overlap for %s = %v, want near 50", level, pct)
		}
	}
}

func TestOverlapDiagnosticSeparatedGroups(t *testing.T) {
	// All treated scores sit above the pooled interquartile region, so the
	// treated group has no samples in the overlap.
	ids := causal.RangeIndex(8)
	scores := causal.MustSeries(ids, []float64{0.30, 0.35, 0.40, 0.45, 0.50, 0.55, 0.60, 0.99})
	a := causal.MustAssignment(ids, []causal.Level{
		"control", "control", "control", "control", "control", "control", "control", "treated",
	})

	od, err := ComputeOverlapDiagnostic(scores, a, []causal.Level{"control", "treated"})
	if err != nil {
		t.Fatalf("ComputeOverlapDiagnostic: %v", err)
	}
	if od.HasOverlap {
		t.Errorf("separated groups reported as overlapping: %+v", od)
	}
	if len(od.Notes) == 0 {
		t.Error("expected a note about missing overlap")
	}
}

func TestOverlapDiagnosticMisalignedInputs(t *testing.T) {
	scores := causal.MustSeries(causal.RangeIndex(3), []float64{0.1, 0.2, 0.3})
	a := causal.MustAssignment(causal.RangeIndex(2), []causal.Level{"0", "1"})

	_, err := ComputeOverlapDiagnostic(scores, a, []causal.Level{"0", "1"})
	if !errors.Is(err, core.ErrAlignment) {
		t.Fatalf("expected alignment error, got %v", err)
	}
}

func TestReportToMapCarriesNestedSections(t *testing.T) {
	ids := causal.RangeIndex(4)
	wd, err := ComputeWeightDistribution(causal.MustSeries(ids, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("ComputeWeightDistribution: %v", err)
	}

	report := EffectEstimationReport{
		EstimatorName:      "ipw-test",
		EstimatorClass:     "IPW",
		TreatmentLevels:    []causal.Level{"0", "1"},
		NSamples:           4,
		OutcomeType:        "regression",
		WeightDistribution: &wd,
		Warnings:           []string{"w1"},
		Assumptions:        AssumptionsFor("IPW"),
		CreatedAt:          core.Now(),
	}

	m := report.ToMap()
	if m["estimator_class"] != "IPW" {
		t.Errorf("estimator_class = %v", m["estimator_class"])
	}
	nested, ok := m["weight_distribution"].(map[string]any)
	if !ok {
		t.Fatalf("weight_distribution not nested: %T", m["weight_distribution"])
	}
	if nested["n_weights"] != 4 {
		t.Errorf("n_weights = %v, want 4", nested["n_weights"])
	}
	if m["propensity_stats"] != nil {
		t.Errorf("absent section should be nil, got %v", m["propensity_stats"])
	}
}
