package diagnostics

import (
	"math"

	"github.com/montanaflynn/stats"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// Diagnostic reports are immutable value objects computed on demand from
// already-fitted state. Computing a report never mutates an estimator and
// never emits a warning by itself; emission lives in warnings.go.

// PropensityScoreStats summarizes the distribution of propensity scores.
type PropensityScoreStats struct {
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`
	MeanScore    float64 `json:"mean_score"`
	MedianScore  float64 `json:"median_score"`
	StdScore     float64 `json:"std_score"`
	NExtremeLow  int     `json:"n_extreme_low"`  // scores < 0.01
	NExtremeHigh int     `json:"n_extreme_high"` // scores > 0.99
	PctExtreme   float64 `json:"pct_extreme"`
}

// ToMap converts the report to a plain mapping for serialization.
func (p PropensityScoreStats) ToMap() map[string]any {
	return map[string]any{
		"min_score":      p.MinScore,
		"max_score":      p.MaxScore,
		"mean_score":     p.MeanScore,
		"median_score":   p.MedianScore,
		"std_score":      p.StdScore,
		"n_extreme_low":  p.NExtremeLow,
		"n_extreme_high": p.NExtremeHigh,
		"pct_extreme":    p.PctExtreme,
	}
}

// WeightDistribution summarizes an inverse-probability weight vector.
type WeightDistribution struct {
	MinWeight    float64 `json:"min_weight"`
	MaxWeight    float64 `json:"max_weight"`
	MeanWeight   float64 `json:"mean_weight"`
	MedianWeight float64 `json:"median_weight"`
	StdWeight    float64 `json:"std_weight"`
	NWeights     int     `json:"n_weights"`
	NExtreme     int     `json:"n_extreme"` // outside mean +/- 3 std
	PctExtreme   float64 `json:"pct_extreme"`
	// EffectiveSampleSize is Kish's ESS; nil when sum of squared weights
	// is zero (undefined).
	EffectiveSampleSize *float64 `json:"effective_sample_size"`
}

// ToMap converts the report to a plain mapping for serialization.
func (w WeightDistribution) ToMap() map[string]any {
	var ess any
	if w.EffectiveSampleSize != nil {
		ess = *w.EffectiveSampleSize
	}
	return map[string]any{
		"min_weight":            w.MinWeight,
		"max_weight":            w.MaxWeight,
		"mean_weight":           w.MeanWeight,
		"median_weight":         w.MedianWeight,
		"std_weight":            w.StdWeight,
		"n_weights":             w.NWeights,
		"n_extreme":             w.NExtreme,
		"pct_extreme":           w.PctExtreme,
		"effective_sample_size": ess,
	}
}

// OverlapDiagnostic assesses positivity between treatment groups. The
// overlap region is the closed interval [Q1, Q3] of the pooled propensity
// score distribution: a conservative, intentionally simple region rather
// than a per-group intersection. Downstream callers depend on these exact
// semantics.
type OverlapDiagnostic struct {
	TreatmentLevels  []causal.Level           `json:"treatment_levels"`
	NSamplesPerLevel map[causal.Level]int     `json:"n_samples_per_level"`
	HasOverlap       bool                     `json:"has_overlap"`
	OverlapLow       float64                  `json:"overlap_low"`
	OverlapHigh      float64                  `json:"overlap_high"`
	NInOverlap       map[causal.Level]int     `json:"n_in_overlap"`
	PctInOverlap     map[causal.Level]float64 `json:"pct_in_overlap"`
	PropensityMin    float64                  `json:"propensity_min"`
	PropensityMax    float64                  `json:"propensity_max"`
	PropensityMean   float64                  `json:"propensity_mean"`
	PropensityQ1     float64                  `json:"propensity_q1"`
	PropensityQ3     float64                  `json:"propensity_q3"`
	Notes            []string                 `json:"notes"`
}

// ToMap converts the report to a plain mapping for serialization. Level
// keys become strings and the overlap interval becomes a two-element list.
func (o OverlapDiagnostic) ToMap() map[string]any {
	perLevel := make(map[string]any, len(o.NSamplesPerLevel))
	inOverlap := make(map[string]any, len(o.NInOverlap))
	pctOverlap := make(map[string]any, len(o.PctInOverlap))
	for l, n := range o.NSamplesPerLevel {
		perLevel[string(l)] = n
	}
	for l, n := range o.NInOverlap {
		inOverlap[string(l)] = n
	}
	for l, pct := range o.PctInOverlap {
		pctOverlap[string(l)] = pct
	}
	return map[string]any{
		"treatment_levels":    causal.LevelStrings(o.TreatmentLevels),
		"n_samples_per_level": perLevel,
		"has_overlap":         o.HasOverlap,
		"overlap_range":       []float64{o.OverlapLow, o.OverlapHigh},
		"n_in_overlap":        inOverlap,
		"pct_in_overlap":      pctOverlap,
		"propensity_min":      o.PropensityMin,
		"propensity_max":      o.PropensityMax,
		"propensity_mean":     o.PropensityMean,
		"propensity_q1":       o.PropensityQ1,
		"propensity_q3":       o.PropensityQ3,
		"notes":               append([]string{}, o.Notes...),
	}
}

// EffectEstimationReport is the complete diagnostic bundle for one fitted
// estimator.
type EffectEstimationReport struct {
	EstimatorName      string                `json:"estimator_name"`
	EstimatorClass     string                `json:"estimator_class"`
	TreatmentLevels    []causal.Level        `json:"treatment_levels"`
	NSamples           int                   `json:"n_samples"`
	OutcomeType        string                `json:"outcome_type"`
	PropensityStats    *PropensityScoreStats `json:"propensity_stats"`
	WeightDistribution *WeightDistribution   `json:"weight_distribution"`
	Overlap            *OverlapDiagnostic    `json:"overlap_diagnostic"`
	Warnings           []string              `json:"warnings"`
	Assumptions        []Assumption          `json:"assumptions"`
	CreatedAt          core.Timestamp        `json:"created_at"`
}

// ToMap converts the full report into nested plain mappings.
func (r EffectEstimationReport) ToMap() map[string]any {
	var ps, wd, od any
	if r.PropensityStats != nil {
		ps = r.PropensityStats.ToMap()
	}
	if r.WeightDistribution != nil {
		wd = r.WeightDistribution.ToMap()
	}
	if r.Overlap != nil {
		od = r.Overlap.ToMap()
	}
	assumptions := make([]map[string]any, len(r.Assumptions))
	for i, a := range r.Assumptions {
		assumptions[i] = a.ToMap()
	}
	return map[string]any{
		"estimator_name":      r.EstimatorName,
		"estimator_class":     r.EstimatorClass,
		"treatment_levels":    causal.LevelStrings(r.TreatmentLevels),
		"n_samples":           r.NSamples,
		"outcome_type":        r.OutcomeType,
		"propensity_stats":    ps,
		"weight_distribution": wd,
		"overlap_diagnostic":  od,
		"warnings":            append([]string{}, r.Warnings...),
		"assumptions":         assumptions,
		"created_at":          r.CreatedAt.Time(),
	}
}

// ComputePropensityStats summarizes propensity scores after dropping
// missing values.
func ComputePropensityStats(scores causal.Series) (PropensityScoreStats, error) {
	valid := scores.DropMissing()
	if valid.Len() == 0 {
		return PropensityScoreStats{}, core.NewEmptyInputError("propensity scores")
	}
	vals := valid.Values()

	min, _ := stats.Min(vals)
	max, _ := stats.Max(vals)
	mean, _ := stats.Mean(vals)
	median, _ := stats.Median(vals)
	std, _ := stats.StandardDeviation(vals)

	nLow, nHigh := 0, 0
	for _, v := range vals {
		if v < 0.01 {
			nLow++
		}
		if v > 0.99 {
			nHigh++
		}
	}

	return PropensityScoreStats{
		MinScore:     min,
		MaxScore:     max,
		MeanScore:    mean,
		MedianScore:  median,
		StdScore:     std,
		NExtremeLow:  nLow,
		NExtremeHigh: nHigh,
		PctExtreme:   100 * float64(nLow+nHigh) / float64(len(vals)),
	}, nil
}

// ComputeWeightDistribution summarizes an inverse-probability weight vector,
// including Kish's effective sample size ESS = (sum w)^2 / sum w^2.
func ComputeWeightDistribution(weights causal.Series) (WeightDistribution, error) {
	valid := weights.DropMissing()
	if valid.Len() == 0 {
		return WeightDistribution{}, core.NewEmptyInputError("weights")
	}
	vals := valid.Values()

	min, _ := stats.Min(vals)
	max, _ := stats.Max(vals)
	mean, _ := stats.Mean(vals)
	median, _ := stats.Median(vals)
	std, _ := stats.StandardDeviation(vals)

	lower := mean - 3*std
	upper := mean + 3*std
	nExtreme := 0
	sumW, sumW2 := 0.0, 0.0
	for _, v := range vals {
		if v < lower || v > upper {
			nExtreme++
		}
		sumW += v
		sumW2 += v * v
	}

	var ess *float64
	if sumW2 > 0 {
		v := sumW * sumW / sumW2
		ess = &v
	}

	return WeightDistribution{
		MinWeight:           min,
		MaxWeight:           max,
		MeanWeight:          mean,
		MedianWeight:        median,
		StdWeight:           std,
		NWeights:            len(vals),
		NExtreme:            nExtreme,
		PctExtreme:          100 * float64(nExtreme) / float64(len(vals)),
		EffectiveSampleSize: ess,
	}, nil
}

// ComputeOverlapDiagnostic assesses whether every treatment level is
// represented inside the pooled [Q1, Q3] propensity interval.
func ComputeOverlapDiagnostic(
	scores causal.Series,
	a causal.Assignment,
	levels []causal.Level,
) (OverlapDiagnostic, error) {
	if scores.Len() != a.Len() {
		return OverlapDiagnostic{}, core.NewAlignmentError("propensity scores and treatment assignment differ in length")
	}

	// Drop rows where either the score or the assignment is missing.
	vals := make([]float64, 0, scores.Len())
	treatments := make([]causal.Level, 0, a.Len())
	for i := 0; i < scores.Len(); i++ {
		if math.IsNaN(scores.At(i)) || a.At(i) == causal.MissingLevel {
			continue
		}
		vals = append(vals, scores.At(i))
		treatments = append(treatments, a.At(i))
	}
	if len(vals) == 0 {
		return OverlapDiagnostic{}, core.NewEmptyInputError("propensity scores")
	}

	q1, _ := stats.Percentile(vals, 25)
	q3, _ := stats.Percentile(vals, 75)
	min, _ := stats.Min(vals)
	max, _ := stats.Max(vals)
	mean, _ := stats.Mean(vals)

	nPerLevel := make(map[causal.Level]int, len(levels))
	nInOverlap := make(map[causal.Level]int, len(levels))
	for _, l := range levels {
		nPerLevel[l] = 0
		nInOverlap[l] = 0
	}
	for i, t := range treatments {
		nPerLevel[t]++
		if vals[i] >= q1 && vals[i] <= q3 {
			nInOverlap[t]++
		}
	}

	hasOverlap := true
	pctInOverlap := make(map[causal.Level]float64, len(levels))
	for _, l := range levels {
		if nInOverlap[l] == 0 {
			hasOverlap = false
		}
		if nPerLevel[l] > 0 {
			pctInOverlap[l] = 100 * float64(nInOverlap[l]) / float64(nPerLevel[l])
		} else {
			pctInOverlap[l] = 0
		}
	}

	var notes []string
	if !hasOverlap {
		notes = append(notes, "some treatment groups have no samples in the overlap region")
	}
	var thin []causal.Level
	for _, l := range levels {
		if pctInOverlap[l] < 50 {
			thin = append(thin, l)
		}
	}
	if len(thin) > 0 {
		notes = append(notes, "levels with <50% of samples in the overlap region: "+joinLevels(thin))
	}

	return OverlapDiagnostic{
		TreatmentLevels:  levels,
		NSamplesPerLevel: nPerLevel,
		HasOverlap:       hasOverlap,
		OverlapLow:       q1,
		OverlapHigh:      q3,
		NInOverlap:       nInOverlap,
		PctInOverlap:     pctInOverlap,
		PropensityMin:    min,
		PropensityMax:    max,
		PropensityMean:   mean,
		PropensityQ1:     q1,
		PropensityQ3:     q3,
		Notes:            notes,
	}, nil
}

func joinLevels(levels []causal.Level) string {
	out := ""
	for i, l := range levels {
		if i > 0 {
			out += ", "
		}
		out += string(l)
	}
	return out
}
