package effects

import (
	"fmt"
	"math"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// EffectType names a supported treatment effect contrast.
type EffectType string

const (
	Diff      EffectType = "diff"  // additive: o1 - o2
	Ratio     EffectType = "ratio" // multiplicative: o1 / o2
	OddsRatio EffectType = "or"    // odds(o1) / odds(o2), probabilities only
)

// SupportedEffectTypes lists every valid contrast, in presentation order.
var SupportedEffectTypes = []EffectType{Diff, Ratio, OddsRatio}

// Effect holds the result of one effect calculation. It is population-level
// (one number per effect type) when both potential outcomes were scalars,
// and individual-level (one number per sample per effect type) when either
// was a per-sample series.
type Effect struct {
	population map[EffectType]float64
	individual *IndividualEffects
}

// IndividualEffects is a samples-by-effect-types result table.
type IndividualEffects struct {
	ids   causal.Index
	types []EffectType
	data  [][]float64 // row-major, one row per sample
}

// IsPopulation reports whether the effect is a population-level result.
func (e Effect) IsPopulation() bool { return e.individual == nil }

// Population returns the population-level result. Only meaningful when
// IsPopulation.
func (e Effect) Population() map[EffectType]float64 {
	out := make(map[EffectType]float64, len(e.population))
	for k, v := range e.population {
		out[k] = v
	}
	return out
}

// Individual returns the per-sample result table. Only meaningful when
// !IsPopulation.
func (e Effect) Individual() *IndividualEffects { return e.individual }

func (t *IndividualEffects) Len() int            { return len(t.ids) }
func (t *IndividualEffects) Index() causal.Index { return t.ids }
func (t *IndividualEffects) Types() []EffectType { return t.types }
func (t *IndividualEffects) At(i, j int) float64 { return t.data[i][j] }

// Column extracts one effect type's per-sample values.
func (t *IndividualEffects) Column(et EffectType) (causal.Series, error) {
	for j, known := range t.types {
		if known == et {
			vals := make([]float64, len(t.data))
			for i := range t.data {
				vals[i] = t.data[i][j]
			}
			return causal.NewSeries(t.ids, vals)
		}
	}
	return causal.Series{}, core.NewLevelNotFoundError(string(et), effectTypeStrings(t.types))
}

// ValidateEffectTypes rejects the whole request if any requested type is
// unknown, naming every offender.
func ValidateEffectTypes(types ...EffectType) error {
	if len(types) == 0 {
		return core.NewEmptyInputError("effect types")
	}
	var offending []string
	for _, et := range types {
		if !isSupported(et) {
			offending = append(offending, string(et))
		}
	}
	if len(offending) > 0 {
		return core.NewInvalidEffectTypeError(offending, effectTypeStrings(SupportedEffectTypes))
	}
	return nil
}

// Calculate contrasts two potential outcomes under every requested effect
// type. The computation is all-or-nothing: every type is pre-checked for
// computability before any result is produced, and a single failing type
// aborts the whole request naming that type.
func Calculate(o1, o2 causal.PotentialOutcome, types ...EffectType) (Effect, error) {
	if err := ValidateEffectTypes(types...); err != nil {
		return Effect{}, err
	}

	v1, v2, ids, scalar, err := alignOutcomes(o1, o2)
	if err != nil {
		return Effect{}, err
	}

	for _, et := range types {
		if err := precheck(et, v1, v2); err != nil {
			return Effect{}, err
		}
	}

	if scalar {
		pop := make(map[EffectType]float64, len(types))
		for _, et := range types {
			pop[et] = contrast(et, v1[0], v2[0])
		}
		return Effect{population: pop}, nil
	}

	data := make([][]float64, len(v1))
	for i := range v1 {
		row := make([]float64, len(types))
		for j, et := range types {
			row[j] = contrast(et, v1[i], v2[i])
		}
		data[i] = row
	}
	out := make([]EffectType, len(types))
	copy(out, types)
	return Effect{individual: &IndividualEffects{ids: ids, types: out, data: data}}, nil
}

// alignOutcomes resolves the scalar/series shape of the pair. A scalar
// paired with a series broadcasts to the series' length and index.
func alignOutcomes(o1, o2 causal.PotentialOutcome) (v1, v2 []float64, ids causal.Index, scalar bool, err error) {
	switch {
	case o1.IsScalar() && o2.IsScalar():
		return []float64{o1.Scalar()}, []float64{o2.Scalar()}, nil, true, nil
	case o1.IsScalar():
		s2 := o2.Series()
		return broadcast(o1.Scalar(), s2.Len()), s2.Values(), s2.Index(), false, nil
	case o2.IsScalar():
		s1 := o1.Series()
		return s1.Values(), broadcast(o2.Scalar(), s1.Len()), s1.Index(), false, nil
	default:
		s1, s2 := o1.Series(), o2.Series()
		if !s1.Index().Equal(s2.Index()) {
			return nil, nil, nil, false, core.NewAlignmentError(
				"potential outcomes must share identifiers in the same order")
		}
		return s1.Values(), s2.Values(), s1.Index(), false, nil
	}
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// precheck verifies an effect type is computable on every element before
// anything is calculated.
func precheck(et EffectType, v1, v2 []float64) error {
	switch et {
	case Diff:
		return nil
	case Ratio:
		nZeros := 0
		for _, v := range v2 {
			if v == 0 {
				nZeros++
			}
		}
		if nZeros > 0 {
			return core.NewDivisionByZeroError(`"ratio" effect denominator`, nZeros)
		}
		return nil
	case OddsRatio:
		if err := checkProbabilityRange("first potential outcome", v1); err != nil {
			return err
		}
		if err := checkProbabilityRange("second potential outcome", v2); err != nil {
			return err
		}
		nZeros := 0
		for i := range v1 {
			if v1[i] == 1 || v2[i] == 0 {
				nZeros++
			}
		}
		if nZeros > 0 {
			return core.NewDivisionByZeroError(`"or" effect odds denominator`, nZeros)
		}
		return nil
	default:
		return core.NewInvalidEffectTypeError([]string{string(et)}, effectTypeStrings(SupportedEffectTypes))
	}
}

func checkProbabilityRange(name string, vals []float64) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	violated := false
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		if v < 0 || v > 1 {
			violated = true
		}
	}
	if violated {
		return core.NewRangeError(name, fmt.Sprintf(
			`must lie in [0, 1] for the "or" effect; observed range [%.6f, %.6f]`, lo, hi))
	}
	return nil
}

func contrast(et EffectType, a, b float64) float64 {
	switch et {
	case Diff:
		return a - b
	case Ratio:
		return a / b
	case OddsRatio:
		return (a / (1 - a)) / (b / (1 - b))
	}
	return math.NaN()
}

func isSupported(et EffectType) bool {
	for _, s := range SupportedEffectTypes {
		if s == et {
			return true
		}
	}
	return false
}

func effectTypeStrings(types []EffectType) []string {
	out := make([]string, len(types))
	for i, et := range types {
		out[i] = string(et)
	}
	return out
}
