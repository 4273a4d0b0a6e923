package causal

// PotentialOutcome is either a population-level scalar or a per-sample
// series. Effect calculation detects the variant at runtime, because callers
// mix both modes freely.
type PotentialOutcome struct {
	scalar float64
	series *Series
}

// ScalarOutcome wraps a population-level potential outcome.
func ScalarOutcome(v float64) PotentialOutcome {
	return PotentialOutcome{scalar: v}
}

// SeriesOutcome wraps an individual-level potential outcome vector.
func SeriesOutcome(s Series) PotentialOutcome {
	return PotentialOutcome{series: &s}
}

// IsScalar reports whether the outcome is population-level.
func (p PotentialOutcome) IsScalar() bool { return p.series == nil }

// Scalar returns the population-level value. Only meaningful when IsScalar.
func (p PotentialOutcome) Scalar() float64 { return p.scalar }

// Series returns the per-sample vector. Only meaningful when !IsScalar.
func (p PotentialOutcome) Series() Series { return *p.series }
