// Package testkit holds shared fixtures for estimation tests: learners with
// preset predictions so weight arithmetic can be asserted exactly, and a
// small synthetic confounded dataset generator.
package testkit

import (
	"math"
	"math/rand"

	"causalkit/domain/causal"
	"causalkit/domain/core"
)

// StaticLearner returns a preset propensity matrix regardless of the
// covariates, letting tests assert exact reciprocal weights.
type StaticLearner struct {
	Probs  causal.LevelTable
	fitted bool
}

func (s *StaticLearner) Name() string { return "static" }

func (s *StaticLearner) Fit(X causal.Table, a causal.Assignment) error {
	s.fitted = true
	return nil
}

func (s *StaticLearner) Levels() []causal.Level {
	if !s.fitted {
		return nil
	}
	return s.Probs.Levels()
}

func (s *StaticLearner) PredictProba(X causal.Table) (causal.LevelTable, error) {
	if !s.fitted {
		return causal.LevelTable{}, core.NewNotFittedError(s.Name(), []string{"preset probabilities"})
	}
	return s.Probs, nil
}

// ScoreLearner exposes only a raw decision score, for exercising the
// degraded propensity-extraction path.
type ScoreLearner struct {
	Scores causal.Series
	Lvls   []causal.Level
	fitted bool
}

func (s *ScoreLearner) Name() string { return "scorer" }

func (s *ScoreLearner) Fit(X causal.Table, a causal.Assignment) error {
	s.fitted = true
	if len(s.Lvls) == 0 {
		s.Lvls = a.Levels()
	}
	return nil
}

func (s *ScoreLearner) Levels() []causal.Level {
	if !s.fitted {
		return nil
	}
	return s.Lvls
}

func (s *ScoreLearner) DecisionScore(X causal.Table) (causal.Series, error) {
	return s.Scores, nil
}

// Dataset is a synthetic confounded sample: one covariate drives both the
// treatment probability and the outcome, with a known additive effect.
type Dataset struct {
	X causal.Table
	A causal.Assignment
	Y causal.Series
}

// MakeConfounded generates n samples where P(treated) rises with the
// confounder and the outcome is confounder + effect*treated + noise.
func MakeConfounded(n int, effect float64, seed int64) Dataset {
	rng := rand.New(rand.NewSource(seed))
	ids := causal.RangeIndex(n)
	rows := make([][]float64, n)
	levels := make([]causal.Level, n)
	outcomes := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		rows[i] = []float64{x}
		pTreated := 1 / (1 + math.Exp(-x))
		treated := rng.Float64() < pTreated
		level := causal.Level("control")
		t := 0.0
		if treated {
			level = causal.Level("treated")
			t = 1
		}
		levels[i] = level
		outcomes[i] = x + effect*t + 0.1*rng.NormFloat64()
	}
	return Dataset{
		X: causal.MustTable(ids, []string{"x"}, rows),
		A: causal.MustAssignment(ids, levels),
		Y: causal.MustSeries(ids, outcomes),
	}
}
