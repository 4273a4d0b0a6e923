package causal

import (
	"fmt"
	"sort"

	"causalkit/domain/core"
)

// Level is a discrete treatment level label. Labels are arbitrary strings;
// nothing assumes 0-based or sorted treatment encodings.
type Level string

// MissingLevel marks an unobserved treatment entry. Treatment must always be
// observed, so its presence is fatal at validation time.
const MissingLevel Level = ""

// Assignment is an indexed vector of treatment levels, one per sample.
type Assignment struct {
	ids  Index
	vals []Level
}

// NewAssignment pairs treatment levels with sample identifiers.
func NewAssignment(ids Index, vals []Level) (Assignment, error) {
	if len(ids) != len(vals) {
		return Assignment{}, core.NewAlignmentError(fmt.Sprintf(
			"treatment assignment has %d values but %d sample identifiers", len(vals), len(ids)))
	}
	return Assignment{ids: ids, vals: vals}, nil
}

// MustAssignment builds an assignment or panics. Test and fixture use only.
func MustAssignment(ids Index, vals []Level) Assignment {
	a, err := NewAssignment(ids, vals)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Assignment) Len() int     { return len(a.vals) }
func (a Assignment) Index() Index { return a.ids }

// Values returns the underlying level slice. Callers must not modify it.
func (a Assignment) Values() []Level { return a.vals }

func (a Assignment) At(i int) Level { return a.vals[i] }

// CountMissing returns the number of unobserved treatment entries.
func (a Assignment) CountMissing() int {
	n := 0
	for _, v := range a.vals {
		if v == MissingLevel {
			n++
		}
	}
	return n
}

// Levels returns the distinct observed levels in deterministic (sorted)
// order. Missing entries are not levels.
func (a Assignment) Levels() []Level {
	seen := make(map[Level]bool)
	for _, v := range a.vals {
		if v != MissingLevel {
			seen[v] = true
		}
	}
	out := make([]Level, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Counts returns sample counts per observed level.
func (a Assignment) Counts() map[Level]int {
	counts := make(map[Level]int)
	for _, v := range a.vals {
		if v != MissingLevel {
			counts[v]++
		}
	}
	return counts
}

// Prevalence returns the empirical marginal probability P(A=level) per level.
func (a Assignment) Prevalence() map[Level]float64 {
	counts := a.Counts()
	total := 0
	for _, c := range counts {
		total += c
	}
	prev := make(map[Level]float64, len(counts))
	for l, c := range counts {
		prev[l] = float64(c) / float64(total)
	}
	return prev
}

// LevelStrings converts a level slice to plain strings for error messages.
func LevelStrings(levels []Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}
