package diagnostics

import (
	"fmt"
	"sync"

	"causalkit/domain/causal"
)

// Category classifies structured warnings so callers can act on (or
// suppress) them by kind rather than by message parsing.
type Category string

const (
	CategoryExtremeWeights     Category = "EXTREME_WEIGHTS"
	CategoryLowOverlap         Category = "LOW_OVERLAP"
	CategoryPositivity         Category = "POSITIVITY_VIOLATION"
	CategoryTreatmentDominance Category = "TREATMENT_DOMINANCE"
	CategoryMissingValues      Category = "MISSING_VALUES"
	CategoryLearnerInterface   Category = "LEARNER_INTERFACE"
)

// Warning is a single structured, non-fatal quality signal. It always
// carries the exact offending values in its message.
type Warning struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Log is an explicit, injectable warning accumulator with an append/read/
// clear contract. One log is typically shared by every estimator in a
// process, so all operations are safe for concurrent use.
//
// Warnings never interrupt control flow; suppression drops a category
// silently.
type Log struct {
	mu         sync.Mutex
	entries    []Warning
	suppressed map[Category]bool
}

// NewLog creates an empty warning log.
func NewLog() *Log {
	return &Log{suppressed: make(map[Category]bool)}
}

// Warn appends a warning unless its category is suppressed.
func (l *Log) Warn(cat Category, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.suppressed[cat] {
		return
	}
	l.entries = append(l.entries, Warning{Category: cat, Message: message})
}

// Warnf appends a formatted warning unless its category is suppressed.
func (l *Log) Warnf(cat Category, format string, args ...any) {
	l.Warn(cat, fmt.Sprintf(format, args...))
}

// Suppress drops all subsequent warnings of the category.
func (l *Log) Suppress(cat Category) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suppressed[cat] = true
}

// Unsuppress re-enables a previously suppressed category.
func (l *Log) Unsuppress(cat Category) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.suppressed, cat)
}

// Entries returns a copy of all accumulated warnings.
func (l *Log) Entries() []Warning {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Warning, len(l.entries))
	copy(out, l.entries)
	return out
}

// Messages returns accumulated warning messages, for summary output.
func (l *Log) Messages() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// Clear empties the log. Suppression settings survive a clear.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Warning emitters. Emission is decoupled from report computation: each
// emitter inspects an already-computed report and appends a warning only
// when a threshold is crossed.

// WarnExtremeWeights flags a weight distribution containing values outside
// mean +/- 3 std.
func WarnExtremeWeights(log *Log, wd WeightDistribution) {
	if wd.NExtreme == 0 {
		return
	}
	log.Warnf(CategoryExtremeWeights,
		"extreme weights detected: min=%.6f, max=%.6f, n_extreme=%d (%.1f%% of weights); "+
			"this may indicate positivity violations or unstable estimates",
		wd.MinWeight, wd.MaxWeight, wd.NExtreme, wd.PctExtreme)
}

// WarnPropensityExtremity flags propensity scores below 0.01 or above 0.99.
func WarnPropensityExtremity(log *Log, ps PropensityScoreStats) {
	if ps.NExtremeLow == 0 && ps.NExtremeHigh == 0 {
		return
	}
	log.Warnf(CategoryPositivity,
		"propensity score extremity: %d extreme scores (%.1f%% of samples); "+
			"breakdown: %d < 0.01, %d > 0.99; consider clipping to [0.01, 0.99]",
		ps.NExtremeLow+ps.NExtremeHigh, ps.PctExtreme, ps.NExtremeLow, ps.NExtremeHigh)
}

// WarnLowOverlap flags treatment groups with absent or thin representation
// in the pooled overlap region.
func WarnLowOverlap(log *Log, od OverlapDiagnostic) {
	if !od.HasOverlap {
		log.Warnf(CategoryPositivity,
			"severe positivity violation: some treatment groups have no samples in the "+
				"overlap region [%.4f, %.4f]; per-level overlap: %v",
			od.OverlapLow, od.OverlapHigh, od.PctInOverlap)
		return
	}
	low := make(map[causal.Level]float64)
	for l, pct := range od.PctInOverlap {
		if pct < 50 {
			low[l] = pct
		}
	}
	if len(low) > 0 {
		log.Warnf(CategoryLowOverlap,
			"low overlap: levels with <50%% of samples in the overlap region [%.4f, %.4f]: %v",
			od.OverlapLow, od.OverlapHigh, low)
	}
}

// WarnTreatmentDominance flags a level holding more than 80% of the sample.
func WarnTreatmentDominance(log *Log, counts map[causal.Level]int) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return
	}
	for level, count := range counts {
		pct := 100 * float64(count) / float64(total)
		if pct > 80 {
			log.Warnf(CategoryTreatmentDominance,
				"single treatment dominance: level %q comprises %.1f%% of the sample (%d of %d observations)",
				level, pct, count, total)
			return
		}
	}
}

// WarnMissingValues flags tolerated missing entries that downstream
// computation will exclude.
func WarnMissingValues(log *Log, name string, nMissing, nTotal int) {
	if nMissing == 0 {
		return
	}
	pct := 100 * float64(nMissing) / float64(nTotal)
	log.Warnf(CategoryMissingValues,
		"missing values detected in %s: %d of %d (%.1f%%); these observations are excluded from analysis",
		name, nMissing, nTotal, pct)
}

// WarnLearnerInterface flags a learner operating through a fallback
// capability.
func WarnLearnerInterface(log *Log, learnerName, capability string) {
	log.Warnf(CategoryLearnerInterface,
		"learner %s does not provide %s; falling back to uncalibrated decision scores",
		learnerName, capability)
}
