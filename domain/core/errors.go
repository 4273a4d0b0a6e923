package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error taxonomy for the estimation pipeline.
// Every fatal error constructed from these sentinels names the exact
// quantity and value(s) that violated the contract.
var (
	// Input structure errors
	ErrStructuralType      = errors.New("invalid input container type")
	ErrAlignment           = errors.New("inputs are misaligned")
	ErrMissingData         = errors.New("missing data beyond tolerance")
	ErrDegenerateTreatment = errors.New("degenerate treatment assignment")
	ErrEmptyInput          = errors.New("empty input")

	// Numeric contract errors
	ErrRange          = errors.New("value out of valid range")
	ErrDivisionByZero = errors.New("division by zero")

	// Estimation contract errors
	ErrLearnerInterface  = errors.New("learner lacks required capability")
	ErrLevelNotFound     = errors.New("treatment level not found")
	ErrInvalidEffectType = errors.New("invalid effect type")
	ErrNotFitted         = errors.New("estimator is not fitted")
)

// Error constructors with context

func NewStructuralTypeError(name, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrStructuralType, name, reason)
}

func NewAlignmentError(reason string) error {
	return fmt.Errorf("%w: %s", ErrAlignment, reason)
}

func NewMissingDataError(name string, nMissing, nTotal int) error {
	pct := 0.0
	if nTotal > 0 {
		pct = 100 * float64(nMissing) / float64(nTotal)
	}
	return fmt.Errorf("%w: %s has %d of %d missing values (%.1f%%)",
		ErrMissingData, name, nMissing, nTotal, pct)
}

func NewDegenerateTreatmentError(nLevels int) error {
	return fmt.Errorf("%w: treatment assignment must have at least 2 distinct levels, found %d",
		ErrDegenerateTreatment, nLevels)
}

func NewEmptyInputError(name string) error {
	return fmt.Errorf("%w: %s contains no valid values", ErrEmptyInput, name)
}

func NewRangeError(name string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrRange, name, reason)
}

func NewDivisionByZeroError(name string, nZeros int) error {
	return fmt.Errorf("%w: %s contains %d zero value(s)", ErrDivisionByZero, name, nZeros)
}

func NewLearnerInterfaceError(learnerName, capability string) error {
	return fmt.Errorf("%w: %s must provide %s", ErrLearnerInterface, learnerName, capability)
}

func NewLevelNotFoundError(level string, known []string) error {
	return fmt.Errorf("%w: level %q is not among known levels %v", ErrLevelNotFound, level, known)
}

func NewInvalidEffectTypeError(offending []string, supported []string) error {
	return fmt.Errorf("%w: %v (supported: %v)", ErrInvalidEffectType, offending, supported)
}

func NewNotFittedError(estimatorName string, missingMarkers []string) error {
	return fmt.Errorf("%w: %s is missing fitted-state markers %v; call Fit first",
		ErrNotFitted, estimatorName, missingMarkers)
}

// Error checking helpers

func IsValidationError(err error) bool {
	return errors.Is(err, ErrStructuralType) ||
		errors.Is(err, ErrAlignment) ||
		errors.Is(err, ErrMissingData) ||
		errors.Is(err, ErrDegenerateTreatment) ||
		errors.Is(err, ErrEmptyInput)
}

func IsNumericError(err error) bool {
	return errors.Is(err, ErrRange) || errors.Is(err, ErrDivisionByZero)
}
