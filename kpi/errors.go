/*
errors.go - Centralized error types for the performance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Importer and API packages wrap these with additional context.

ERROR CATEGORIES:
  1. Validation errors - bad period, unknown KPI, unbalanced weights
  2. Boundary errors - store not found, locked period
  3. Store errors - concurrent modification on conditional writes

PROPAGATION:
  Pure functions (Rebalance, ScoreStore, ParseNumericCell) never return
  errors; they recover locally with 0 or a skip. Only boundary failures
  travel up to the caller.

USAGE:
    if errors.Is(err, kpi.ErrPeriodLocked) {
        // render read-only
    }

SEE ALSO:
  - service.go: Returns these errors
  - store/sqlite/sqlite.go: Returns ErrConcurrentModification
*/
package kpi

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreNotFound is returned when a referenced store doesn't exist.
	ErrStoreNotFound = errors.New("store not found")

	// ErrDuplicateStoreCode is returned when a store code is already taken.
	ErrDuplicateStoreCode = errors.New("duplicate store code")

	// ErrEvaluationNotFound is returned when a referenced evaluation doesn't exist.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrEvaluationReviewed is returned when an evaluation is approved or
	// rejected after it already left the pending state.
	ErrEvaluationReviewed = errors.New("evaluation already reviewed")

	// ErrInvalidPeriod is returned when a period key is not YYYY-MM.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidKPI is returned for a KPI name outside the fixed set.
	ErrInvalidKPI = errors.New("invalid kpi")

	// ErrWeightsUnbalanced is returned when weights about to be persisted
	// do not sum to 100.
	ErrWeightsUnbalanced = errors.New("weights must sum to 100")

	// ErrPeriodLocked is returned when results for a locked period are written.
	ErrPeriodLocked = errors.New("period results are locked")

	// ErrConcurrentModification is returned when a conditional write finds a
	// newer version than the one read.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// WeightSumError reports the actual total of an unbalanced weight vector.
type WeightSumError struct {
	Sum float64
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("weights sum to %g, must sum to 100", e.Sum)
}

func (e *WeightSumError) Unwrap() error {
	return ErrWeightsUnbalanced
}

// WeightRangeError reports a weight outside [0,100] or with a fraction.
type WeightRangeError struct {
	KPI   KPI
	Value float64
}

func (e *WeightRangeError) Error() string {
	return fmt.Sprintf("weight for %s is %g, must be a whole number within [0,100]", e.KPI, e.Value)
}

func (e *WeightRangeError) Unwrap() error {
	return ErrWeightsUnbalanced
}

// PeriodLockedError names the store and period that rejected a write.
type PeriodLockedError struct {
	StoreID StoreID
	Period  Period
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("results for store %s are locked for %s", e.StoreID, e.Period)
}

func (e *PeriodLockedError) Unwrap() error {
	return ErrPeriodLocked
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidKPI) ||
		errors.Is(err, ErrWeightsUnbalanced)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound) ||
		errors.Is(err, ErrEvaluationNotFound)
}

// IsConflict returns true if retrying with fresh data may succeed, or the
// write collides with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrDuplicateStoreCode) ||
		errors.Is(err, ErrEvaluationReviewed)
}
