/*
Package kpi provides the store performance engine.

PURPOSE:
  This package contains the domain types and pure algorithms used to track
  retail stores against monthly targets. Pages, imports and dashboards all
  go through the same functions here, so the goal/result/weight arithmetic
  lives in exactly one place.

KEY CONCEPTS IN THIS FILE (types.go):
  - KPI: One of the five fixed performance indicators
  - Values: KPI -> number mapping (goals, results)
  - Weights: KPI -> importance weight, summing to 100 per period
  - Store: The store record with its period-keyed JSON blobs

DESIGN PRINCIPLES:
  1. Closed KPI set: the five names never change at runtime
  2. Absent means zero: a missing KPI or period reads as 0, never nil
  3. Explicit periods: nothing here reads the wall clock

USAGE:
  goals := store.Goals.Get(period)
  results := store.StoreResults.Get(period)
  score, ok := kpi.ScoreStore(goals, results, store.WeightsFor(period))

SEE ALSO:
  - period.go: Period keys and period-keyed maps
  - rebalance.go: Weight Rebalancer
  - score.go: Goal Achievement Scorer
*/
package kpi

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// KPI - The fixed indicator set
// =============================================================================

type KPI string

const (
	Faturamento        KPI = "faturamento"        // revenue
	PA                 KPI = "pa"                 // items per transaction
	TicketMedio        KPI = "ticketMedio"        // average ticket
	PrateleiraInfinita KPI = "prateleiraInfinita" // digital-extension sales
	Conversao          KPI = "conversao"          // conversion rate, percent
)

// All lists the KPIs in their fixed ordering. Tie-breaks in the rebalancer
// follow this order.
var All = []KPI{Faturamento, PA, TicketMedio, PrateleiraInfinita, Conversao}

// Valid reports whether k is one of the five known KPIs.
func (k KPI) Valid() bool {
	for _, known := range All {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKPI validates a KPI name.
func ParseKPI(s string) (KPI, error) {
	k := KPI(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKPI, s)
	}
	return k, nil
}

// =============================================================================
// VALUES - Goals and results
// =============================================================================

// Values maps KPI names to numbers. Used for goals, store results and
// collaborator results. A nil Values reads as all zeros.
type Values map[KPI]float64

// Get returns the value for k, or 0 when unset.
func (v Values) Get(k KPI) float64 {
	return v[k]
}

// Clone returns a copy restricted to known KPIs.
func (v Values) Clone() Values {
	out := make(Values, len(All))
	for _, k := range All {
		if val, ok := v[k]; ok {
			out[k] = val
		}
	}
	return out
}

// IsEmpty reports whether no KPI holds a non-zero value.
func (v Values) IsEmpty() bool {
	for _, k := range All {
		if v[k] != 0 {
			return false
		}
	}
	return true
}

// Weights maps KPI names to integer-valued weights in [0,100].
type Weights map[KPI]float64

// Get returns the weight for k, or 0 when unset.
func (w Weights) Get(k KPI) float64 {
	return w[k]
}

// Sum adds the five weights.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, k := range All {
		total += w[k]
	}
	return total
}

// Validate checks the persistence invariant: every weight a whole number in
// [0,100] and the total exactly 100.
func (w Weights) Validate() error {
	for _, k := range All {
		if v := w[k]; v < 0 || v > 100 || v != math.Trunc(v) {
			return &WeightRangeError{KPI: k, Value: v}
		}
	}
	if sum := w.Sum(); sum != 100 {
		return &WeightSumError{Sum: sum}
	}
	return nil
}

// DefaultWeights splits the 100 points evenly.
func DefaultWeights() Weights {
	return Weights{
		Faturamento:        20,
		PA:                 20,
		TicketMedio:        20,
		PrateleiraInfinita: 20,
		Conversao:          20,
	}
}

// =============================================================================
// STORE - Record with period-keyed blobs
// =============================================================================

type StoreID string

// CollaboratorValues maps collaborator ids to their realized values.
type CollaboratorValues map[string]Values

// Store is one shop of the network. The five maps are independent JSON
// documents keyed by period; each one is written back whole.
type Store struct {
	ID     StoreID
	Code   string
	Name   string
	Region string

	Goals               PeriodMap[Values]
	Weights             PeriodMap[Weights]
	StoreResults        PeriodMap[Values]
	CollaboratorResults PeriodMap[CollaboratorValues]
	ResultsLocks        PeriodMap[bool]

	// Version increments on every field write; used for conditional updates.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WeightsFor returns the weights configured for p. A period without saved
// weights uses DefaultWeights so freshly created goals still score.
func (s *Store) WeightsFor(p Period) Weights {
	w, ok := s.Weights[p]
	if !ok || len(w) == 0 {
		return DefaultWeights()
	}
	return w
}

// IsLocked reports whether result entry for p is frozen.
func (s *Store) IsLocked(p Period) bool {
	return s.ResultsLocks.Get(p)
}

// Field names a period-keyed blob column of the store record.
type Field string

const (
	FieldGoals               Field = "goals"
	FieldWeights             Field = "weights"
	FieldStoreResults        Field = "store_results"
	FieldCollaboratorResults Field = "collaborator_results"
	FieldResultsLocks        Field = "results_locks"
)

// Blob returns the current value of field, ready to be serialized.
func (s *Store) Blob(f Field) any {
	switch f {
	case FieldGoals:
		return s.Goals
	case FieldWeights:
		return s.Weights
	case FieldStoreResults:
		return s.StoreResults
	case FieldCollaboratorResults:
		return s.CollaboratorResults
	case FieldResultsLocks:
		return s.ResultsLocks
	}
	return nil
}
