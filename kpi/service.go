package kpi

import (
	"context"
	"errors"
)

// =============================================================================
// SERVICE - Read-merge-write workflows over StoreRepository
// =============================================================================

// defaultMaxRetries bounds how often a write is replayed after losing a
// conditional update race.
const defaultMaxRetries = 3

// Service implements the goal-entry, results-entry and lock workflows. Each
// workflow reads the store, merges one period into a copy of the field and
// writes the whole field back with the version it read.
type Service struct {
	Repo       StoreRepository
	MaxRetries int
}

func NewService(repo StoreRepository) *Service {
	return &Service{Repo: repo, MaxRetries: defaultMaxRetries}
}

// SaveGoals persists goals and weights for one period. Weights must already
// be balanced; the rebalancer runs while the user edits, never here. Both
// blobs go out in one conditional write.
func (s *Service) SaveGoals(ctx context.Context, id StoreID, p Period, goals Values, weights Weights) (*Store, error) {
	if !p.Valid() {
		return nil, ErrInvalidPeriod
	}
	if weights == nil {
		return s.update(ctx, id, func(st *Store) error {
			st.Goals = st.Goals.Merge(p, goals.Clone())
			return nil
		}, FieldGoals)
	}

	clean, err := cleanWeights(weights)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(st *Store) error {
		st.Goals = st.Goals.Merge(p, goals.Clone())
		st.Weights = st.Weights.Merge(p, clean)
		return nil
	}, FieldGoals, FieldWeights)
}

// SaveWeights persists one period's weights after validating the sum.
func (s *Service) SaveWeights(ctx context.Context, id StoreID, p Period, weights Weights) (*Store, error) {
	if !p.Valid() {
		return nil, ErrInvalidPeriod
	}
	clean, err := cleanWeights(weights)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(st *Store) error {
		st.Weights = st.Weights.Merge(p, clean)
		return nil
	}, FieldWeights)
}

// cleanWeights validates w and returns a copy holding exactly the five KPIs.
func cleanWeights(w Weights) (Weights, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	clean := make(Weights, len(All))
	for _, k := range All {
		clean[k] = w.Get(k)
	}
	return clean, nil
}

// SaveStoreResults persists store-level actuals. A locked period rejects
// the write unless bypassLock is set (network managers).
func (s *Service) SaveStoreResults(ctx context.Context, id StoreID, p Period, results Values, bypassLock bool) (*Store, error) {
	if !p.Valid() {
		return nil, ErrInvalidPeriod
	}
	return s.update(ctx, id, func(st *Store) error {
		if st.IsLocked(p) && !bypassLock {
			return &PeriodLockedError{StoreID: id, Period: p}
		}
		st.StoreResults = st.StoreResults.Merge(p, results.Clone())
		return nil
	}, FieldStoreResults)
}

// SaveCollaboratorResults persists per-collaborator actuals under the same
// lock rule as store results.
func (s *Service) SaveCollaboratorResults(ctx context.Context, id StoreID, p Period, results CollaboratorValues, bypassLock bool) (*Store, error) {
	if !p.Valid() {
		return nil, ErrInvalidPeriod
	}
	clean := make(CollaboratorValues, len(results))
	for collaborator, v := range results {
		clean[collaborator] = v.Clone()
	}
	return s.update(ctx, id, func(st *Store) error {
		if st.IsLocked(p) && !bypassLock {
			return &PeriodLockedError{StoreID: id, Period: p}
		}
		st.CollaboratorResults = st.CollaboratorResults.Merge(p, clean)
		return nil
	}, FieldCollaboratorResults)
}

// SetLock freezes or reopens result entry for a period.
func (s *Service) SetLock(ctx context.Context, id StoreID, p Period, locked bool) (*Store, error) {
	if !p.Valid() {
		return nil, ErrInvalidPeriod
	}
	return s.update(ctx, id, func(st *Store) error {
		st.ResultsLocks = st.ResultsLocks.Merge(p, locked)
		return nil
	}, FieldResultsLocks)
}

// LockIfUnset locks a period only when the store has no lock entry for it.
// An explicit false (a manager reopened the period) is left alone. The check
// runs on every retry, so it sees entries written by concurrent editors.
// Reports whether this call set the lock.
func (s *Service) LockIfUnset(ctx context.Context, id StoreID, p Period) (bool, error) {
	if !p.Valid() {
		return false, ErrInvalidPeriod
	}
	_, err := s.update(ctx, id, func(st *Store) error {
		if st.ResultsLocks.Has(p) {
			return errLockEntryPresent
		}
		st.ResultsLocks = st.ResultsLocks.Merge(p, true)
		return nil
	}, FieldResultsLocks)
	if errors.Is(err, errLockEntryPresent) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var errLockEntryPresent = errors.New("lock entry present")

// update runs one read-merge-write cycle, replaying it when the conditional
// write loses to a concurrent editor. All fields are written under the one
// version check.
func (s *Service) update(ctx context.Context, id StoreID, mutate func(*Store) error, fields ...Field) (*Store, error) {
	for attempt := 0; ; attempt++ {
		st, err := s.Repo.GetStore(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(st); err != nil {
			return nil, err
		}

		blobs := make(map[Field]any, len(fields))
		for _, f := range fields {
			blobs[f] = st.Blob(f)
		}
		version, err := s.Repo.UpdateFields(ctx, id, blobs, st.Version)
		if errors.Is(err, ErrConcurrentModification) && attempt < s.MaxRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		st.Version = version
		return st, nil
	}
}
