// Package store provides StoreRepository implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/store-performance/kpi"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps blobs as encoded JSON, the same shape the database holds, so
// callers can never mutate stored state through a returned record.
type Memory struct {
	mu          sync.RWMutex
	stores      map[kpi.StoreID]*record
	byCode      map[string]kpi.StoreID
	evaluations map[string]kpi.Evaluation
}

type record struct {
	store kpi.Store
	blobs map[kpi.Field][]byte
}

func NewMemory() *Memory {
	return &Memory{
		stores:      make(map[kpi.StoreID]*record),
		byCode:      make(map[string]kpi.StoreID),
		evaluations: make(map[string]kpi.Evaluation),
	}
}

// CreateStore inserts a store. Codes are unique case-insensitively.
func (m *Memory) CreateStore(_ context.Context, s kpi.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := strings.ToLower(s.Code)
	if _, taken := m.byCode[code]; taken {
		return kpi.ErrDuplicateStoreCode
	}

	rec := &record{blobs: make(map[kpi.Field][]byte)}
	for _, f := range kpi.Fields {
		data, err := s.MarshalBlob(f)
		if err != nil {
			return err
		}
		rec.blobs[f] = data
	}
	now := time.Now().UTC()
	rec.store = kpi.Store{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		Region:    s.Region,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.stores[s.ID] = rec
	m.byCode[code] = s.ID
	return nil
}

func (m *Memory) GetStore(_ context.Context, id kpi.StoreID) (*kpi.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.stores[id]
	if !ok {
		return nil, kpi.ErrStoreNotFound
	}
	return rec.materialize()
}

func (m *Memory) GetStoreByCode(ctx context.Context, code string) (*kpi.Store, error) {
	m.mu.RLock()
	id, ok := m.byCode[strings.ToLower(strings.TrimSpace(code))]
	m.mu.RUnlock()
	if !ok {
		return nil, kpi.ErrStoreNotFound
	}
	return m.GetStore(ctx, id)
}

func (m *Memory) ListStores(_ context.Context) ([]kpi.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]kpi.Store, 0, len(m.stores))
	for _, rec := range m.stores {
		st, err := rec.materialize()
		if err != nil {
			return nil, err
		}
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// UpdateField replaces one blob if the version still matches.
func (m *Memory) UpdateField(ctx context.Context, id kpi.StoreID, field kpi.Field, blob any, expectedVersion int64) (int64, error) {
	return m.UpdateFields(ctx, id, map[kpi.Field]any{field: blob}, expectedVersion)
}

// UpdateFields replaces several blobs under one version check.
func (m *Memory) UpdateFields(_ context.Context, id kpi.StoreID, blobs map[kpi.Field]any, expectedVersion int64) (int64, error) {
	encoded := make(map[kpi.Field][]byte, len(blobs))
	for field, blob := range blobs {
		data, err := kpi.EncodeBlob(blob)
		if err != nil {
			return 0, err
		}
		encoded[field] = data
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.stores[id]
	if !ok {
		return 0, kpi.ErrStoreNotFound
	}
	if rec.store.Version != expectedVersion {
		return 0, kpi.ErrConcurrentModification
	}
	for field, data := range encoded {
		rec.blobs[field] = data
	}
	rec.store.Version++
	rec.store.UpdatedAt = time.Now().UTC()
	return rec.store.Version, nil
}

func (r *record) materialize() (*kpi.Store, error) {
	st := r.store
	for _, f := range kpi.Fields {
		if err := st.UnmarshalBlob(f, r.blobs[f]); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func (m *Memory) SaveEvaluation(_ context.Context, e kpi.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[e.ID] = e
	return nil
}

func (m *Memory) GetEvaluation(_ context.Context, id string) (*kpi.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, kpi.ErrEvaluationNotFound
	}
	return &e, nil
}

// ReviewEvaluation moves a pending evaluation to status.
func (m *Memory) ReviewEvaluation(_ context.Context, id string, status kpi.EvaluationStatus, at time.Time) (*kpi.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, kpi.ErrEvaluationNotFound
	}
	if e.Status != kpi.EvaluationPending {
		return nil, kpi.ErrEvaluationReviewed
	}
	at = at.UTC()
	e.Status = status
	e.ReviewedAt = &at
	m.evaluations[id] = e
	return &e, nil
}

func (m *Memory) ListEvaluations(_ context.Context, storeID kpi.StoreID, period kpi.Period) ([]kpi.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []kpi.Evaluation
	for _, e := range m.evaluations {
		if e.StoreID == storeID && (period == "" || e.Period == period) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
