/*
store.go - Persistence interface for store records

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  reads whole store records and writes back one whole period-keyed field at
  a time; the database never patches a single period inside a blob.

CONDITIONAL WRITES:
  UpdateField and UpdateFields take the version the caller read. If another
  writer got there first the write fails with ErrConcurrentModification
  instead of silently clobbering the other editor's period. Service retries the
  read-merge-write cycle a few times before giving up.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - kpi/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Read-merge-write workflows using StoreRepository
*/
package kpi

import (
	"context"
	"time"
)

// StoreRepository persists store records.
type StoreRepository interface {
	// CreateStore inserts a new store. Returns ErrDuplicateStoreCode if the
	// code (case-insensitive) is taken.
	CreateStore(ctx context.Context, s Store) error

	// GetStore returns ErrStoreNotFound if id is unknown.
	GetStore(ctx context.Context, id StoreID) (*Store, error)

	// GetStoreByCode matches code case-insensitively.
	GetStoreByCode(ctx context.Context, code string) (*Store, error)

	// ListStores returns every store ordered by code.
	ListStores(ctx context.Context) ([]Store, error)

	// UpdateField overwrites one whole blob field if the stored version
	// still equals expectedVersion. Returns the new version.
	UpdateField(ctx context.Context, id StoreID, field Field, blob any, expectedVersion int64) (int64, error)

	// UpdateFields overwrites several blob fields in one write under a
	// single version check. Either every field is written or none is.
	UpdateFields(ctx context.Context, id StoreID, blobs map[Field]any, expectedVersion int64) (int64, error)
}

// EvaluationRepository persists collaborator evaluations.
type EvaluationRepository interface {
	SaveEvaluation(ctx context.Context, e Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*Evaluation, error)
	ListEvaluations(ctx context.Context, storeID StoreID, period Period) ([]Evaluation, error)

	// ReviewEvaluation moves a pending evaluation to status. Returns
	// ErrEvaluationReviewed if it is no longer pending.
	ReviewEvaluation(ctx context.Context, id string, status EvaluationStatus, at time.Time) (*Evaluation, error)
}
