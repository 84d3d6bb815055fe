/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists store records with their period-keyed JSON blobs, collaborator
  evaluations, occupancy costs, import runs and the audit trail. In
  production the same schema maps onto PostgreSQL jsonb columns.

INTERFACES IMPLEMENTED:
  kpi.StoreRepository:      Store records and blob writes
  kpi.EvaluationRepository: Collaborator evaluations

BLOB COLUMNS:
  goals_json, weights_json, store_results_json, collaborator_results_json
  and results_locks_json each hold one whole period-keyed JSON object. A
  write replaces the whole column; merging a period happens in kpi.Service.

CONDITIONAL UPDATES:
  Every blob write is guarded by the version column:
    UPDATE stores SET <col> = ?, version = version + 1
    WHERE id = ? AND version = ?
  Zero rows affected on an existing store means another editor wrote first
  and the caller gets kpi.ErrConcurrentModification.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/performance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := kpi.NewService(store)

SEE ALSO:
  - kpi/store.go: Interface definitions
  - kpi/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/store-performance/analytics"
	"github.com/warp/store-performance/kpi"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stores with their period-keyed blobs
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE COLLATE NOCASE,
		name TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		goals_json TEXT NOT NULL DEFAULT '{}',
		weights_json TEXT NOT NULL DEFAULT '{}',
		store_results_json TEXT NOT NULL DEFAULT '{}',
		collaborator_results_json TEXT NOT NULL DEFAULT '{}',
		results_locks_json TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stores_region ON stores(region);

	-- Collaborator evaluations (qualitative pillars)
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL REFERENCES stores(id),
		collaborator_id TEXT NOT NULL DEFAULT '',
		pillar TEXT NOT NULL,
		period TEXT NOT NULL,
		score REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		created_at TEXT NOT NULL,
		reviewed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_store_period
		ON evaluations(store_id, period);

	-- Occupancy costs (CTO), one row per store and period
	CREATE TABLE IF NOT EXISTS occupancy_costs (
		store_id TEXT NOT NULL REFERENCES stores(id),
		period TEXT NOT NULL,
		rent TEXT NOT NULL,
		condo_fees TEXT NOT NULL,
		property_tax TEXT NOT NULL,
		marketing_fund TEXT NOT NULL,
		other TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_id, period)
	);

	-- Import runs (for the import history screen)
	CREATE TABLE IF NOT EXISTS import_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		filename TEXT NOT NULL,
		default_period TEXT NOT NULL,
		total INTEGER NOT NULL,
		imported INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Audit trail
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor TEXT NOT NULL,
		type TEXT NOT NULL,
		store_id TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_store ON audit_events(store_id, ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE RECORDS (kpi.StoreRepository interface)
// =============================================================================

var blobColumns = map[kpi.Field]string{
	kpi.FieldGoals:               "goals_json",
	kpi.FieldWeights:             "weights_json",
	kpi.FieldStoreResults:        "store_results_json",
	kpi.FieldCollaboratorResults: "collaborator_results_json",
	kpi.FieldResultsLocks:        "results_locks_json",
}

const storeColumns = `id, code, name, region, goals_json, weights_json, store_results_json,
	collaborator_results_json, results_locks_json, version, created_at, updated_at`

// CreateStore inserts a store with whatever blobs it already carries.
func (s *Store) CreateStore(ctx context.Context, st kpi.Store) error {
	blobs := make(map[kpi.Field]string, len(kpi.Fields))
	for _, f := range kpi.Fields {
		data, err := st.MarshalBlob(f)
		if err != nil {
			return err
		}
		blobs[f] = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (`+storeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		string(st.ID), st.Code, st.Name, st.Region,
		blobs[kpi.FieldGoals], blobs[kpi.FieldWeights], blobs[kpi.FieldStoreResults],
		blobs[kpi.FieldCollaboratorResults], blobs[kpi.FieldResultsLocks],
		now, now,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s", kpi.ErrDuplicateStoreCode, st.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// GetStore retrieves a store by ID.
func (s *Store) GetStore(ctx context.Context, id kpi.StoreID) (*kpi.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+storeColumns+" FROM stores WHERE id = ?", string(id))
	return scanStore(row)
}

// GetStoreByCode retrieves a store by code, case-insensitively.
func (s *Store) GetStoreByCode(ctx context.Context, code string) (*kpi.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+storeColumns+" FROM stores WHERE code = ?", strings.TrimSpace(code))
	return scanStore(row)
}

// ListStores returns all stores ordered by code.
func (s *Store) ListStores(ctx context.Context) ([]kpi.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+storeColumns+" FROM stores ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []kpi.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *st)
	}
	return stores, rows.Err()
}

// UpdateField overwrites one blob column if the version still matches.
func (s *Store) UpdateField(ctx context.Context, id kpi.StoreID, field kpi.Field, blob any, expectedVersion int64) (int64, error) {
	return s.UpdateFields(ctx, id, map[kpi.Field]any{field: blob}, expectedVersion)
}

// UpdateFields overwrites several blob columns in a single UPDATE guarded by
// the version column.
func (s *Store) UpdateFields(ctx context.Context, id kpi.StoreID, blobs map[kpi.Field]any, expectedVersion int64) (int64, error) {
	if len(blobs) == 0 {
		return 0, errors.New("no store fields to update")
	}

	var (
		sets []string
		args []any
	)
	// Column order follows kpi.Fields so the statement text is stable.
	for _, field := range kpi.Fields {
		blob, ok := blobs[field]
		if !ok {
			continue
		}
		data, err := kpi.EncodeBlob(blob)
		if err != nil {
			return 0, err
		}
		sets = append(sets, blobColumns[field]+" = ?")
		args = append(args, string(data))
	}
	if len(sets) != len(blobs) {
		for field := range blobs {
			if _, ok := blobColumns[field]; !ok {
				return 0, fmt.Errorf("unknown store field %q", field)
			}
		}
	}
	args = append(args, time.Now().UTC().Format(time.RFC3339), string(id), expectedVersion)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE stores SET "+strings.Join(sets, ", ")+", version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update store fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stores WHERE id = ?", string(id)).Scan(&exists)
		if err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, kpi.ErrStoreNotFound
		}
		return 0, kpi.ErrConcurrentModification
	}
	return expectedVersion + 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (*kpi.Store, error) {
	var (
		st                   kpi.Store
		id                   string
		createdAt, updatedAt string
		blobs                = make([]string, len(kpi.Fields))
	)
	err := row.Scan(&id, &st.Code, &st.Name, &st.Region,
		&blobs[0], &blobs[1], &blobs[2], &blobs[3], &blobs[4],
		&st.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kpi.ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}

	st.ID = kpi.StoreID(id)
	// kpi.Fields order matches the column order in storeColumns.
	for i, f := range kpi.Fields {
		if err := st.UnmarshalBlob(f, []byte(blobs[i])); err != nil {
			return nil, fmt.Errorf("store %s: %w", id, err)
		}
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &st, nil
}

// =============================================================================
// EVALUATIONS (kpi.EvaluationRepository interface)
// =============================================================================

// SaveEvaluation inserts or updates an evaluation.
func (s *Store) SaveEvaluation(ctx context.Context, e kpi.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var reviewedAt sql.NullString
	if e.ReviewedAt != nil {
		reviewedAt = nullString(e.ReviewedAt.UTC().Format(time.RFC3339))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, store_id, collaborator_id, pillar, period, score, status, notes, created_at, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			score = excluded.score,
			status = excluded.status,
			notes = excluded.notes,
			reviewed_at = excluded.reviewed_at`,
		e.ID, string(e.StoreID), e.CollaboratorID, string(e.Pillar), string(e.Period), e.Score,
		string(e.Status), nullString(e.Notes), e.CreatedAt.UTC().Format(time.RFC3339), reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// GetEvaluation retrieves an evaluation by ID.
func (s *Store) GetEvaluation(ctx context.Context, id string) (*kpi.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, collaborator_id, pillar, period, score, status, notes, created_at, reviewed_at
		FROM evaluations WHERE id = ?`, id)
	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kpi.ErrEvaluationNotFound
	}
	return e, err
}

// ReviewEvaluation moves a pending evaluation to status. The status check is
// part of the UPDATE, so of two concurrent reviews only one applies.
func (s *Store) ReviewEvaluation(ctx context.Context, id string, status kpi.EvaluationStatus, at time.Time) (*kpi.Evaluation, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE evaluations SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?",
		string(status), at.UTC().Format(time.RFC3339), id, string(kpi.EvaluationPending),
	)
	var affected int64
	if err == nil {
		affected, err = res.RowsAffected()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to review evaluation: %w", err)
	}

	e, err := s.GetEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, kpi.ErrEvaluationReviewed
	}
	return e, nil
}

// ListEvaluations returns a store's evaluations, optionally for one period.
func (s *Store) ListEvaluations(ctx context.Context, storeID kpi.StoreID, period kpi.Period) ([]kpi.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, collaborator_id, pillar, period, score, status, notes, created_at, reviewed_at
		FROM evaluations
		WHERE store_id = ? AND (? = '' OR period = ?)
		ORDER BY created_at ASC`,
		string(storeID), string(period), string(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evaluations []kpi.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, *e)
	}
	return evaluations, rows.Err()
}

func scanEvaluation(row rowScanner) (*kpi.Evaluation, error) {
	var (
		e                               kpi.Evaluation
		storeID, pillar, period, status string
		notes, reviewedAt               sql.NullString
		createdAt                       string
	)
	if err := row.Scan(&e.ID, &storeID, &e.CollaboratorID, &pillar, &period, &e.Score, &status, &notes, &createdAt, &reviewedAt); err != nil {
		return nil, err
	}
	e.StoreID = kpi.StoreID(storeID)
	e.Pillar = kpi.Pillar(pillar)
	e.Period = kpi.Period(period)
	e.Status = kpi.EvaluationStatus(status)
	e.Notes = notes.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if reviewedAt.Valid {
		t, err := time.Parse(time.RFC3339, reviewedAt.String)
		if err == nil {
			e.ReviewedAt = &t
		}
	}
	return &e, nil
}

// =============================================================================
// OCCUPANCY COSTS
// =============================================================================

// SaveOccupancyCosts replaces a store's costs for one period.
func (s *Store) SaveOccupancyCosts(ctx context.Context, storeID kpi.StoreID, period kpi.Period, c analytics.OccupancyCosts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO occupancy_costs (store_id, period, rent, condo_fees, property_tax, marketing_fund, other, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, period) DO UPDATE SET
			rent = excluded.rent,
			condo_fees = excluded.condo_fees,
			property_tax = excluded.property_tax,
			marketing_fund = excluded.marketing_fund,
			other = excluded.other,
			updated_at = excluded.updated_at`,
		string(storeID), string(period),
		c.Rent.String(), c.CondoFees.String(), c.PropertyTax.String(), c.MarketingFund.String(), c.Other.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetOccupancyCosts returns (nil, nil) when no costs were recorded.
func (s *Store) GetOccupancyCosts(ctx context.Context, storeID kpi.StoreID, period kpi.Period) (*analytics.OccupancyCosts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rent, condo, tax, fund, other string
	err := s.db.QueryRowContext(ctx, `
		SELECT rent, condo_fees, property_tax, marketing_fund, other
		FROM occupancy_costs WHERE store_id = ? AND period = ?`,
		string(storeID), string(period),
	).Scan(&rent, &condo, &tax, &fund, &other)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &analytics.OccupancyCosts{
		Rent:          parseDecimal(rent),
		CondoFees:     parseDecimal(condo),
		PropertyTax:   parseDecimal(tax),
		MarketingFund: parseDecimal(fund),
		Other:         parseDecimal(other),
	}, nil
}

// =============================================================================
// IMPORT RUNS
// =============================================================================

// ImportRun records one spreadsheet import and its report.
type ImportRun struct {
	ID            string
	Kind          string
	Filename      string
	DefaultPeriod string
	Total         int
	Imported      int
	ReportJSON    string
	CreatedAt     time.Time
}

// SaveImportRun records an import. An empty ID gets a fresh UUID.
func (s *Store) SaveImportRun(ctx context.Context, r ImportRun) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, kind, filename, default_period, total, imported, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Filename, r.DefaultPeriod, r.Total, r.Imported, r.ReportJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save import run: %w", err)
	}
	return r.ID, nil
}

// ListImportRuns returns the most recent imports first.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, filename, default_period, total, imported, report_json, created_at
		FROM import_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var r ImportRun
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Filename, &r.DefaultPeriod, &r.Total, &r.Imported, &r.ReportJSON, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AuditEvent records who changed what.
type AuditEvent struct {
	ID        string
	Timestamp time.Time
	Actor     string
	Type      string
	StoreID   kpi.StoreID
	Period    kpi.Period
	Payload   map[string]any
}

// auditTimeFormat is fixed width so timestamps sort as text.
const auditTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Audit event types.
const (
	AuditGoalsSaved     = "goals_saved"
	AuditWeightsSaved   = "weights_saved"
	AuditResultsSaved   = "results_saved"
	AuditPeriodLocked   = "period_locked"
	AuditPeriodUnlocked = "period_unlocked"
	AuditImport         = "import"
)

// AppendAudit stores an audit event.
func (s *Store) AppendAudit(ctx context.Context, e AuditEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, ts, actor, type, store_id, period, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(auditTimeFormat), e.Actor, e.Type,
		string(e.StoreID), string(e.Period), string(payload),
	)
	return err
}

// ListAudit returns a store's audit events, newest first.
func (s *Store) ListAudit(ctx context.Context, storeID kpi.StoreID, limit int) ([]AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, actor, type, store_id, period, payload_json
		FROM audit_events WHERE store_id = ?
		ORDER BY ts DESC LIMIT ?`, string(storeID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			e                       AuditEvent
			ts, store, period, body string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Actor, &e.Type, &store, &period, &body); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(auditTimeFormat, ts)
		e.StoreID = kpi.StoreID(store)
		e.Period = kpi.Period(period)
		_ = json.Unmarshal([]byte(body), &e.Payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"audit_events", "import_runs", "occupancy_costs", "evaluations", "stores"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
