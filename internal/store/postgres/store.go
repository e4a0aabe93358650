// Package postgres implements the Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists entities, snapshots and changes in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE entities (
//	    id UUID PRIMARY KEY,
//	    name TEXT NOT NULL,
//	    url TEXT NOT NULL UNIQUE,
//	    category TEXT NOT NULL,
//	    labels TEXT[] NOT NULL DEFAULT '{}',
//	    status TEXT NOT NULL,
//	    last_error TEXT NOT NULL DEFAULT '',
//	    last_checked_at TIMESTAMPTZ,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE snapshots (
//	    id UUID PRIMARY KEY,
//	    entity_id UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
//	    content TEXT NOT NULL,
//	    fingerprint TEXT NOT NULL,
//	    length INT NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE changes (
//	    id UUID PRIMARY KEY,
//	    entity_id UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
//	    previous_snapshot_id UUID NOT NULL,
//	    current_snapshot_id UUID NOT NULL,
//	    diff TEXT NOT NULL,
//	    summary TEXT NOT NULL DEFAULT '',
//	    key_points TEXT[] NOT NULL DEFAULT '{}',
//	    severity TEXT NOT NULL,
//	    is_important BOOLEAN NOT NULL,
//	    detected_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db     DB
	ids    watch.IDGenerator
	clock  watch.Clock
	logger *zap.Logger
}

// New connects to PostgreSQL and pings it to ensure the pool is usable.
func New(ctx context.Context, dsn string, ids watch.IDGenerator, clock watch.Clock, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewWithDB(pool, ids, clock, logger), nil
}

// NewWithDB wraps an existing pool or mock.
func NewWithDB(db DB, ids watch.IDGenerator, clock watch.Clock, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, ids: ids, clock: clock, logger: logger}
}

const entityColumns = `id, name, url, category, labels, status, last_error, last_checked_at, created_at, updated_at`

// CreateEntity inserts a new entity with pending status.
func (s *Store) CreateEntity(ctx context.Context, e watch.Entity) (watch.Entity, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return watch.Entity{}, fmt.Errorf("generate entity id: %w", err)
	}
	now := s.clock.Now()

	e.ID = id
	e.Status = watch.StatusPending
	e.LastError = ""
	e.LastCheckedAt = nil
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Labels == nil {
		e.Labels = []string{}
	}

	query := `
		INSERT INTO entities (id, name, url, category, labels, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.Exec(ctx, query,
		e.ID, e.Name, e.URL, string(e.Category), e.Labels, string(e.Status), e.LastError, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return watch.Entity{}, translateError(err, "insert entity")
	}
	return e, nil
}

// GetEntity loads one entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (watch.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`
	return s.scanEntity(s.db.QueryRow(ctx, query, id))
}

// GetEntityByURL loads one entity by its tracked URL.
func (s *Store) GetEntityByURL(ctx context.Context, url string) (watch.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE lower(url) = lower($1)`
	return s.scanEntity(s.db.QueryRow(ctx, query, url))
}

// ListEntities returns all entities ordered by creation time.
func (s *Store) ListEntities(ctx context.Context) ([]watch.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []watch.Entity
	for rows.Next() {
		e, err := s.scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return out, nil
}

// UpdateEntity replaces the descriptive fields of an entity.
func (s *Store) UpdateEntity(ctx context.Context, e watch.Entity) (watch.Entity, error) {
	if e.Labels == nil {
		e.Labels = []string{}
	}
	query := `
		UPDATE entities
		SET name = $2, url = $3, category = $4, labels = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, e.ID, e.Name, e.URL, string(e.Category), e.Labels, s.clock.Now())
	if err != nil {
		return watch.Entity{}, translateError(err, "update entity")
	}
	if tag.RowsAffected() == 0 {
		return watch.Entity{}, watch.ErrEntityNotFound
	}
	return s.GetEntity(ctx, e.ID)
}

// DeleteEntity removes the entity; snapshots and changes cascade.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return watch.ErrEntityNotFound
	}
	return nil
}

// CountEntities returns the number of tracked entities.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return count, nil
}

// LoadCurrentSnapshot returns the latest snapshot for the entity, or nil.
func (s *Store) LoadCurrentSnapshot(ctx context.Context, entityID string) (*watch.Snapshot, error) {
	query := `
		SELECT id, entity_id, content, fingerprint, length, captured_at
		FROM snapshots
		WHERE entity_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`
	var snap watch.Snapshot
	err := s.db.QueryRow(ctx, query, entityID).Scan(
		&snap.ID, &snap.EntityID, &snap.Content, &snap.Fingerprint, &snap.Length, &snap.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot appends a new snapshot for the entity.
func (s *Store) SaveSnapshot(ctx context.Context, entityID, content, fingerprint string, length int) (watch.Snapshot, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return watch.Snapshot{}, fmt.Errorf("generate snapshot id: %w", err)
	}
	snap := watch.Snapshot{
		ID:          id,
		EntityID:    entityID,
		Content:     content,
		Fingerprint: fingerprint,
		Length:      length,
		CapturedAt:  s.clock.Now(),
	}

	query := `
		INSERT INTO snapshots (id, entity_id, content, fingerprint, length, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query,
		snap.ID, snap.EntityID, snap.Content, snap.Fingerprint, snap.Length, snap.CapturedAt,
	); err != nil {
		return watch.Snapshot{}, translateError(err, "insert snapshot")
	}
	return snap, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, entityID string, limit int) ([]watch.Snapshot, error) {
	query := `
		SELECT id, entity_id, content, fingerprint, length, captured_at
		FROM snapshots
		WHERE entity_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []watch.Snapshot
	for rows.Next() {
		var snap watch.Snapshot
		if err := rows.Scan(&snap.ID, &snap.EntityID, &snap.Content, &snap.Fingerprint, &snap.Length, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// SaveChange inserts a change record, assigning its ID.
func (s *Store) SaveChange(ctx context.Context, ch watch.Change) (watch.Change, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return watch.Change{}, fmt.Errorf("generate change id: %w", err)
	}
	ch.ID = id
	if ch.DetectedAt.IsZero() {
		ch.DetectedAt = s.clock.Now()
	}
	if ch.KeyPoints == nil {
		ch.KeyPoints = []string{}
	}

	query := `
		INSERT INTO changes (id, entity_id, previous_snapshot_id, current_snapshot_id, diff, summary, key_points, severity, is_important, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.db.Exec(ctx, query,
		ch.ID, ch.EntityID, ch.PreviousSnapshotID, ch.CurrentSnapshotID,
		ch.Diff, ch.Summary, ch.KeyPoints, string(ch.Severity), ch.IsImportant, ch.DetectedAt,
	); err != nil {
		return watch.Change{}, translateError(err, "insert change")
	}
	return ch, nil
}

// ListChanges returns up to limit changes, newest first.
func (s *Store) ListChanges(ctx context.Context, entityID string, limit int) ([]watch.Change, error) {
	query := `
		SELECT id, entity_id, previous_snapshot_id, current_snapshot_id, diff, summary, key_points, severity, is_important, detected_at
		FROM changes
		WHERE entity_id = $1
		ORDER BY detected_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var out []watch.Change
	for rows.Next() {
		var ch watch.Change
		var severity string
		if err := rows.Scan(
			&ch.ID, &ch.EntityID, &ch.PreviousSnapshotID, &ch.CurrentSnapshotID,
			&ch.Diff, &ch.Summary, &ch.KeyPoints, &severity, &ch.IsImportant, &ch.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		ch.Severity = watch.Severity(severity)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return out, nil
}

// UpdateEntityStatus records a check outcome on the entity.
func (s *Store) UpdateEntityStatus(ctx context.Context, entityID string, status watch.EntityStatus, lastError string, checkedAt time.Time) error {
	query := `
		UPDATE entities
		SET status = $2, last_error = $3, last_checked_at = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, entityID, string(status), lastError, checkedAt, s.clock.Now())
	if err != nil {
		return fmt.Errorf("update entity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return watch.ErrEntityNotFound
	}
	return nil
}

// Ping verifies the pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func (s *Store) scanEntity(row pgx.Row) (watch.Entity, error) {
	var (
		e        watch.Entity
		category string
		status   string
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.URL, &category, &e.Labels, &status,
		&e.LastError, &e.LastCheckedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return watch.Entity{}, watch.ErrEntityNotFound
	}
	if err != nil {
		return watch.Entity{}, fmt.Errorf("scan entity: %w", err)
	}
	e.Category = watch.EntityCategory(category)
	e.Status = watch.EntityStatus(status)
	return e, nil
}

// translateError maps unique violations to ErrDuplicateURL.
func translateError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return watch.ErrDuplicateURL
	}
	return fmt.Errorf("%s: %w", op, err)
}
