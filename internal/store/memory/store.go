// Package memory provides an in-memory Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// Store keeps entities, snapshots and changes in maps guarded by a RWMutex.
// Snapshots and changes are append-only per entity. All reads return copies
// so callers can never mutate stored state.
type Store struct {
	mu        sync.RWMutex
	entities  map[string]watch.Entity
	snapshots map[string][]watch.Snapshot
	changes   map[string][]watch.Change
	ids       watch.IDGenerator
	clock     watch.Clock
}

// New creates an empty Store.
func New(ids watch.IDGenerator, clock watch.Clock) *Store {
	return &Store{
		entities:  make(map[string]watch.Entity),
		snapshots: make(map[string][]watch.Snapshot),
		changes:   make(map[string][]watch.Change),
		ids:       ids,
		clock:     clock,
	}
}

// CreateEntity stores a new entity with a fresh ID and pending status.
func (s *Store) CreateEntity(_ context.Context, e watch.Entity) (watch.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entities {
		if strings.EqualFold(existing.URL, e.URL) {
			return watch.Entity{}, watch.ErrDuplicateURL
		}
	}

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

	s.entities[id] = cloneEntity(e)
	return cloneEntity(e), nil
}

// GetEntity returns the entity or watch.ErrEntityNotFound.
func (s *Store) GetEntity(_ context.Context, id string) (watch.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return watch.Entity{}, watch.ErrEntityNotFound
	}
	return cloneEntity(e), nil
}

// GetEntityByURL returns the entity tracking url or watch.ErrEntityNotFound.
func (s *Store) GetEntityByURL(_ context.Context, url string) (watch.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entities {
		if strings.EqualFold(e.URL, url) {
			return cloneEntity(e), nil
		}
	}
	return watch.Entity{}, watch.ErrEntityNotFound
}

// ListEntities returns all entities ordered by creation time.
func (s *Store) ListEntities(_ context.Context) ([]watch.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]watch.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, cloneEntity(e))
	}
	slices.SortFunc(out, func(a, b watch.Entity) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// UpdateEntity replaces the mutable descriptive fields of an entity.
func (s *Store) UpdateEntity(_ context.Context, e watch.Entity) (watch.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entities[e.ID]
	if !ok {
		return watch.Entity{}, watch.ErrEntityNotFound
	}
	for id, existing := range s.entities {
		if id != e.ID && strings.EqualFold(existing.URL, e.URL) {
			return watch.Entity{}, watch.ErrDuplicateURL
		}
	}

	current.Name = e.Name
	current.URL = e.URL
	current.Category = e.Category
	current.Labels = slices.Clone(e.Labels)
	current.UpdatedAt = s.clock.Now()

	s.entities[e.ID] = current
	return cloneEntity(current), nil
}

// DeleteEntity removes the entity and its snapshots and changes.
func (s *Store) DeleteEntity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return watch.ErrEntityNotFound
	}
	delete(s.entities, id)
	delete(s.snapshots, id)
	delete(s.changes, id)
	return nil
}

// CountEntities returns the number of tracked entities.
func (s *Store) CountEntities(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities), nil
}

// LoadCurrentSnapshot returns the latest snapshot for the entity, or nil.
func (s *Store) LoadCurrentSnapshot(_ context.Context, entityID string) (*watch.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[entityID]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}

// SaveSnapshot appends a new snapshot for the entity.
func (s *Store) SaveSnapshot(_ context.Context, entityID, content, fingerprint string, length int) (watch.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[entityID]; !ok {
		return watch.Snapshot{}, watch.ErrEntityNotFound
	}
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
	s.snapshots[entityID] = append(s.snapshots[entityID], snap)
	return snap, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *Store) ListSnapshots(_ context.Context, entityID string, limit int) ([]watch.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[entityID]
	out := make([]watch.Snapshot, 0, min(limit, len(snaps)))
	for i := len(snaps) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, snaps[i])
	}
	return out, nil
}

// SaveChange appends a change record, assigning its ID.
func (s *Store) SaveChange(_ context.Context, ch watch.Change) (watch.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[ch.EntityID]; !ok {
		return watch.Change{}, watch.ErrEntityNotFound
	}
	id, err := s.ids.NewID()
	if err != nil {
		return watch.Change{}, fmt.Errorf("generate change id: %w", err)
	}

	ch.ID = id
	ch.KeyPoints = slices.Clone(ch.KeyPoints)
	if ch.DetectedAt.IsZero() {
		ch.DetectedAt = s.clock.Now()
	}
	s.changes[ch.EntityID] = append(s.changes[ch.EntityID], ch)
	return cloneChange(ch), nil
}

// ListChanges returns up to limit changes, newest first.
func (s *Store) ListChanges(_ context.Context, entityID string, limit int) ([]watch.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	changes := s.changes[entityID]
	out := make([]watch.Change, 0, min(limit, len(changes)))
	for i := len(changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneChange(changes[i]))
	}
	return out, nil
}

// UpdateEntityStatus records a check outcome on the entity.
func (s *Store) UpdateEntityStatus(_ context.Context, entityID string, status watch.EntityStatus, lastError string, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entityID]
	if !ok {
		return watch.ErrEntityNotFound
	}
	e.Status = status
	e.LastError = lastError
	e.LastCheckedAt = &checkedAt
	e.UpdatedAt = s.clock.Now()
	s.entities[entityID] = e
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func cloneEntity(e watch.Entity) watch.Entity {
	e.Labels = slices.Clone(e.Labels)
	if e.LastCheckedAt != nil {
		t := *e.LastCheckedAt
		e.LastCheckedAt = &t
	}
	return e
}

func cloneChange(ch watch.Change) watch.Change {
	ch.KeyPoints = slices.Clone(ch.KeyPoints)
	return ch
}
