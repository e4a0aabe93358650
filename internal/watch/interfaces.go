package watch

import (
	"context"
	"time"
)

// Store persists entities, snapshots and change records.
type Store interface {
	CreateEntity(ctx context.Context, e Entity) (Entity, error)
	GetEntity(ctx context.Context, id string) (Entity, error)
	GetEntityByURL(ctx context.Context, url string) (Entity, error)
	ListEntities(ctx context.Context) ([]Entity, error)
	UpdateEntity(ctx context.Context, e Entity) (Entity, error)
	DeleteEntity(ctx context.Context, id string) error
	CountEntities(ctx context.Context) (int, error)

	// LoadCurrentSnapshot returns the most recently captured snapshot for
	// the entity, or nil when none exists.
	LoadCurrentSnapshot(ctx context.Context, entityID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, entityID, content, fingerprint string, length int) (Snapshot, error)
	ListSnapshots(ctx context.Context, entityID string, limit int) ([]Snapshot, error)

	SaveChange(ctx context.Context, ch Change) (Change, error)
	ListChanges(ctx context.Context, entityID string, limit int) ([]Change, error)

	// UpdateEntityStatus records the outcome of a check attempt. An empty
	// lastError clears any previous error.
	UpdateEntityStatus(ctx context.Context, entityID string, status EntityStatus, lastError string, checkedAt time.Time) error

	Ping(ctx context.Context) error
	Close() error
}

// Acquirer retrieves a page and reduces it to canonical text plus a
// fingerprint.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (Acquisition, error)
}

// Fetcher fetches a URL and returns the raw body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	UseHeadless bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Classifier produces a structured judgment for a rendered diff.
type Classifier interface {
	Classify(ctx context.Context, entityName string, category EntityCategory, renderedDiff string) Judgment
}

// ArchiveStore writes raw fetched artifacts and returns a URI.
type ArchiveStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Notifier pushes change events to Pub/Sub (or similar).
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
