// Package watch defines core types shared across subsystems.
package watch

import (
	"time"
)

// EntityStatus represents the health of a tracked entity after its most
// recent check attempt.
type EntityStatus string

// Entity status values persisted in the store.
const (
	StatusPending EntityStatus = "pending"
	StatusSuccess EntityStatus = "success"
	StatusError   EntityStatus = "error"
)

// EntityCategory classifies what kind of page an entity tracks.
type EntityCategory string

// Supported entity categories.
const (
	CategoryPricing   EntityCategory = "pricing"
	CategoryDocs      EntityCategory = "docs"
	CategoryChangelog EntityCategory = "changelog"
	CategoryOther     EntityCategory = "other"
)

// ValidCategory reports whether c is one of the supported categories.
func ValidCategory(c EntityCategory) bool {
	switch c {
	case CategoryPricing, CategoryDocs, CategoryChangelog, CategoryOther:
		return true
	default:
		return false
	}
}

// Entity is a tracked page. Its mutable fields (Status, LastError,
// LastCheckedAt) are written only by the checker after a check attempt.
type Entity struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	URL           string         `json:"url"`
	Category      EntityCategory `json:"category"`
	Labels        []string       `json:"labels,omitempty"`
	Status        EntityStatus   `json:"status"`
	LastError     string         `json:"last_error,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Snapshot is one immutable captured observation of an entity's canonical
// text. Snapshots are append-only and ordered by CapturedAt per entity.
type Snapshot struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
	Length      int       `json:"length"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Severity grades how consequential a detected change is.
type Severity string

// Severity values attached to change records.
const (
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityCosmetic Severity = "cosmetic"
)

// ValidSeverity reports whether s is one of the supported severities.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityMajor, SeverityMinor, SeverityCosmetic:
		return true
	default:
		return false
	}
}

// Change records the diff and classification between two consecutive
// snapshots of the same entity. Created only when the snapshots'
// fingerprints differ; immutable once created.
type Change struct {
	ID                 string    `json:"id"`
	EntityID           string    `json:"entity_id"`
	PreviousSnapshotID string    `json:"previous_snapshot_id"`
	CurrentSnapshotID  string    `json:"current_snapshot_id"`
	Diff               string    `json:"diff"`
	Summary            string    `json:"summary,omitempty"`
	KeyPoints          []string  `json:"key_points,omitempty"`
	Severity           Severity  `json:"severity"`
	IsImportant        bool      `json:"is_important"`
	DetectedAt         time.Time `json:"detected_at"`
}

// Acquisition is the result of fetching and normalizing a page.
type Acquisition struct {
	Text         string
	Fingerprint  string
	Length       int
	RawHTML      []byte
	StatusCode   int
	UsedHeadless bool
	Duration     time.Duration
}

// DiffResult is a rendered line-level diff with counts.
type DiffResult struct {
	Rendered   string `json:"rendered"`
	Additions  int    `json:"additions"`
	Deletions  int    `json:"deletions"`
	HasChanges bool   `json:"has_changes"`
}

// Judgment is the structured classification of a diff.
type Judgment struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	Severity    Severity `json:"severity"`
	IsImportant bool     `json:"is_important"`
}

// CheckOutcome is returned to callers of a single-entity check.
type CheckOutcome struct {
	Entity       Entity    `json:"entity"`
	Snapshot     *Snapshot `json:"snapshot,omitempty"`
	Change       *Change   `json:"change,omitempty"`
	HasChanges   bool      `json:"has_changes"`
	IsFirstCheck bool      `json:"is_first_check"`
}

// EntityResult is the per-entity element of a batch check.
type EntityResult struct {
	EntityID   string        `json:"entity_id"`
	EntityName string        `json:"entity_name"`
	Outcome    *CheckOutcome `json:"outcome,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// BatchResult aggregates a fan-out run over many entities.
type BatchResult struct {
	Total    int            `json:"total"`
	Success  int            `json:"success_count"`
	Failures int            `json:"failure_count"`
	Results  []EntityResult `json:"results"`
}
