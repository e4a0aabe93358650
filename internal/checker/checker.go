// Package checker runs the per-entity check pipeline and the batch fan-out.
package checker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/differ"
	"github.com/JakeFAU/competitor-watch/internal/metrics"
	"github.com/JakeFAU/competitor-watch/internal/significance"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// Config controls Checker behavior.
type Config struct {
	// SnapshotAlways persists a snapshot on every successful acquisition,
	// not only when the content changed.
	SnapshotAlways bool
	// ArchivePrefix prefixes raw-HTML archive object paths.
	ArchivePrefix string
	// Topic is the notifier topic for change events. Empty disables
	// notifications.
	Topic string
	// ImportantOnly restricts notifications to important changes.
	ImportantOnly bool
}

// Checker executes the check pipeline for one entity at a time: acquire,
// compare against the current snapshot, diff, classify and record. It is the
// sole writer of entity status, and it holds a per-entity lock for the whole
// pipeline so concurrent checks of the same entity are rejected with
// watch.ErrCheckInFlight rather than queued.
type Checker struct {
	store      watch.Store
	acquirer   watch.Acquirer
	classifier watch.Classifier
	archive    watch.ArchiveStore
	notifier   watch.Notifier
	clock      watch.Clock
	locks      *keyedMutex
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Checker. archive and notifier may be nil.
func New(
	store watch.Store,
	acquirer watch.Acquirer,
	classifier watch.Classifier,
	archive watch.ArchiveStore,
	notifier watch.Notifier,
	clock watch.Clock,
	cfg Config,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		store:      store,
		acquirer:   acquirer,
		classifier: classifier,
		archive:    archive,
		notifier:   notifier,
		clock:      clock,
		locks:      newKeyedMutex(),
		cfg:        cfg,
		logger:     logger,
	}
}

// CheckOne runs the full pipeline for a single entity. It returns
// watch.ErrCheckInFlight when another check for the same entity is active and
// watch.ErrEntityNotFound for unknown IDs. Acquisition failures are recorded
// on the entity (status error, last_error) and returned to the caller.
func (c *Checker) CheckOne(ctx context.Context, entityID string) (watch.CheckOutcome, error) {
	entity, err := c.store.GetEntity(ctx, entityID)
	if err != nil {
		return watch.CheckOutcome{}, err
	}

	if !c.locks.TryLock(entity.ID) {
		return watch.CheckOutcome{}, watch.ErrCheckInFlight
	}
	defer c.locks.Unlock(entity.ID)

	metrics.IncActiveChecks()
	defer metrics.DecActiveChecks()

	start := c.clock.Now()
	outcome, err := c.runPipeline(ctx, entity)
	if err != nil {
		metrics.ObserveCheck("error", c.clock.Now().Sub(start))
		return watch.CheckOutcome{}, err
	}
	metrics.ObserveCheck("success", c.clock.Now().Sub(start))
	return outcome, nil
}

func (c *Checker) runPipeline(ctx context.Context, entity watch.Entity) (watch.CheckOutcome, error) {
	acq, err := c.acquirer.Acquire(ctx, entity.URL)
	if err != nil {
		c.recordFailure(ctx, entity.ID, err)
		return watch.CheckOutcome{}, err
	}
	metrics.ObserveFetch(entity.URL, len(acq.RawHTML))
	c.archiveRawHTML(ctx, entity.ID, acq)

	previous, err := c.store.LoadCurrentSnapshot(ctx, entity.ID)
	if err != nil {
		c.recordFailure(ctx, entity.ID, err)
		return watch.CheckOutcome{}, fmt.Errorf("load current snapshot: %w", err)
	}

	// Status updates and snapshot writes survive caller cancellation once
	// acquisition has succeeded.
	persistCtx := context.WithoutCancel(ctx)

	if previous == nil {
		return c.recordFirstCheck(persistCtx, entity, acq)
	}
	if previous.Fingerprint == acq.Fingerprint {
		return c.recordUnchanged(persistCtx, entity, previous, acq)
	}
	return c.recordChange(persistCtx, entity, previous, acq)
}

func (c *Checker) recordFirstCheck(
	ctx context.Context,
	entity watch.Entity,
	acq watch.Acquisition,
) (watch.CheckOutcome, error) {
	snap, err := c.store.SaveSnapshot(ctx, entity.ID, acq.Text, acq.Fingerprint, acq.Length)
	if err != nil {
		c.recordFailure(ctx, entity.ID, err)
		return watch.CheckOutcome{}, fmt.Errorf("save snapshot: %w", err)
	}
	updated, err := c.recordSuccess(ctx, entity)
	if err != nil {
		return watch.CheckOutcome{}, err
	}

	c.logger.Info("first check recorded",
		zap.String("entity_id", entity.ID),
		zap.String("fingerprint", acq.Fingerprint),
	)
	return watch.CheckOutcome{
		Entity:       updated,
		Snapshot:     &snap,
		IsFirstCheck: true,
	}, nil
}

func (c *Checker) recordUnchanged(
	ctx context.Context,
	entity watch.Entity,
	previous *watch.Snapshot,
	acq watch.Acquisition,
) (watch.CheckOutcome, error) {
	current := previous
	if c.cfg.SnapshotAlways {
		snap, err := c.store.SaveSnapshot(ctx, entity.ID, acq.Text, acq.Fingerprint, acq.Length)
		if err != nil {
			c.recordFailure(ctx, entity.ID, err)
			return watch.CheckOutcome{}, fmt.Errorf("save snapshot: %w", err)
		}
		current = &snap
	}
	updated, err := c.recordSuccess(ctx, entity)
	if err != nil {
		return watch.CheckOutcome{}, err
	}

	c.logger.Debug("no change detected", zap.String("entity_id", entity.ID))
	return watch.CheckOutcome{
		Entity:   updated,
		Snapshot: current,
	}, nil
}

func (c *Checker) recordChange(
	ctx context.Context,
	entity watch.Entity,
	previous *watch.Snapshot,
	acq watch.Acquisition,
) (watch.CheckOutcome, error) {
	diff := differ.Diff(previous.Content, acq.Text)

	snap, err := c.store.SaveSnapshot(ctx, entity.ID, acq.Text, acq.Fingerprint, acq.Length)
	if err != nil {
		c.recordFailure(ctx, entity.ID, err)
		return watch.CheckOutcome{}, fmt.Errorf("save snapshot: %w", err)
	}

	judgment := c.classifier.Classify(ctx, entity.Name, entity.Category, diff.Rendered)
	keyPoints := judgment.KeyPoints
	if len(keyPoints) == 0 {
		keyPoints = significance.Extract(diff.Rendered)
	}

	change, err := c.store.SaveChange(ctx, watch.Change{
		EntityID:           entity.ID,
		PreviousSnapshotID: previous.ID,
		CurrentSnapshotID:  snap.ID,
		Diff:               diff.Rendered,
		Summary:            judgment.Summary,
		KeyPoints:          keyPoints,
		Severity:           judgment.Severity,
		IsImportant:        judgment.IsImportant,
		DetectedAt:         c.clock.Now(),
	})
	if err != nil {
		c.recordFailure(ctx, entity.ID, err)
		return watch.CheckOutcome{}, fmt.Errorf("save change: %w", err)
	}
	metrics.ObserveChange(string(change.Severity))

	updated, err := c.recordSuccess(ctx, entity)
	if err != nil {
		return watch.CheckOutcome{}, err
	}
	c.notifyChange(ctx, updated, change)

	c.logger.Info("change detected",
		zap.String("entity_id", entity.ID),
		zap.String("severity", string(change.Severity)),
		zap.Bool("important", change.IsImportant),
		zap.Int("additions", diff.Additions),
		zap.Int("deletions", diff.Deletions),
	)
	return watch.CheckOutcome{
		Entity:     updated,
		Snapshot:   &snap,
		Change:     &change,
		HasChanges: true,
	}, nil
}

// recordSuccess marks the entity healthy and returns its refreshed state.
func (c *Checker) recordSuccess(ctx context.Context, entity watch.Entity) (watch.Entity, error) {
	now := c.clock.Now()
	if err := c.store.UpdateEntityStatus(ctx, entity.ID, watch.StatusSuccess, "", now); err != nil {
		return watch.Entity{}, fmt.Errorf("update entity status: %w", err)
	}
	updated, err := c.store.GetEntity(ctx, entity.ID)
	if err != nil {
		return watch.Entity{}, err
	}
	return updated, nil
}

// recordFailure marks the entity errored. The write uses a detached context
// so a canceled check still leaves an accurate status behind.
func (c *Checker) recordFailure(ctx context.Context, entityID string, cause error) {
	detached := context.WithoutCancel(ctx)
	if err := c.store.UpdateEntityStatus(detached, entityID, watch.StatusError, cause.Error(), c.clock.Now()); err != nil {
		c.logger.Error("record check failure",
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// archiveRawHTML stores the fetched document best-effort; archive failures
// never fail the check.
func (c *Checker) archiveRawHTML(ctx context.Context, entityID string, acq watch.Acquisition) {
	if c.archive == nil || len(acq.RawHTML) == 0 {
		return
	}
	path := c.buildArchivePath(entityID, acq.Fingerprint)
	uri, err := c.archive.PutObject(ctx, path, "text/html; charset=utf-8", acq.RawHTML)
	if err != nil {
		c.logger.Warn("archive raw html failed",
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("raw html archived", zap.String("uri", uri))
}

func (c *Checker) buildArchivePath(entityID, fingerprint string) string {
	prefix := strings.Trim(c.cfg.ArchivePrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", entityID, fingerprint)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, entityID, fingerprint)
}

// notifyChange publishes a change event best-effort.
func (c *Checker) notifyChange(ctx context.Context, entity watch.Entity, change watch.Change) {
	if c.notifier == nil || c.cfg.Topic == "" {
		return
	}
	if c.cfg.ImportantOnly && !change.IsImportant {
		return
	}
	payload := map[string]any{
		"entity_id":    entity.ID,
		"entity_name":  entity.Name,
		"url":          entity.URL,
		"change_id":    change.ID,
		"severity":     string(change.Severity),
		"is_important": change.IsImportant,
		"summary":      change.Summary,
		"detected_at":  change.DetectedAt,
	}
	if _, err := c.notifier.Publish(ctx, c.cfg.Topic, payload); err != nil {
		c.logger.Warn("publish change event failed",
			zap.String("entity_id", entity.ID),
			zap.String("change_id", change.ID),
			zap.Error(err),
		)
	}
}
