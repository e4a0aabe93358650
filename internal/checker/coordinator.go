package checker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// DefaultConcurrency bounds the batch fan-out when no limit is configured.
const DefaultConcurrency = 4

// Coordinator fans a batch check out over a bounded worker pool. Entities
// whose check is already in flight are reported as failures with
// watch.ErrCheckInFlight, never queued behind the active check.
type Coordinator struct {
	checker     *Checker
	store       watch.Store
	concurrency int
	logger      *zap.Logger
}

// NewCoordinator creates a Coordinator. A non-positive concurrency falls back
// to DefaultConcurrency.
func NewCoordinator(checker *Checker, store watch.Store, concurrency int, logger *zap.Logger) *Coordinator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		checker:     checker,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// CheckAll checks every tracked entity. Per-entity failures are isolated:
// one entity failing never stops the rest of the batch.
func (c *Coordinator) CheckAll(ctx context.Context) (watch.BatchResult, error) {
	entities, err := c.store.ListEntities(ctx)
	if err != nil {
		return watch.BatchResult{}, err
	}
	return c.CheckMany(ctx, entities), nil
}

// CheckMany checks the given entities with at most the configured number of
// checks running at once. Results keep the input order.
func (c *Coordinator) CheckMany(ctx context.Context, entities []watch.Entity) watch.BatchResult {
	results := make([]watch.EntityResult, len(entities))

	var wg sync.WaitGroup
	slots := make(chan struct{}, c.concurrency)
	for i, entity := range entities {
		wg.Add(1)
		go func(i int, entity watch.Entity) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = c.checkEntity(ctx, entity)
		}(i, entity)
	}
	wg.Wait()

	batch := watch.BatchResult{
		Total:   len(entities),
		Results: results,
	}
	for _, r := range results {
		if r.Error == "" {
			batch.Success++
		} else {
			batch.Failures++
		}
	}

	c.logger.Info("batch check finished",
		zap.Int("total", batch.Total),
		zap.Int("success", batch.Success),
		zap.Int("failures", batch.Failures),
	)
	return batch
}

func (c *Coordinator) checkEntity(ctx context.Context, entity watch.Entity) watch.EntityResult {
	result := watch.EntityResult{
		EntityID:   entity.ID,
		EntityName: entity.Name,
	}

	outcome, err := c.checker.CheckOne(ctx, entity.ID)
	if err != nil {
		result.Error = err.Error()
		if !errors.Is(err, watch.ErrCheckInFlight) {
			c.logger.Warn("entity check failed",
				zap.String("entity_id", entity.ID),
				zap.Error(err),
			)
		}
		return result
	}
	result.Outcome = &outcome
	return result
}
