package checker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/competitor-watch/internal/classifier"
	"github.com/JakeFAU/competitor-watch/internal/clock/system"
	"github.com/JakeFAU/competitor-watch/internal/id/uuid"
	"github.com/JakeFAU/competitor-watch/internal/store/memory"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

func seedEntities(t *testing.T, store *memory.Store, n int) []watch.Entity {
	t.Helper()

	entities := make([]watch.Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := store.CreateEntity(context.Background(), watch.Entity{
			Name: "Entity " + string(rune('A'+i)),
			URL:  "https://entity-" + string(rune('a'+i)) + ".test",
		})
		require.NoError(t, err)
		entities = append(entities, e)
	}
	return entities
}

func TestCheckAll_AllSucceed(t *testing.T) {
	t.Parallel()

	store := memory.New(uuid.New(), system.New())
	seedEntities(t, store, 3)

	acq := acquireFunc(func(_ context.Context, url string) (watch.Acquisition, error) {
		return watch.Acquisition{Text: url, Fingerprint: url, Length: len(url)}, nil
	})
	chk := New(store, acq, classifier.NewFallback(), nil, nil, system.New(), Config{SnapshotAlways: true}, nil)
	coord := NewCoordinator(chk, store, 2, nil)

	batch, err := coord.CheckAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, batch.Total)
	require.Equal(t, 3, batch.Success)
	require.Zero(t, batch.Failures)
	require.Len(t, batch.Results, 3)
	for _, r := range batch.Results {
		require.NotNil(t, r.Outcome)
		require.True(t, r.Outcome.IsFirstCheck)
	}
}

func TestCheckMany_PartialFailureIsolated(t *testing.T) {
	t.Parallel()

	store := memory.New(uuid.New(), system.New())
	entities := seedEntities(t, store, 3)
	badURL := entities[1].URL

	acq := acquireFunc(func(_ context.Context, url string) (watch.Acquisition, error) {
		if url == badURL {
			return watch.Acquisition{}, &watch.AcquireError{Kind: watch.AcquireTimeout, URL: url}
		}
		return watch.Acquisition{Text: url, Fingerprint: url, Length: len(url)}, nil
	})
	chk := New(store, acq, classifier.NewFallback(), nil, nil, system.New(), Config{}, nil)
	coord := NewCoordinator(chk, store, 4, nil)

	batch := coord.CheckMany(context.Background(), entities)
	require.Equal(t, 3, batch.Total)
	require.Equal(t, 2, batch.Success)
	require.Equal(t, 1, batch.Failures)

	require.Empty(t, batch.Results[0].Error)
	require.Contains(t, batch.Results[1].Error, "timeout")
	require.Empty(t, batch.Results[2].Error)

	failed, err := store.GetEntity(context.Background(), entities[1].ID)
	require.NoError(t, err)
	require.Equal(t, watch.StatusError, failed.Status)
}

func TestCheckMany_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	store := memory.New(uuid.New(), system.New())
	entities := seedEntities(t, store, 8)

	var active, peak int64
	var mu sync.Mutex
	acq := acquireFunc(func(_ context.Context, url string) (watch.Acquisition, error) {
		n := atomic.AddInt64(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		defer atomic.AddInt64(&active, -1)
		return watch.Acquisition{Text: url, Fingerprint: url, Length: len(url)}, nil
	})
	chk := New(store, acq, classifier.NewFallback(), nil, nil, system.New(), Config{}, nil)
	coord := NewCoordinator(chk, store, 2, nil)

	batch := coord.CheckMany(context.Background(), entities)
	require.Equal(t, 8, batch.Success)

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, peak, int64(2))
}

func TestCheckMany_InFlightReported(t *testing.T) {
	t.Parallel()

	store := memory.New(uuid.New(), system.New())
	entities := seedEntities(t, store, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	acq := acquireFunc(func(_ context.Context, url string) (watch.Acquisition, error) {
		close(started)
		<-release
		return watch.Acquisition{Text: "x", Fingerprint: "fp", Length: 1}, nil
	})
	chk := New(store, acq, classifier.NewFallback(), nil, nil, system.New(), Config{}, nil)
	coord := NewCoordinator(chk, store, 1, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = chk.CheckOne(context.Background(), entities[0].ID)
	}()
	<-started

	batch := coord.CheckMany(context.Background(), entities)
	require.Equal(t, 1, batch.Failures)
	require.True(t, strings.Contains(batch.Results[0].Error, "in flight"))

	close(release)
	<-done
}
