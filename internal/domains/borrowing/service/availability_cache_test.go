package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/borrowing/service"
)

// mapCache is a JSON round-tripping cache.Cache
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	getErr  error

	// beforeSet runs ahead of every Set, outside the lock
	beforeSet func(key string)
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++

	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.beforeSet != nil {
		c.beforeSet(key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }

// reports counts stored availability reports, version keys excluded
func (c *mapCache) reports() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if !strings.HasSuffix(k, ":version") {
			n++
		}
	}
	return n
}

func TestGetAvailability_CachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	f := newFixture(t, "2024-03-05", service.WithAvailabilityCache(cache, time.Minute))
	bookID := f.book(1)

	b := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusBorrowed)

	first, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, first.Available)
	assert.Equal(t, 1, cache.reports())

	// Served from the cache even though the store changed underneath
	b.Status = model.StatusReturned
	require.NoError(t, f.repo.Save(ctx, b))
	cached, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, cached.Available)

	// A committed write orphans the stored report
	other := f.seed(t, bookID, "2024-03-20", "2024-03-22", model.StatusBorrowed)
	_, err = f.svc.ReturnBorrowing(ctx, other.ID)
	require.NoError(t, err)

	fresh, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, fresh.Available)
	assert.Nil(t, fresh.NextAvailable)
}

func TestGetAvailability_WriteDuringReportIsNotMasked(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	f := newFixture(t, "2024-03-05", service.WithAvailabilityCache(cache, time.Minute))
	bookID := f.book(1)
	b := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusBorrowed)

	// The copy comes back after the report was built but before it is stored
	once := sync.Once{}
	cache.beforeSet = func(key string) {
		if strings.HasSuffix(key, ":version") {
			return
		}
		once.Do(func() {
			_, err := f.svc.ReturnBorrowing(ctx, b.ID)
			require.NoError(t, err)
		})
	}

	stale, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, stale.Available, "report built before the return")

	next, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, next.Available, "stale report must not be served after the return")
}

func TestCreateBorrowing_NeverReadsCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	f := newFixture(t, "2024-02-20", service.WithAvailabilityCache(cache, time.Minute))
	bookID := f.book(1)

	_, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	require.NoError(t, err)
	_, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	assertKind(t, model.KindUnavailable, err)

	assert.Zero(t, cache.gets)
}

func TestGetAvailability_CacheErrorFallsBack(t *testing.T) {
	cache := newMapCache()
	cache.getErr = errors.New("redis timeout")
	f := newFixture(t, "2024-03-05", service.WithAvailabilityCache(cache, time.Minute))
	bookID := f.book(2)

	report, err := f.svc.GetAvailability(context.Background(), bookID)
	require.NoError(t, err)
	assert.True(t, report.Available)
	assert.Equal(t, 2, report.TotalCopies)
}

func TestWithAvailabilityCache_ZeroTTLDisables(t *testing.T) {
	cache := newMapCache()
	f := newFixture(t, "2024-03-05", service.WithAvailabilityCache(cache, 0))
	bookID := f.book(1)

	_, err := f.svc.GetAvailability(context.Background(), bookID)
	require.NoError(t, err)
	assert.Zero(t, cache.gets)
	assert.Zero(t, cache.reports())
}
