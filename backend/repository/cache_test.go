package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"career-roadmap/backend/metrics"
	"career-roadmap/backend/models"
	"career-roadmap/backend/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	finds int
}

func (s *countingStore) FindByID(ctx context.Context, id string) (*models.RoadmapRecord, error) {
	s.finds++
	return s.Store.FindByID(ctx, id)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run cache tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCachedStoreReadThroughAndInvalidate(t *testing.T) {
	rdb := newRedis(t)
	inner := &countingStore{Store: NewRoadmapRepository(newSQLiteDB(t))}
	m := metrics.NewCollector("cache_test")
	store := NewCachedStore(inner, rdb, time.Minute, utils.NewNopLogger(), m)
	ctx := context.Background()

	rec, err := store.Create(ctx, sampleProfile(), sampleStages(4, "v1"))
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Del(ctx, cacheKey(rec.ID)) })

	first, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	second, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.finds, "second read is served from redis")
	assert.Equal(t, first.Stages, second.Stages)

	_, err = store.AppendProgress(ctx, rec.ID, models.ProgressLogEntry{StageIndex: 0, CompletionRate: 1, Date: "2024-01-01"})
	require.NoError(t, err)

	third, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.finds, "a write evicts the cached copy")
	assert.Len(t, third.ProgressLog, 1)

	require.NoError(t, store.DeleteByID(ctx, rec.ID))
	_, err = store.FindByID(ctx, rec.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestCachedStoreFallsThroughWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewCachedStore(NewRoadmapRepository(newSQLiteDB(t)), rdb, time.Minute, utils.NewNopLogger(), nil)
	ctx := context.Background()

	rec, err := store.Create(ctx, sampleProfile(), sampleStages(2, "v1"))
	require.NoError(t, err)

	found, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)

	_, err = store.ReplaceStages(ctx, rec.ID, sampleStages(2, "v2"))
	require.NoError(t, err)
}

// writeDuringRead performs a write after the inner read and before the result
// reaches the cache, the interleaving of a slow load racing an update.
type writeDuringRead struct {
	Store
	during func()
}

func (s *writeDuringRead) FindByID(ctx context.Context, id string) (*models.RoadmapRecord, error) {
	rec, err := s.Store.FindByID(ctx, id)
	if s.during != nil {
		during := s.during
		s.during = nil
		during()
	}
	return rec, err
}

func TestCachedStoreSkipsFillAfterConcurrentWrite(t *testing.T) {
	rdb := newRedis(t)
	inner := &writeDuringRead{Store: NewRoadmapRepository(newSQLiteDB(t))}
	store := NewCachedStore(inner, rdb, time.Minute, utils.NewNopLogger(), nil)
	ctx := context.Background()

	rec, err := store.Create(ctx, sampleProfile(), sampleStages(4, "v1"))
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Del(ctx, cacheKey(rec.ID)) })

	inner.during = func() {
		_, err := store.ReplaceStages(ctx, rec.ID, sampleStages(4, "v2"))
		require.NoError(t, err)
	}
	stale, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1 week 1", stale.Stages[0].Title, "the racing read saw the old stages")

	n, err := rdb.Exists(ctx, cacheKey(rec.ID)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "the old record must not be cached")

	fresh, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2 week 1", fresh.Stages[0].Title)
}
