package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"career-roadmap/backend/metrics"
	"career-roadmap/backend/models"
	"career-roadmap/backend/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "roadmap:"

// CachedStore keeps recently read roadmaps in Redis. The database stays the
// source of truth: every write deletes the cached copy, and any Redis failure
// falls through to the wrapped Store.
type CachedStore struct {
	Store
	rdb     redis.UniversalClient
	ttl     time.Duration
	log     *utils.Logger
	metrics *metrics.Collector
	group   singleflight.Group

	// writes counts invalidations. A load only fills the cache if no write
	// started or finished while it was reading.
	writes atomic.Uint64
}

func NewCachedStore(next Store, rdb redis.UniversalClient, ttl time.Duration, log *utils.Logger, m *metrics.Collector) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		Store:   next,
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With("component", "roadmap_cache"),
		metrics: m,
	}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (s *CachedStore) FindByID(ctx context.Context, id string) (*models.RoadmapRecord, error) {
	raw, err := s.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var rec models.RoadmapRecord
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			s.metrics.CacheResult(true)
			return &rec, nil
		}
		s.log.Warn("dropping undecodable cache entry", "roadmap_id", id)
		s.invalidate(ctx, id)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn("cache read failed", "roadmap_id", id, "error", err.Error())
	}
	s.metrics.CacheResult(false)

	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		seen := s.writes.Load()
		rec, err := s.Store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, rec, seen)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.RoadmapRecord), nil
}

func (s *CachedStore) AppendProgress(ctx context.Context, id string, entry models.ProgressLogEntry) (*models.RoadmapRecord, error) {
	s.invalidate(ctx, id)
	rec, err := s.Store.AppendProgress(ctx, id, entry)
	s.invalidate(ctx, id)
	return rec, err
}

func (s *CachedStore) ReplaceStages(ctx context.Context, id string, stages []models.RoadmapStage) (*models.RoadmapRecord, error) {
	s.invalidate(ctx, id)
	rec, err := s.Store.ReplaceStages(ctx, id, stages)
	s.invalidate(ctx, id)
	return rec, err
}

func (s *CachedStore) DeleteByID(ctx context.Context, id string) error {
	err := s.Store.DeleteByID(ctx, id)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.Store.Ping(ctx); err != nil {
		return err
	}
	return s.rdb.Ping(ctx).Err()
}

// fill stores rec unless a write happened since seen was read. A write that
// lands between the check and the SET is caught by the second check.
func (s *CachedStore) fill(ctx context.Context, rec *models.RoadmapRecord, seen uint64) {
	if s.writes.Load() != seen {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(rec.ID), raw, s.ttl).Err(); err != nil {
		s.log.Warn("cache write failed", "roadmap_id", rec.ID, "error", err.Error())
		return
	}
	if s.writes.Load() != seen {
		s.rdb.Del(ctx, cacheKey(rec.ID))
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	s.writes.Add(1)
	if err := s.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.log.Warn("cache invalidate failed", "roadmap_id", id, "error", err.Error())
	}
}
