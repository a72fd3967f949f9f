package redis

import (
	"context"
	"errors"
	"time"

	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/pkg/circuitbreaker"
	"github.com/smcen/registrar/pkg/logger"
)

// RecordCache is the storage a CachedStudentRepository reads through.
type RecordCache interface {
	Get(ctx context.Context, id string) (*student.Record, error)
	Set(ctx context.Context, rec *student.Record) error
	Delete(ctx context.Context, id string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// cachedRecord keeps the password hash, which the record's own JSON form
// leaves out.
type cachedRecord struct {
	*student.Record
	PasswordHash string `json:"passwordHash"`
}

// StudentCache stores academic records in Redis.
type StudentCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ RecordCache = (*StudentCache)(nil)

// NewStudentCache creates a new StudentCache. A non-positive ttl selects
// TTLStudentCache.
func NewStudentCache(cache *Cache, ttl time.Duration) *StudentCache {
	if ttl <= 0 {
		ttl = TTLStudentCache
	}
	return &StudentCache{cache: cache, ttl: ttl}
}

// Get returns the cached record or ErrCacheMiss.
func (s *StudentCache) Get(ctx context.Context, id string) (*student.Record, error) {
	var cr cachedRecord
	if err := s.cache.Get(ctx, StudentKey(id), &cr); err != nil {
		return nil, err
	}
	if cr.Record == nil {
		return nil, ErrCacheMiss
	}
	cr.Record.PasswordHash = cr.PasswordHash
	return cr.Record, nil
}

// Set caches rec.
func (s *StudentCache) Set(ctx context.Context, rec *student.Record) error {
	if rec == nil {
		return nil
	}
	return s.cache.Set(ctx, StudentKey(rec.ID), cachedRecord{Record: rec, PasswordHash: rec.PasswordHash}, s.ttl)
}

// Delete drops the cached record.
func (s *StudentCache) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, StudentKey(id))
}

// InvalidateAll clears every cached record.
func (s *StudentCache) InvalidateAll(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, PrefixStudent+"*")
}

// GuardedCache skips Redis entirely while its breaker is open. Misses do
// not count as failures.
type GuardedCache struct {
	next    RecordCache
	breaker *circuitbreaker.CircuitBreaker
}

var _ RecordCache = (*GuardedCache)(nil)

// NewGuardedCache wraps next with cb.
func NewGuardedCache(next RecordCache, cb *circuitbreaker.CircuitBreaker) *GuardedCache {
	return &GuardedCache{next: next, breaker: cb}
}

// IsCacheFailure is the failure filter for breakers guarding a RecordCache.
func IsCacheFailure(err error) bool {
	return !errors.Is(err, ErrCacheMiss)
}

func (g *GuardedCache) Get(ctx context.Context, id string) (*student.Record, error) {
	var rec *student.Record
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		rec, err = g.next.Get(ctx, id)
		return err
	})
	if circuitbreaker.IsRejected(err) {
		return nil, ErrCacheMiss
	}
	return rec, err
}

func (g *GuardedCache) Set(ctx context.Context, rec *student.Record) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error { return g.next.Set(ctx, rec) })
	if circuitbreaker.IsRejected(err) {
		return nil
	}
	return err
}

// Delete always reaches Redis so a stale copy cannot outlive an open
// breaker.
func (g *GuardedCache) Delete(ctx context.Context, id string) error {
	return g.next.Delete(ctx, id)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHED REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CachedStudentRepository reads single records through a cache and drops
// the cached copy on every write. Cache failures are logged and the store
// is used directly, so Redis is never required for correctness.
type CachedStudentRepository struct {
	student.Repository
	cache RecordCache
	log   *logger.Logger
}

var _ student.Repository = (*CachedStudentRepository)(nil)

// NewCachedStudentRepository wraps repo.
func NewCachedStudentRepository(repo student.Repository, cache RecordCache, log *logger.Logger) *CachedStudentRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedStudentRepository{
		Repository: repo,
		cache:      cache,
		log:        log.With(logger.Component("student_cache")),
	}
}

// GetByID serves from the cache and fills it on a miss.
func (r *CachedStudentRepository) GetByID(ctx context.Context, id string) (*student.Record, error) {
	rec, err := r.cache.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.Warn("cache read failed", logger.StudentID(id), logger.Err(err))
	}

	rec, err = r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, rec); err != nil {
		r.log.Warn("cache fill failed", logger.StudentID(id), logger.Err(err))
	}
	return rec, nil
}

// Update writes through to the store and invalidates the cached copy.
func (r *CachedStudentRepository) Update(ctx context.Context, rec *student.Record) error {
	err := r.Repository.Update(ctx, rec)
	if delErr := r.cache.Delete(ctx, rec.ID); delErr != nil {
		r.log.Warn("cache invalidation failed", logger.StudentID(rec.ID), logger.Err(delErr))
	}
	return err
}
