package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/infrastructure/persistence/memory"
	"github.com/smcen/registrar/pkg/circuitbreaker"
)

// mapCache stores records the way StudentCache does, as cachedRecord JSON.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	failGet error
	failSet error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, id string) (*student.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, c.failGet
	}
	raw, ok := c.data[StudentKey(id)]
	if !ok {
		return nil, ErrCacheMiss
	}
	var cr cachedRecord
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, err
	}
	cr.Record.PasswordHash = cr.PasswordHash
	return cr.Record, nil
}

func (c *mapCache) Set(_ context.Context, rec *student.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet != nil {
		return c.failSet
	}
	raw, err := json.Marshal(cachedRecord{Record: rec, PasswordHash: rec.PasswordHash})
	if err != nil {
		return err
	}
	c.data[StudentKey(rec.ID)] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, StudentKey(id))
	return nil
}

func (c *mapCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[StudentKey(id)]
	return ok
}

func seedRecord(t *testing.T, repo student.Repository) *student.Record {
	t.Helper()
	rec := student.NewRecord(grading.CanonicalScale, grading.CanonicalCatalog, student.NewRecordParams{
		ID:                 "rec-1",
		RegistrationNumber: "SMCEN25001",
		Identity:           student.Identity{Name: "Asha Devi", Email: "asha@example.org"},
		PasswordHash:       "$2a$10$hash",
	})
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

func TestStudentKey(t *testing.T) {
	assert.Equal(t, "registrar:student:smcen-2025:smcen-2025:abc", StudentKey("abc"))
}

func TestCachedRecord_KeepsPasswordHash(t *testing.T) {
	rec := &student.Record{ID: "x", PasswordHash: "secret"}

	plain, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "secret")

	wrapped, err := json.Marshal(cachedRecord{Record: rec, PasswordHash: rec.PasswordHash})
	require.NoError(t, err)

	var back cachedRecord
	require.NoError(t, json.Unmarshal(wrapped, &back))
	assert.Equal(t, "x", back.Record.ID)
	assert.Equal(t, "secret", back.PasswordHash)
}

func TestCachedStudentRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStudentRepository()
	want := seedRecord(t, store)
	cache := newMapCache()
	repo := NewCachedStudentRepository(store, cache, nil)

	got, err := repo.GetByID(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.RegistrationNumber, got.RegistrationNumber)
	assert.True(t, cache.has(want.ID))

	cached, err := repo.GetByID(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", cached.PasswordHash)
	assert.Equal(t, want.Grades, cached.Grades)
	assert.Equal(t, 2, cache.gets)
}

func TestCachedStudentRepository_UpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStudentRepository()
	rec := seedRecord(t, store)
	cache := newMapCache()
	repo := NewCachedStudentRepository(store, cache, nil)

	_, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, cache.has(rec.ID))

	changed := rec.Clone()
	changed.Name = "Asha D."
	require.NoError(t, repo.Update(ctx, changed))
	assert.False(t, cache.has(rec.ID))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha D.", got.Name)
}

func TestCachedStudentRepository_CacheFailuresFallBack(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStudentRepository()
	rec := seedRecord(t, store)
	cache := newMapCache()
	cache.failGet = errors.New("connection refused")
	cache.failSet = errors.New("connection refused")
	repo := NewCachedStudentRepository(store, cache, nil)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestCachedStudentRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	repo := NewCachedStudentRepository(memory.NewStudentRepository(), cache, nil)

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
	assert.False(t, cache.has("missing"))
}

func TestGuardedCache_OpenBreakerSkipsRedis(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStudentRepository()
	rec := seedRecord(t, store)
	cache := newMapCache()
	cache.failGet = errors.New("connection refused")
	cache.failSet = errors.New("connection refused")

	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithIsFailure(IsCacheFailure))
	repo := NewCachedStudentRepository(store, NewGuardedCache(cache, cb), nil)

	_, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	for range 3 {
		got, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
	}
	assert.Equal(t, 1, cache.gets)
}

func TestGuardedCache_MissesDoNotTrip(t *testing.T) {
	ctx := context.Background()
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithIsFailure(IsCacheFailure))
	g := NewGuardedCache(newMapCache(), cb)

	for range 3 {
		_, err := g.Get(ctx, "nobody")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestEncodeValue(t *testing.T) {
	in := map[string]any{"id": "stu-1", "cumulativeGPA": 3.25}
	data, err := encodeValue(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, decodeValue(data, &out))
	assert.Equal(t, "stu-1", out["id"])
	assert.Equal(t, 3.25, out["cumulativeGPA"])

	assert.ErrorIs(t, decodeValue([]byte("{\"id\":1}"), &out), ErrCacheSerialization)
}
