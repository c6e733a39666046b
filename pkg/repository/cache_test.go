package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/repokit/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func renameDirectly(t *testing.T, repo *GenericRepository[member], id uint, name string) {
	t.Helper()
	require.NoError(t, repo.conn.Exec("UPDATE members SET full_name = ? WHERE id = ?", name, id).Error)
}

func TestFindByCacheExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store, err := cache.NewMemoryStore(100, cache.WithClock(clock.Now))
	require.NoError(t, err)

	repo, _ := newMemberRepo(t, WithCache(store))
	ctx := context.Background()
	seedMembers(t, repo, 1)

	opts := Options{Cache: &CacheOptions{Key: "member:1", TTL: time.Minute}}
	found, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Member 1", found.FullName)

	renameDirectly(t, repo, 1, "Renamed")

	clock.Advance(59 * time.Second)
	cached, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Member 1", cached.FullName)

	clock.Advance(time.Second)
	fresh, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.FullName)

	snap := store.Metrics().GetSnapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.Expirations)
}

func TestMutationsClearCache(t *testing.T) {
	store, err := cache.NewMemoryStore(100)
	require.NoError(t, err)

	repo, _ := newMemberRepo(t, WithCache(store))
	ctx := context.Background()
	seedMembers(t, repo, 2)

	opts := Options{Cache: &CacheOptions{Key: "member:1"}}
	_, err = repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	renameDirectly(t, repo, 1, "Renamed")

	// Any write on the model drops the whole namespace
	_, err = repo.Update(ctx, "id", 2, Attributes{"age": 50}, Options{})
	require.NoError(t, err)
	assert.Zero(t, store.Len())

	found, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.FullName)

	// Locked reads never touch the cache
	renameDirectly(t, repo, 1, "Locked")
	locked, err := repo.FindAndLock(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Locked", locked.FullName)

	require.NoError(t, repo.ClearCache(ctx))
	assert.Zero(t, store.Len())
}

func TestBulkMutationsClearCache(t *testing.T) {
	store, err := cache.NewMemoryStore(100)
	require.NoError(t, err)

	repo, _ := newMemberRepo(t, WithCache(store))
	ctx := context.Background()
	seedMembers(t, repo, 3)

	opts := Options{Cache: &CacheOptions{Key: "member:1"}}
	_, err = repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	affected, err := repo.UpdateMany(ctx, Attributes{"id": 3}, Attributes{"age": 70}, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Zero(t, store.Len())

	_, err = repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	deleted, err := repo.Destroy(ctx, "id", 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Zero(t, store.Len())
}

func TestCacheNamespacesAreIsolated(t *testing.T) {
	store, err := cache.NewMemoryStore(100)
	require.NoError(t, err)

	members, m := newMemberRepo(t, WithCache(store))
	tags, err := NewGenericRepository[tag](m.DB(), WithCache(store), WithCachePrefix("app"))
	require.NoError(t, err)
	ctx := context.Background()

	seedMembers(t, members, 1)
	require.NoError(t, tags.Create(ctx, &tag{Name: "go"}, Options{}))

	_, err = members.FindBy(ctx, "id", 1, Options{Cache: &CacheOptions{Key: "k"}})
	require.NoError(t, err)
	_, err = tags.FindBy(ctx, "id", 1, Options{Cache: &CacheOptions{Key: "k"}})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	require.NoError(t, tags.Create(ctx, &tag{Name: "sql"}, Options{}))
	assert.Equal(t, 1, store.Len())
}

func TestFindByWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisStoreWithClient(client, cache.DefaultConfig())

	repo, _ := newMemberRepo(t, WithCache(store))
	ctx := context.Background()
	seedMembers(t, repo, 1)

	opts := Options{Cache: &CacheOptions{Key: "member:1", TTL: 30 * time.Second}}
	_, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "repokit:members:", keys[0][:len("repokit:members:")])
	assert.Equal(t, 30*time.Second, mr.TTL(keys[0]))

	renameDirectly(t, repo, 1, "Renamed")
	cached, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Member 1", cached.FullName)

	mr.FastForward(31 * time.Second)
	fresh, err := repo.FindBy(ctx, "id", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.FullName)

	_, err = repo.SoftDelete(ctx, "id", 1, Options{})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}
