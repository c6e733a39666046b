package repokit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/repository"
)

type note struct {
	ID   uint
	Body string
}

func (note) TableName() string { return "notes" }

func (n note) GetPrimaryKeyValue() interface{} { return n.ID }

func TestNewRepository(t *testing.T) {
	missing, err := NewRepository[note](nil)
	assert.Error(t, err)
	assert.Nil(t, missing)

	manager, err := NewManager(&Config{
		Driver:   db.DriverSQLite,
		Database: filepath.Join(t.TempDir(), "notes.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	ctx := context.Background()
	require.NoError(t, manager.Migrate(ctx, &note{}))

	store, err := NewMemoryCache(10)
	require.NoError(t, err)

	notes, err := NewRepository[note](manager, repository.WithCache(store))
	require.NoError(t, err)

	require.NoError(t, notes.Create(ctx, &note{Body: "hello"}, Options{}))
	found, err := notes.FindBy(ctx, "body", "hello", Options{Cache: &repository.CacheOptions{Key: "hello"}})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, store.Len())

	_, err = NewRedisCache(&CacheConfig{Enabled: true, Backend: "redis", DefaultTTL: time.Hour})
	assert.Error(t, err)
}
