// Package repokit provides a generic GORM repository with localized
// validation, soft-delete visibility, batch inserts and an optional TTL cache.
package repokit

import (
	"gorm.io/gorm"

	"github.com/ammar0144/repokit/pkg/cache"
	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/repository"
)

// Config represents database configuration
type Config = db.Config

// CacheConfig represents cache configuration
type CacheConfig = cache.Config

// Entity interface that all repository entities must implement
type Entity = repository.Entity

// Options configures a single repository call
type Options = repository.Options

// Repository provides the generic repository interface
type Repository[T Entity] interface {
	repository.Repository[T]
}

// NewManager creates a new database manager
func NewManager(config *Config) (*db.Manager, error) {
	return db.NewManager(config)
}

// NewRepository creates a repository over the manager's connection.
// Pass repository.WithCache to enable caching.
func NewRepository[T Entity](manager *db.Manager, opts ...repository.Option) (Repository[T], error) {
	var conn *gorm.DB
	if manager != nil {
		conn = manager.DB()
	}
	repo, err := repository.NewGenericRepository[T](conn, append([]repository.Option{repository.WithDatabase(manager)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// NewMemoryCache creates an in-process cache holding at most capacity entries
func NewMemoryCache(capacity int) (*cache.MemoryStore, error) {
	return cache.NewMemoryStore(capacity)
}

// NewRedisCache creates a Redis backed cache
func NewRedisCache(config *CacheConfig) (*cache.RedisStore, error) {
	return cache.NewRedisStore(config)
}
