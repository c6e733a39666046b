package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Key constants for consistent key generation across stores
const keySeparator = ":"

// Store is a byte-oriented TTL cache shared by repositories.
// Get returns ErrKeyNotFound for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes every key starting with prefix
	Clear(ctx context.Context, prefix string) error
}

// NewStore builds the store selected by cfg.Backend.
// A disabled cache yields ErrCacheDisabled.
func NewStore(cfg *Config) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrCacheDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	switch cfg.Backend {
	case BackendRedis:
		return NewRedisStore(cfg)
	default:
		return NewMemoryStore(cfg.Capacity, WithDefaultTTL(cfg.DefaultTTL))
	}
}

// Namespace scopes keys of one owner (typically a model table) inside a shared store.
// User keys are hashed so arbitrary strings map onto fixed-size Redis-safe keys.
type Namespace struct {
	store  Store
	prefix string
}

// NewNamespace creates a namespace whose keys start with the joined parts
func NewNamespace(store Store, parts ...string) *Namespace {
	return &Namespace{
		store:  store,
		prefix: strings.Join(parts, keySeparator) + keySeparator,
	}
}

// Prefix returns the namespace key prefix including the trailing separator
func (n *Namespace) Prefix() string {
	return n.prefix
}

// Key maps a caller key onto the namespaced store key
func (n *Namespace) Key(key string) string {
	return n.prefix + fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// Get decodes the value stored under key into dest
func (n *Namespace) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := n.store.Get(ctx, n.Key(key))
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

// Set encodes value and stores it under key for ttl
func (n *Namespace) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return n.store.Set(ctx, n.Key(key), data, ttl)
}

// Clear removes every key of the namespace
func (n *Namespace) Clear(ctx context.Context) error {
	return n.store.Clear(ctx, n.prefix)
}
