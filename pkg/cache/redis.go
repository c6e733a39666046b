package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// RedisStore is a Store backed by Redis (single node or cluster)
type RedisStore struct {
	config        *Config
	client        redis.UniversalClient
	clusterClient *redis.ClusterClient
	metrics       *Metrics
}

// NewRedisStore creates a Redis backed store from configuration
func NewRedisStore(config *Config) (*RedisStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	s := &RedisStore{
		config:  config,
		metrics: NewMetrics(),
	}
	s.initializeClient()
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, config *Config) *RedisStore {
	if config == nil {
		config = DefaultConfig()
	}
	s := &RedisStore{
		config:  config,
		client:  client,
		metrics: NewMetrics(),
	}
	if cc, ok := client.(*redis.ClusterClient); ok {
		s.clusterClient = cc
	}
	return s
}

// initializeClient sets up the Redis client based on configuration
func (s *RedisStore) initializeClient() {
	rc := s.config.Redis

	if s.config.IsClusterMode() {
		s.clusterClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           rc.Cluster.Addresses,
			Username:        rc.Cluster.Username,
			Password:        rc.Cluster.Password,
			PoolSize:        rc.PoolSize,
			MinIdleConns:    rc.MinIdleConns,
			ConnMaxLifetime: rc.MaxConnAge,
			PoolTimeout:     rc.PoolTimeout,
			ConnMaxIdleTime: rc.IdleTimeout,
			ReadTimeout:     rc.ReadTimeout,
			WriteTimeout:    rc.WriteTimeout,
			DialTimeout:     rc.DialTimeout,
		})
		s.client = s.clusterClient
		return
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:            s.config.GetAddr(),
		Password:        rc.Password,
		DB:              rc.Database,
		PoolSize:        rc.PoolSize,
		MinIdleConns:    rc.MinIdleConns,
		ConnMaxLifetime: rc.MaxConnAge,
		PoolTimeout:     rc.PoolTimeout,
		ConnMaxIdleTime: rc.IdleTimeout,
		ReadTimeout:     rc.ReadTimeout,
		WriteTimeout:    rc.WriteTimeout,
		DialTimeout:     rc.DialTimeout,
	})
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ping tests the Redis connection
// Returns ErrClientNotInitialized if client is not initialized
// Returns ErrConnectionFailed if ping fails
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrClientNotInitialized
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Get retrieves a value from cache
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil {
		return nil, ErrClientNotInitialized
	}

	start := time.Now()
	data, err := s.client.Get(ctx, key).Bytes()
	s.metrics.RecordGet(time.Since(start))

	if errors.Is(err, redis.Nil) {
		s.metrics.RecordCacheMiss()
		return nil, ErrKeyNotFound
	}
	if err != nil {
		s.metrics.RecordCacheError()
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	s.metrics.RecordCacheHit()
	return data, nil
}

// Set stores a value with ttl, falling back to the configured default TTL
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return ErrClientNotInitialized
	}
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	start := time.Now()
	err := s.client.Set(ctx, key, value, ttl).Err()
	s.metrics.RecordSet(time.Since(start))
	if err != nil {
		s.metrics.RecordCacheError()
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Clear removes keys starting with prefix using SCAN instead of KEYS.
// SCAN is non-blocking, unlike KEYS which blocks the Redis server.
func (s *RedisStore) Clear(ctx context.Context, prefix string) error {
	if s.client == nil {
		return ErrClientNotInitialized
	}

	start := time.Now()
	defer func() { s.metrics.RecordClear(time.Since(start)) }()

	pattern := escapePattern(prefix) + "*"

	// Keys are spread over shards, so each master is scanned separately
	if s.clusterClient != nil {
		return s.clusterClient.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return s.scanDelete(ctx, node, pattern)
		})
	}
	return s.scanDelete(ctx, s.client, pattern)
}

// scanDelete collects every key matching pattern, then deletes them in
// batches. Deleting while scanning can move keys behind the cursor.
func (s *RedisStore) scanDelete(ctx context.Context, client redis.Cmdable, pattern string) error {
	seen := make(map[string]struct{})
	var keys []string
	var cursor uint64
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys with pattern %s: %w", pattern, err)
		}
		for _, key := range batch {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	for start := 0; start < len(keys); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		s.metrics.RecordInvalidation(end - start)
	}
	return nil
}

// Metrics returns current cache performance metrics
func (s *RedisStore) Metrics() *Metrics {
	return s.metrics
}

// escapePattern escapes glob metacharacters so the prefix matches literally
func escapePattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
