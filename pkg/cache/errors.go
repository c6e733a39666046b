package cache

import "errors"

// Sentinel errors for cache operations
var (
	// ErrCacheDisabled is returned when a store is requested for a disabled cache
	ErrCacheDisabled = errors.New("cache is disabled")

	// ErrClientNotInitialized is returned when the Redis client is nil
	ErrClientNotInitialized = errors.New("redis client not initialized")

	// ErrKeyNotFound is returned when a key is absent or expired (not an error condition)
	ErrKeyNotFound = errors.New("cache key not found")

	// ErrConnectionFailed is returned when Redis connection cannot be established
	ErrConnectionFailed = errors.New("redis connection failed")

	// ErrInvalidKey is returned for empty keys
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrSerializationFailed is returned when encoding or decoding a cached value fails
	ErrSerializationFailed = errors.New("cache serialization failed")
)

// IsCacheDisabled checks if an error is ErrCacheDisabled
func IsCacheDisabled(err error) bool {
	return errors.Is(err, ErrCacheDisabled)
}

// IsKeyNotFound checks if an error is ErrKeyNotFound
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsConnectionFailed checks if an error is ErrConnectionFailed
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}
