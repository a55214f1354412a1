// Package sdk is the entry point for code that consumes the connector from
// inside the same process. Every call resolves the globally registered
// client and fails fast with ErrNotInitialized when none is registered.
// A registered client that is degraded answers with defaults instead.
package sdk

import (
	"context"
	"errors"
	"time"

	"github.com/xhhao/redisconnector/common/redis"
)

// ErrNotInitialized is returned when the connector has not been started
var ErrNotInitialized = errors.New("redis connector not initialized")

// Client returns the registered client or ErrNotInitialized
func Client() (*redis.Client, error) {
	c := redis.Global()
	if c == nil {
		return nil, ErrNotInitialized
	}
	return c, nil
}

func call[T any](fn func(c *redis.Client) T) (T, error) {
	c, err := Client()
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(c), nil
}

// IsAvailable reports whether the registered client can reach its store
func IsAvailable() (bool, error) {
	return call(func(c *redis.Client) bool { return c.IsAvailable() })
}

// Pool returns the live pool of the registered client, which may be nil
func Pool() (*redis.Pool, error) {
	return call(func(c *redis.Client) *redis.Pool { return c.Pool() })
}

// Set stores a string value through the registered client
func Set(ctx context.Context, key, value string) (string, error) {
	return call(func(c *redis.Client) string { return c.Set(ctx, key, value) })
}

// SetWithExpiry stores a string value that expires after ttl
func SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) (string, error) {
	return call(func(c *redis.Client) string { return c.SetWithExpiry(ctx, key, value, ttl) })
}

// Get returns the string value of key, "" when missing
func Get(ctx context.Context, key string) (string, error) {
	return call(func(c *redis.Client) string { return c.Get(ctx, key) })
}

// Delete removes key and returns the number of keys removed
func Delete(ctx context.Context, key string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.Delete(ctx, key) })
}

// Increment adds one to key, -1 when unavailable
func Increment(ctx context.Context, key string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.Increment(ctx, key) })
}

// IncrementBy adds n to key, -1 when unavailable
func IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.IncrementBy(ctx, key, n) })
}

// HashSet sets one hash field
func HashSet(ctx context.Context, key, field, value string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.HashSet(ctx, key, field, value) })
}

// HashGet returns one hash field
func HashGet(ctx context.Context, key, field string) (string, error) {
	return call(func(c *redis.Client) string { return c.HashGet(ctx, key, field) })
}

// HashGetAll returns every field of the hash at key
func HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	return call(func(c *redis.Client) map[string]string { return c.HashGetAll(ctx, key) })
}

// SetAdd adds members to the set at key
func SetAdd(ctx context.Context, key string, members ...string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.SetAdd(ctx, key, members...) })
}

// SetMembers returns every member of the set at key
func SetMembers(ctx context.Context, key string) ([]string, error) {
	return call(func(c *redis.Client) []string { return c.SetMembers(ctx, key) })
}

// SetIsMember reports whether member belongs to the set at key
func SetIsMember(ctx context.Context, key, member string) (bool, error) {
	return call(func(c *redis.Client) bool { return c.SetIsMember(ctx, key, member) })
}

// SortedSetAdd adds member with score to the sorted set at key
func SortedSetAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.SortedSetAdd(ctx, key, score, member) })
}

// SortedSetRangeDescending returns members between start and stop, highest score first
func SortedSetRangeDescending(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return call(func(c *redis.Client) []string { return c.SortedSetRangeDescending(ctx, key, start, stop) })
}

// SortedSetIncrementScore adds increment to member's score
func SortedSetIncrementScore(ctx context.Context, key string, increment float64, member string) (float64, error) {
	return call(func(c *redis.Client) float64 { return c.SortedSetIncrementScore(ctx, key, increment, member) })
}

// Exists reports whether key exists
func Exists(ctx context.Context, key string) (bool, error) {
	return call(func(c *redis.Client) bool { return c.Exists(ctx, key) })
}

// Expire sets a timeout on key
func Expire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.Expire(ctx, key, ttl) })
}

// TimeToLive returns seconds remaining, -1 without expiry, -2 when missing
func TimeToLive(ctx context.Context, key string) (int64, error) {
	return call(func(c *redis.Client) int64 { return c.TimeToLive(ctx, key) })
}
