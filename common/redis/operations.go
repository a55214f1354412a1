package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Set stores a string value. Returns "OK", or "" when unavailable.
func (c *Client) Set(ctx context.Context, key, value string) string {
	return execute(ctx, c, "SET", key, "", func(ctx context.Context, cmd redis.Cmdable) (string, error) {
		return cmd.Set(ctx, key, value, 0).Result()
	})
}

// SetWithExpiry stores a string value that expires after ttl. A non-positive
// ttl is rejected without I/O.
func (c *Client) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) string {
	if ttl <= 0 {
		c.logger.Warn("redis SETEX rejected, expiry must be positive", "key", key, "ttl", ttl)
		return ""
	}
	return execute(ctx, c, "SETEX", key, "", func(ctx context.Context, cmd redis.Cmdable) (string, error) {
		return cmd.Set(ctx, key, value, ttl).Result()
	})
}

// Get returns the string value of key, or "" when missing or unavailable
func (c *Client) Get(ctx context.Context, key string) string {
	return execute(ctx, c, "GET", key, "", func(ctx context.Context, cmd redis.Cmdable) (string, error) {
		val, err := cmd.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return val, err
	})
}

// Delete removes key and returns the number of keys removed
func (c *Client) Delete(ctx context.Context, key string) int64 {
	return execute(ctx, c, "DEL", key, int64(0), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		return cmd.Del(ctx, key).Result()
	})
}

// Increment adds one to key. Returns -1 when unavailable.
func (c *Client) Increment(ctx context.Context, key string) int64 {
	return execute(ctx, c, "INCR", key, int64(-1), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		return cmd.Incr(ctx, key).Result()
	})
}

// IncrementBy adds n to key. Returns -1 when unavailable.
func (c *Client) IncrementBy(ctx context.Context, key string, n int64) int64 {
	return execute(ctx, c, "INCRBY", key, int64(-1), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		return cmd.IncrBy(ctx, key, n).Result()
	})
}

// HashSet sets field in the hash at key. Returns 1 for a new field, 0 otherwise.
func (c *Client) HashSet(ctx context.Context, key, field, value string) int64 {
	return execute(ctx, c, "HSET", key, int64(0), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		return cmd.HSet(ctx, key, field, value).Result()
	})
}

// HashGet returns one hash field, or "" when missing or unavailable
func (c *Client) HashGet(ctx context.Context, key, field string) string {
	return execute(ctx, c, "HGET", key, "", func(ctx context.Context, cmd redis.Cmdable) (string, error) {
		val, err := cmd.HGet(ctx, key, field).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return val, err
	})
}

// HashGetAll returns every field of the hash at key
func (c *Client) HashGetAll(ctx context.Context, key string) map[string]string {
	return execute(ctx, c, "HGETALL", key, map[string]string{}, func(ctx context.Context, cmd redis.Cmdable) (map[string]string, error) {
		return cmd.HGetAll(ctx, key).Result()
	})
}

// SetAdd adds members to the set at key and returns how many were new
func (c *Client) SetAdd(ctx context.Context, key string, members ...string) int64 {
	return execute(ctx, c, "SADD", key, int64(0), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		args := make([]interface{}, len(members))
		for i, m := range members {
			args[i] = m
		}
		return cmd.SAdd(ctx, key, args...).Result()
	})
}

// SetMembers returns every member of the set at key
func (c *Client) SetMembers(ctx context.Context, key string) []string {
	return execute(ctx, c, "SMEMBERS", key, []string{}, func(ctx context.Context, cmd redis.Cmdable) ([]string, error) {
		return cmd.SMembers(ctx, key).Result()
	})
}

// SetIsMember reports whether member belongs to the set at key
func (c *Client) SetIsMember(ctx context.Context, key, member string) bool {
	return execute(ctx, c, "SISMEMBER", key, false, func(ctx context.Context, cmd redis.Cmdable) (bool, error) {
		return cmd.SIsMember(ctx, key, member).Result()
	})
}

// SortedSetAdd adds member with score and returns how many members were new
func (c *Client) SortedSetAdd(ctx context.Context, key string, score float64, member string) int64 {
	return execute(ctx, c, "ZADD", key, int64(0), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		return cmd.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Result()
	})
}

// SortedSetRangeDescending returns members between start and stop, highest score first
func (c *Client) SortedSetRangeDescending(ctx context.Context, key string, start, stop int64) []string {
	return execute(ctx, c, "ZREVRANGE", key, []string{}, func(ctx context.Context, cmd redis.Cmdable) ([]string, error) {
		return cmd.ZRevRange(ctx, key, start, stop).Result()
	})
}

// SortedSetIncrementScore adds increment to member's score and returns the new score
func (c *Client) SortedSetIncrementScore(ctx context.Context, key string, increment float64, member string) float64 {
	return execute(ctx, c, "ZINCRBY", key, float64(0), func(ctx context.Context, cmd redis.Cmdable) (float64, error) {
		return cmd.ZIncrBy(ctx, key, increment, member).Result()
	})
}

// Exists reports whether key exists
func (c *Client) Exists(ctx context.Context, key string) bool {
	return execute(ctx, c, "EXISTS", key, false, func(ctx context.Context, cmd redis.Cmdable) (bool, error) {
		n, err := cmd.Exists(ctx, key).Result()
		return n > 0, err
	})
}

// Expire sets a timeout on key. Returns 1 when set, 0 when key is missing or unavailable.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) int64 {
	return execute(ctx, c, "EXPIRE", key, int64(0), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		ok, err := cmd.Expire(ctx, key, ttl).Result()
		if err != nil || !ok {
			return 0, err
		}
		return 1, nil
	})
}

// TimeToLive returns the remaining lifetime of key in seconds, -1 when the key
// has no expiry and -2 when it does not exist or the store is unavailable.
func (c *Client) TimeToLive(ctx context.Context, key string) int64 {
	return execute(ctx, c, "TTL", key, int64(-2), func(ctx context.Context, cmd redis.Cmdable) (int64, error) {
		d, err := cmd.TTL(ctx, key).Result()
		if err != nil {
			return 0, err
		}
		return TTLSeconds(d), nil
	})
}

// TTLSeconds converts a TTL reply to seconds. go-redis passes the -1 and -2
// sentinels through unscaled.
func TTLSeconds(d time.Duration) int64 {
	if d < 0 {
		return int64(d)
	}
	return int64(d / time.Second)
}
