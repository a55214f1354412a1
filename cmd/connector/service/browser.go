package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/xhhao/redisconnector/cmd/connector/models"
	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/keyfilter"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/redis"
)

const (
	// TestKey is written and read back by TestConnection
	TestKey = "redis-connector:test"

	testValuePrefix = "Hello from Redis Connector!"

	// scanCount is the COUNT hint sent with every SCAN page
	scanCount = 100

	// maxTTLSeconds is the largest expiry that fits in a time.Duration
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)
)

// ErrInvalidFilter wraps filter expressions that fail to compile
var ErrInvalidFilter = errors.New("invalid key filter")

// BrowserService inspects and edits keys for the management endpoints
type BrowserService struct {
	client  *redis.Client
	filters *keyfilter.Evaluator
	limits  config.BrowserConfig
	log     *logger.Logger

	// probeValue generates the value written by TestConnection
	probeValue func() string
}

// NewBrowserService creates a new key browser
func NewBrowserService(client *redis.Client, filters *keyfilter.Evaluator, limits config.BrowserConfig, log *logger.Logger) *BrowserService {
	return &BrowserService{
		client:     client,
		filters:    filters,
		limits:     limits,
		log:        log.WithComponent("key-browser"),
		probeValue: defaultProbeValue,
	}
}

func defaultProbeValue() string {
	return testValuePrefix + " " + uuid.NewString()
}

// SearchPattern turns a user search term into a SCAN MATCH pattern. Terms
// without a wildcard match anywhere in the key.
func SearchPattern(pattern string) string {
	if pattern == "" {
		return "*"
	}
	if strings.Contains(pattern, "*") {
		return pattern
	}
	return "*" + pattern + "*"
}

func (s *BrowserService) limit(requested int) int {
	if requested <= 0 {
		return s.limits.DefaultLimit
	}
	if requested > s.limits.MaxLimit {
		return s.limits.MaxLimit
	}
	return requested
}

// ListKeys returns up to limit keys matching pattern, optionally narrowed by
// a CEL filter over key, type and ttl. An unavailable store yields an empty list.
func (s *BrowserService) ListKeys(ctx context.Context, pattern string, limit int, filter string) ([]models.KeyEntry, error) {
	if filter != "" {
		if err := s.filters.Compile(filter); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}

	entries := []models.KeyEntry{}
	if !s.client.IsAvailable() {
		return entries, nil
	}
	pool := s.client.Pool()
	if pool == nil {
		return entries, nil
	}

	conn, err := pool.Borrow(ctx)
	if err != nil {
		s.log.Error("failed to borrow connection for key listing", "error", err)
		return entries, nil
	}
	defer conn.Release()

	match := SearchPattern(pattern)
	maxKeys := s.limit(limit)
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		keys, next, err := conn.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			s.log.Error("redis SCAN failed", "pattern", match, "error", err)
			return []models.KeyEntry{}, nil
		}

		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			entry, err := s.describe(ctx, conn, key)
			if err != nil {
				s.log.Error("failed to describe key", "key", key, "error", err)
				return []models.KeyEntry{}, nil
			}

			ok, err := s.filters.Match(filter, keyfilter.Entry{Key: entry.Key, Type: entry.Type, TTL: entry.TTL})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
			}
			if !ok {
				continue
			}

			entries = append(entries, entry)
			if len(entries) >= maxKeys {
				return entries, nil
			}
		}

		if next == 0 {
			return entries, nil
		}
		cursor = next
	}
}

func (s *BrowserService) describe(ctx context.Context, cmd goredis.Cmdable, key string) (models.KeyEntry, error) {
	typ, err := cmd.Type(ctx, key).Result()
	if err != nil {
		return models.KeyEntry{}, err
	}
	ttl, err := cmd.TTL(ctx, key).Result()
	if err != nil {
		return models.KeyEntry{}, err
	}
	return models.KeyEntry{
		Key:     key,
		FullKey: key,
		Type:    typ,
		TTL:     redis.TTLSeconds(ttl),
	}, nil
}

// GetData reads the whole value of key according to its type
func (s *BrowserService) GetData(ctx context.Context, key string) models.KeyData {
	data := models.KeyData{Key: key}

	if !s.client.IsAvailable() {
		data.Error = "redis not available"
		return data
	}
	pool := s.client.Pool()
	if pool == nil {
		data.Error = "pool not available"
		return data
	}

	conn, err := pool.Borrow(ctx)
	if err != nil {
		data.Error = err.Error()
		return data
	}
	defer conn.Release()

	entry, err := s.describe(ctx, conn, key)
	if err != nil {
		s.log.Error("failed to describe key", "key", key, "error", err)
		data.Error = err.Error()
		return data
	}
	data.Type = entry.Type
	data.TTL = entry.TTL

	value, err := readValue(ctx, conn, key, entry.Type)
	if err != nil {
		s.log.Error("failed to read key", "key", key, "type", entry.Type, "error", err)
		data.Error = err.Error()
		return data
	}
	data.Value = value
	return data
}

func readValue(ctx context.Context, cmd goredis.Cmdable, key, typ string) (interface{}, error) {
	switch typ {
	case "string":
		v, err := cmd.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return v, err
	case "list":
		return cmd.LRange(ctx, key, 0, -1).Result()
	case "set":
		return cmd.SMembers(ctx, key).Result()
	case "zset":
		zs, err := cmd.ZRangeWithScores(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, err
		}
		members := make([]models.ScoredMember, 0, len(zs))
		for _, z := range zs {
			members = append(members, models.ScoredMember{Member: fmt.Sprint(z.Member), Score: z.Score})
		}
		return members, nil
	case "hash":
		return cmd.HGetAll(ctx, key).Result()
	default:
		return nil, nil
	}
}

// SetData stores a string value, with an expiry when ttl is positive
func (s *BrowserService) SetData(ctx context.Context, req models.SetDataRequest) models.OperationResult {
	if req.Key == nil || req.Value == nil || *req.Key == "" {
		return models.OperationResult{Success: false, Message: "key and value are required"}
	}
	if req.TTL > maxTTLSeconds {
		return models.OperationResult{Success: false, Message: "ttl out of range"}
	}

	var res string
	if req.TTL > 0 {
		res = s.client.SetWithExpiry(ctx, *req.Key, *req.Value, time.Duration(req.TTL)*time.Second)
	} else {
		res = s.client.Set(ctx, *req.Key, *req.Value)
	}

	if res != "OK" {
		return models.OperationResult{Success: false, Message: "redis not available or write failed"}
	}
	return models.OperationResult{Success: true, Message: "saved"}
}

// DeleteData removes key
func (s *BrowserService) DeleteData(ctx context.Context, key string) models.OperationResult {
	if s.client.Delete(ctx, key) > 0 {
		return models.OperationResult{Success: true, Message: "deleted"}
	}
	return models.OperationResult{Success: false, Message: "key does not exist"}
}

// TestConnection writes a unique value to TestKey and reads it back
func (s *BrowserService) TestConnection(ctx context.Context) models.TestResult {
	result := models.TestResult{Available: s.client.IsAvailable()}
	if !result.Available {
		result.Message = "redis not available"
		return result
	}

	value := s.probeValue()
	result.WriteSuccess = s.client.Set(ctx, TestKey, value) == "OK"
	result.ReadValue = s.client.Get(ctx, TestKey)

	if result.ReadValue == value {
		result.Message = "redis working"
	} else {
		result.Message = "read/write mismatch"
	}
	return result
}
