package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhhao/redisconnector/cmd/connector/models"
	"github.com/xhhao/redisconnector/common/keyfilter"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/redis"
)

func newBrowser(t *testing.T, client *redis.Client) *BrowserService {
	t.Helper()
	filters, err := keyfilter.NewEvaluator()
	require.NoError(t, err)
	return NewBrowserService(client, filters, newTestConfig().Browser, logger.Discard())
}

func TestListKeys_Unavailable(t *testing.T) {
	client, _ := newDialedClient(nil)
	b := newBrowser(t, client)

	keys, err := b.ListKeys(context.Background(), "user", 10, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NotNil(t, keys)
}

func TestListKeys_WrapsPatternAndDescribesKeys(t *testing.T) {
	client, mock := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectScan(0, "*user*", scanCount).SetVal([]string{"user:1", "user:2"}, 7)
		mock.ExpectType("user:1").SetVal("hash")
		mock.ExpectTTL("user:1").SetVal(time.Duration(-1))
		mock.ExpectType("user:2").SetVal("string")
		mock.ExpectTTL("user:2").SetVal(30 * time.Second)
		mock.ExpectScan(7, "*user*", scanCount).SetVal([]string{"user:2", "user:3"}, 0)
		mock.ExpectType("user:3").SetVal("set")
		mock.ExpectTTL("user:3").SetVal(time.Duration(-1))
	})
	b := newBrowser(t, client)

	keys, err := b.ListKeys(context.Background(), "user", 0, "")
	require.NoError(t, err)

	assert.Equal(t, []models.KeyEntry{
		{Key: "user:1", FullKey: "user:1", Type: "hash", TTL: -1},
		{Key: "user:2", FullKey: "user:2", Type: "string", TTL: 30},
		{Key: "user:3", FullKey: "user:3", Type: "set", TTL: -1},
	}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(0), client.Pool().Stats().InUse)
}

func TestListKeys_StopsAtLimit(t *testing.T) {
	client, mock := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectScan(0, "session:*", scanCount).SetVal([]string{"session:a", "session:b", "session:c"}, 12)
		mock.ExpectType("session:a").SetVal("string")
		mock.ExpectTTL("session:a").SetVal(time.Minute)
		mock.ExpectType("session:b").SetVal("string")
		mock.ExpectTTL("session:b").SetVal(time.Minute)
	})
	b := newBrowser(t, client)

	keys, err := b.ListKeys(context.Background(), "session:*", 2, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListKeys_Filter(t *testing.T) {
	client, _ := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectScan(0, "*", scanCount).SetVal([]string{"a", "b"}, 0)
		mock.ExpectType("a").SetVal("hash")
		mock.ExpectTTL("a").SetVal(time.Duration(-1))
		mock.ExpectType("b").SetVal("string")
		mock.ExpectTTL("b").SetVal(time.Hour)
	})
	b := newBrowser(t, client)

	keys, err := b.ListKeys(context.Background(), "", 10, `kind == "string" && ttl > 60`)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "b", keys[0].Key)
	assert.Equal(t, int64(3600), keys[0].TTL)
}

func TestListKeys_InvalidFilter(t *testing.T) {
	client, _ := newDialedClient(nil)
	b := newBrowser(t, client)

	_, err := b.ListKeys(context.Background(), "", 10, `ttl +`)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListKeys_ScanFailureYieldsEmpty(t *testing.T) {
	client, _ := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectScan(0, "*", scanCount).SetErr(errors.New("ERR unknown command 'SCAN'"))
	})
	b := newBrowser(t, client)

	keys, err := b.ListKeys(context.Background(), "*", 10, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, client.IsAvailable())
}

func TestListKeys_LimitClamp(t *testing.T) {
	b := newBrowser(t, redis.NewClient(logger.Discard()))
	assert.Equal(t, 100, b.limit(0))
	assert.Equal(t, 100, b.limit(-5))
	assert.Equal(t, 50, b.limit(50))
	assert.Equal(t, 1000, b.limit(5000))
}

func TestGetData_ByType(t *testing.T) {
	client, mock := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectType("greeting").SetVal("string")
		mock.ExpectTTL("greeting").SetVal(time.Duration(-1))
		mock.ExpectGet("greeting").SetVal("hello")

		mock.ExpectType("queue").SetVal("list")
		mock.ExpectTTL("queue").SetVal(time.Duration(-1))
		mock.ExpectLRange("queue", 0, -1).SetVal([]string{"a", "b"})

		mock.ExpectType("tags").SetVal("set")
		mock.ExpectTTL("tags").SetVal(time.Duration(-1))
		mock.ExpectSMembers("tags").SetVal([]string{"go"})

		mock.ExpectType("lb").SetVal("zset")
		mock.ExpectTTL("lb").SetVal(time.Duration(-1))
		mock.ExpectZRangeWithScores("lb", 0, -1).SetVal([]goredis.Z{
			{Score: 50, Member: "bob"},
			{Score: 100, Member: "alice"},
		})

		mock.ExpectType("user:1").SetVal("hash")
		mock.ExpectTTL("user:1").SetVal(90 * time.Second)
		mock.ExpectHGetAll("user:1").SetVal(map[string]string{"name": "alice"})

		mock.ExpectType("missing").SetVal("none")
		mock.ExpectTTL("missing").SetVal(time.Duration(-2))
	})
	b := newBrowser(t, client)
	ctx := context.Background()

	str := b.GetData(ctx, "greeting")
	assert.Equal(t, "string", str.Type)
	assert.Equal(t, "hello", str.Value)

	assert.Equal(t, []string{"a", "b"}, b.GetData(ctx, "queue").Value)
	assert.Equal(t, []string{"go"}, b.GetData(ctx, "tags").Value)
	assert.Equal(t, []models.ScoredMember{
		{Member: "bob", Score: 50},
		{Member: "alice", Score: 100},
	}, b.GetData(ctx, "lb").Value)

	hash := b.GetData(ctx, "user:1")
	assert.Equal(t, map[string]string{"name": "alice"}, hash.Value)
	assert.Equal(t, int64(90), hash.TTL)

	missing := b.GetData(ctx, "missing")
	assert.Equal(t, "none", missing.Type)
	assert.Equal(t, int64(-2), missing.TTL)
	assert.Nil(t, missing.Value)
	assert.Empty(t, missing.Error)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetData_Unavailable(t *testing.T) {
	b := newBrowser(t, redis.NewClient(logger.Discard()))

	data := b.GetData(context.Background(), "k")
	assert.Equal(t, "k", data.Key)
	assert.Equal(t, "redis not available", data.Error)
}

func TestSetData(t *testing.T) {
	client, mock := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectSet("k", "v", 0).SetVal("OK")
		mock.ExpectSet("s", "v", 30*time.Second).SetVal("OK")
	})
	b := newBrowser(t, client)
	ctx := context.Background()
	key, value, skey := "k", "v", "s"

	assert.True(t, b.SetData(ctx, models.SetDataRequest{Key: &key, Value: &value}).Success)
	assert.True(t, b.SetData(ctx, models.SetDataRequest{Key: &skey, Value: &value, TTL: 30}).Success)

	res := b.SetData(ctx, models.SetDataRequest{Key: &key})
	assert.False(t, res.Success)
	assert.Equal(t, "key and value are required", res.Message)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetData_RejectsOverflowingTTL(t *testing.T) {
	client, mock := availableClient(t, nil)
	b := newBrowser(t, client)
	key, value := "k", "v"

	for _, ttl := range []int64{maxTTLSeconds + 1, 18446744074} {
		res := b.SetData(context.Background(), models.SetDataRequest{Key: &key, Value: &value, TTL: ttl})
		assert.False(t, res.Success, "ttl %d", ttl)
		assert.Equal(t, "ttl out of range", res.Message)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetData_Unavailable(t *testing.T) {
	b := newBrowser(t, redis.NewClient(logger.Discard()))
	key, value := "k", "v"

	assert.False(t, b.SetData(context.Background(), models.SetDataRequest{Key: &key, Value: &value}).Success)
}

func TestDeleteData(t *testing.T) {
	client, _ := availableClient(t, func(mock redismock.ClientMock) {
		mock.ExpectDel("k").SetVal(1)
		mock.ExpectDel("k").SetVal(0)
	})
	b := newBrowser(t, client)

	assert.True(t, b.DeleteData(context.Background(), "k").Success)

	res := b.DeleteData(context.Background(), "k")
	assert.False(t, res.Success)
	assert.Equal(t, "key does not exist", res.Message)
}

func TestTestConnection(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		res := newBrowser(t, redis.NewClient(logger.Discard())).TestConnection(context.Background())
		assert.False(t, res.Available)
		assert.Equal(t, "redis not available", res.Message)
	})

	t.Run("round trip", func(t *testing.T) {
		client, _ := availableClient(t, func(mock redismock.ClientMock) {
			mock.ExpectSet(TestKey, "probe-1", 0).SetVal("OK")
			mock.ExpectGet(TestKey).SetVal("probe-1")
		})
		b := newBrowser(t, client)
		b.probeValue = func() string { return "probe-1" }

		res := b.TestConnection(context.Background())
		assert.True(t, res.Available)
		assert.True(t, res.WriteSuccess)
		assert.Equal(t, "probe-1", res.ReadValue)
		assert.Equal(t, "redis working", res.Message)
	})

	t.Run("mismatch", func(t *testing.T) {
		client, _ := availableClient(t, func(mock redismock.ClientMock) {
			mock.ExpectSet(TestKey, "probe-2", 0).SetVal("OK")
			mock.ExpectGet(TestKey).SetVal("stale")
		})
		b := newBrowser(t, client)
		b.probeValue = func() string { return "probe-2" }

		assert.Equal(t, "read/write mismatch", b.TestConnection(context.Background()).Message)
	})
}

func TestDefaultProbeValueIsUnique(t *testing.T) {
	a, b := defaultProbeValue(), defaultProbeValue()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, testValuePrefix)
}
