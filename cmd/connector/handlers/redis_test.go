package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhhao/redisconnector/cmd/connector/container"
	"github.com/xhhao/redisconnector/cmd/connector/models"
	"github.com/xhhao/redisconnector/cmd/connector/routes"
	"github.com/xhhao/redisconnector/common/bootstrap"
	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/redis"
	"github.com/xhhao/redisconnector/common/repository"
)

const base = routes.APIPrefix + "/redis"

type testServer struct {
	e    *echo.Echo
	c    *container.Container
	mock redismock.ClientMock
}

// newTestServer wires the real container and routes over a redismock-backed
// dialer. setup registers expectations after the initial PING.
func newTestServer(t *testing.T, setup func(mock redismock.ClientMock)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "redis-connector-test", Port: 8080},
		Redis: config.RedisConfig{
			ConnectTimeout: time.Second,
			SocketTimeout:  time.Second,
			MaxTotal:       10,
			MaxIdle:        5,
			MinIdle:        1,
		},
		Store:   config.StoreConfig{Type: "memory", ConfigMapName: "redis-connector-configmap"},
		Browser: config.BrowserConfig{DefaultLimit: 100, MaxLimit: 1000},
	}
	components, err := bootstrap.Setup(context.Background(), "redis-connector-test",
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithStore(repository.NewMemoryConfigMapStore()),
	)
	require.NoError(t, err)

	ts := &testServer{}
	dialer := redis.WithDialer(func(redis.ConnectionConfig) *redis.Pool {
		db, mock := redismock.NewClientMock()
		mock.ExpectPing().SetVal("PONG")
		if setup != nil {
			setup(mock)
		}
		ts.mock = mock
		return redis.NewPoolFromClient(db, 10, logger.Discard())
	})

	ts.c, err = container.NewContainer(components, dialer)
	require.NoError(t, err)

	ts.e = echo.New()
	routes.RegisterRedisRoutes(ts.e, ts.c)
	return ts
}

func (ts *testServer) connect(t *testing.T) {
	t.Helper()
	ts.c.Redis.Initialize(context.Background(), redis.NewConnectionConfig("cache1", 6379, "", 0))
	require.True(t, ts.c.Redis.IsAvailable())
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatus_NoConfiguration(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, base+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[models.Status](t, rec)
	assert.Equal(t, models.SourceNone, status.ConfigSource)
	assert.False(t, status.Available)
	assert.Equal(t, "uninitialized", status.State)
}

func TestConfig_SaveReconnectStatus(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, base+"/config", `{"host":"cache1","port":6379,"database":"0"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.OperationResult](t, rec).Success)

	rec = ts.do(http.MethodGet, base+"/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"host": "cache1", "port": "6379", "database": "0"}, decode[map[string]string](t, rec))

	rec = ts.do(http.MethodPost, base+"/reconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[models.ReconnectResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, models.SourcePlugin, res.ConfigSource)

	status := decode[models.Status](t, ts.do(http.MethodGet, base+"/status", ""))
	assert.True(t, status.Available)
	assert.Equal(t, "cache1", status.ActiveHost)
	assert.Equal(t, "available", status.State)
}

func TestConfig_Patch(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do(http.MethodPost, base+"/config", `{"host":"cache1","password":"pw"}`)

	rec := ts.do(http.MethodPatch, base+"/config", `{"password":null,"port":"6380"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]string](t, ts.do(http.MethodGet, base+"/config", ""))
	assert.Equal(t, map[string]string{"host": "cache1", "port": "6380"}, got)
}

func TestConfig_MalformedBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, base+"/config", `{"host":`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, base+"/config", `["cache1"]`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPatch, base+"/config", `[1]`).Code)
}

func TestReconnect_NoConfiguration(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, base+"/reconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[models.ReconnectResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, models.SourceNone, res.ConfigSource)
}

func TestKeys_Unavailable(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, base+"/keys?pattern=user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestKeys_List(t *testing.T) {
	ts := newTestServer(t, func(mock redismock.ClientMock) {
		mock.ExpectScan(0, "*user*", 100).SetVal([]string{"user:1"}, 0)
		mock.ExpectType("user:1").SetVal("hash")
		mock.ExpectTTL("user:1").SetVal(time.Duration(-1))
	})
	ts.connect(t)

	rec := ts.do(http.MethodGet, base+"/keys?pattern=user&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.KeyEntry{{Key: "user:1", FullKey: "user:1", Type: "hash", TTL: -1}}, decode[[]models.KeyEntry](t, rec))
}

func TestKeys_BadQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, base+"/keys?limit=ten", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, base+"/keys?filter=ttl%20%2B", "").Code)
}

func TestData_RoundTrip(t *testing.T) {
	ts := newTestServer(t, func(mock redismock.ClientMock) {
		mock.ExpectSet("greeting", "hello", 60*time.Second).SetVal("OK")
		mock.ExpectType("greeting").SetVal("string")
		mock.ExpectTTL("greeting").SetVal(60 * time.Second)
		mock.ExpectGet("greeting").SetVal("hello")
		mock.ExpectDel("greeting").SetVal(1)
	})
	ts.connect(t)

	rec := ts.do(http.MethodPost, base+"/data", `{"key":"greeting","value":"hello","ttl":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.OperationResult](t, rec).Success)

	rec = ts.do(http.MethodGet, base+"/data/greeting", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "string", data["type"])
	assert.Equal(t, "hello", data["value"])
	assert.Equal(t, float64(60), data["ttl"])

	rec = ts.do(http.MethodDelete, base+"/data/greeting", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.OperationResult](t, rec).Success)

	require.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestData_MissingFields(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, base+"/data", `{"key":"k"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[models.OperationResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "key and value are required", res.Message)
}

func TestData_Unavailable(t *testing.T) {
	ts := newTestServer(t, nil)

	data := decode[models.KeyData](t, ts.do(http.MethodGet, base+"/data/k", ""))
	assert.Equal(t, "redis not available", data.Error)

	res := decode[models.OperationResult](t, ts.do(http.MethodDelete, base+"/data/k", ""))
	assert.False(t, res.Success)
}

func TestTestConnection_Unavailable(t *testing.T) {
	ts := newTestServer(t, nil)

	res := decode[models.TestResult](t, ts.do(http.MethodGet, base+"/test", ""))
	assert.False(t, res.Available)
	assert.Equal(t, "redis not available", res.Message)
}
