package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/logger"
	commonmodels "github.com/xhhao/redisconnector/common/models"
	"github.com/xhhao/redisconnector/common/redis"
	"github.com/xhhao/redisconnector/common/repository"
)

const testConfigMapName = "redis-connector-configmap"

func newTestConfig() *config.Config {
	return &config.Config{
		HostRedis: config.HostRedisConfig{Port: 6379},
		Redis: config.RedisConfig{
			ConnectTimeout: 2 * time.Second,
			SocketTimeout:  time.Second,
			MaxTotal:       10,
			MaxIdle:        5,
			MinIdle:        1,
		},
		Store:   config.StoreConfig{Type: "memory", ConfigMapName: testConfigMapName},
		Browser: config.BrowserConfig{DefaultLimit: 100, MaxLimit: 1000},
	}
}

// recordingDialer hands out redismock-backed pools and remembers every target
type recordingDialer struct {
	setup func(mock redismock.ClientMock)

	mu      sync.Mutex
	mocks   []redismock.ClientMock
	configs []redis.ConnectionConfig
}

func (d *recordingDialer) dial(cfg redis.ConnectionConfig) *redis.Pool {
	db, mock := redismock.NewClientMock()
	if d.setup != nil {
		d.setup(mock)
	}

	d.mu.Lock()
	d.mocks = append(d.mocks, mock)
	d.configs = append(d.configs, cfg)
	d.mu.Unlock()

	return redis.NewPoolFromClient(db, 10, logger.Discard())
}

func (d *recordingDialer) lastConfig() redis.ConnectionConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configs[len(d.configs)-1]
}

func newDialedClient(setup func(mock redismock.ClientMock)) (*redis.Client, *recordingDialer) {
	d := &recordingDialer{setup: setup}
	return redis.NewClient(logger.Discard(), redis.WithDialer(d.dial)), d
}

// availableClient returns a client whose single pool answers PING and then
// whatever expectations setup registers
func availableClient(t *testing.T, setup func(mock redismock.ClientMock)) (*redis.Client, redismock.ClientMock) {
	t.Helper()
	c, d := newDialedClient(func(mock redismock.ClientMock) {
		mock.ExpectPing().SetVal("PONG")
		if setup != nil {
			setup(mock)
		}
	})
	c.Initialize(context.Background(), redis.NewConnectionConfig("cache1", 6379, "", 0))
	if !c.IsAvailable() {
		t.Fatal("mock client did not become available")
	}
	return c, d.mocks[0]
}

func storeWithPluginConfig(t *testing.T, raw string) *repository.MemoryConfigMapStore {
	t.Helper()
	store := repository.NewMemoryConfigMapStore()
	cm := commonmodels.NewConfigMap(testConfigMapName)
	cm.Data[RedisGroup] = raw
	if err := store.Create(context.Background(), cm); err != nil {
		t.Fatal(err)
	}
	return store
}

func hostConfig(enabled bool, host string, port int, password string, database int) config.HostRedisConfig {
	return config.HostRedisConfig{
		Enabled:  enabled,
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
	}
}
