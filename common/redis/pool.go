package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Borrow once the pool has been closed
var ErrPoolClosed = errors.New("redis pool closed")

// Pool owns one go-redis client and hands out bounded leases on it.
// Every successful Borrow must be paired with exactly one Conn.Release.
type Pool struct {
	client   redis.UniversalClient
	slots    *semaphore.Weighted
	maxTotal int
	logger   Logger

	closed  atomic.Bool
	borrows atomic.Int64
	inUse   atomic.Int64
}

// PoolStats is a point-in-time view of pool usage
type PoolStats struct {
	MaxTotal int
	Borrows  int64
	InUse    int64
	Closed   bool
	Redis    *redis.PoolStats
}

// Conn is a borrowed connection lease
type Conn struct {
	redis.Cmdable
	pool *Pool
	once sync.Once
}

// Release returns the lease to the pool. Calling it more than once is a no-op.
func (c *Conn) Release() {
	c.once.Do(c.pool.release)
}

// NewPool creates a pool for cfg. No network I/O happens until the first
// borrowed connection is used.
func NewPool(cfg ConnectionConfig, opts PoolOptions, logger Logger) *Pool {
	cfg = cfg.withDefaults()
	return NewPoolFromClient(redis.NewClient(newRedisOptions(cfg, opts)), opts.MaxTotal, logger)
}

// NewPoolFromClient adopts an existing client; the pool takes ownership and
// closes it on Close.
func NewPoolFromClient(client redis.UniversalClient, maxTotal int, logger Logger) *Pool {
	if maxTotal < 1 {
		maxTotal = DefaultPoolOptions().MaxTotal
	}
	return &Pool{
		client:   client,
		slots:    semaphore.NewWeighted(int64(maxTotal)),
		maxTotal: maxTotal,
		logger:   logger,
	}
}

// newRedisOptions maps a connection config onto go-redis options. Credentials
// are attached only when a password is configured; some deployments reject an
// empty AUTH.
func newRedisOptions(cfg ConnectionConfig, opts PoolOptions) *redis.Options {
	o := &redis.Options{
		Addr:           cfg.Addr(),
		DB:             int(cfg.Database),
		DialTimeout:    cfg.ConnectTimeout,
		ReadTimeout:    cfg.SocketTimeout,
		WriteTimeout:   cfg.SocketTimeout,
		PoolSize:       opts.MaxTotal,
		MaxActiveConns: opts.MaxTotal,
		MaxIdleConns:   opts.MaxIdle,
		MinIdleConns:   opts.MinIdle,
		MaxRetries:     -1,
	}

	if cfg.Password != "" {
		o.Username = DefaultUsername
		o.Password = cfg.Password
	}

	return o
}

// Borrow blocks until a connection slot is free, ctx is done, or the pool is closed
func (p *Pool) Borrow(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to borrow redis connection: %w", err)
	}

	if p.closed.Load() {
		p.slots.Release(1)
		return nil, ErrPoolClosed
	}

	p.borrows.Add(1)
	p.inUse.Add(1)

	return &Conn{Cmdable: p.client, pool: p}, nil
}

func (p *Pool) release() {
	p.inUse.Add(-1)
	p.slots.Release(1)
}

// Ping borrows one connection and issues PING on it
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Borrow(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := conn.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING failed: %w", err)
	}
	return nil
}

// Close releases every resource held by the pool. Later calls return nil.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis pool: %w", err)
	}

	p.logger.Debug("redis pool closed")
	return nil
}

// Closed reports whether Close has been called
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Stats returns pool usage counters
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		MaxTotal: p.maxTotal,
		Borrows:  p.borrows.Load(),
		InUse:    p.inUse.Load(),
		Closed:   p.closed.Load(),
		Redis:    p.client.PoolStats(),
	}
}
