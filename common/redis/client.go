package redis

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// State is the facade's connection state
type State int

const (
	// StateUninitialized means no pool has been built, or the facade was shut down
	StateUninitialized State = iota
	// StateAvailable means a pool exists and its probe succeeded
	StateAvailable
	// StateDegraded means the last initialization attempt failed its probe
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// Dialer builds a pool for a connection config
type Dialer func(cfg ConnectionConfig) *Pool

// snapshot is published atomically; data operations read it once
type snapshot struct {
	state State
	pool  *Pool
	cfg   ConnectionConfig
	set   bool
}

// Client is a hot-swappable facade over one Redis pool.
//
// Initialize, Reinitialize and Shutdown are serialized by transitionMu. Data
// operations never take the mutex: they load the current snapshot once and
// run against that pool, or return their default when it is not available.
// Operation errors are logged and converted to defaults, never returned.
type Client struct {
	transitionMu sync.Mutex
	cur          atomic.Pointer[snapshot]

	dial        Dialer
	poolOptions PoolOptions
	logger      Logger
}

// Option configures a Client
type Option func(*Client)

// WithDialer replaces the pool constructor
func WithDialer(dial Dialer) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithPoolOptions overrides the default pool bounds
func WithPoolOptions(opts PoolOptions) Option {
	return func(c *Client) {
		c.poolOptions = opts
	}
}

// NewClient creates an uninitialized facade
func NewClient(logger Logger, opts ...Option) *Client {
	c := &Client{
		poolOptions: DefaultPoolOptions(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = func(cfg ConnectionConfig) *Pool {
			return NewPool(cfg, c.poolOptions, c.logger)
		}
	}

	c.cur.Store(&snapshot{state: StateUninitialized})
	return c
}

// IsAvailable reports whether the last probe against the current pool succeeded
func (c *Client) IsAvailable() bool {
	s := c.cur.Load()
	return s.state == StateAvailable && s.pool != nil
}

// State returns the current connection state
func (c *Client) State() State {
	return c.cur.Load().state
}

// Config returns the config of the last initialization attempt, if any
func (c *Client) Config() (ConnectionConfig, bool) {
	s := c.cur.Load()
	return s.cfg, s.set
}

// Pool returns the live pool, or nil when none exists. Callers borrowing
// from it must release every connection they acquire.
func (c *Client) Pool() *Pool {
	return c.cur.Load().pool
}

// Initialize connects with cfg unless a pool already exists
func (c *Client) Initialize(ctx context.Context, cfg ConnectionConfig) {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if c.cur.Load().pool != nil {
		c.logger.Debug("redis already initialized, skipping", "target", cfg.String())
		return
	}

	c.connect(ctx, cfg)
}

// Reinitialize closes the current pool, if any, and connects with cfg.
// It never fails: callers inspect IsAvailable afterwards.
func (c *Client) Reinitialize(ctx context.Context, cfg ConnectionConfig) {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	c.teardown()
	c.connect(ctx, cfg)
}

// Shutdown closes the current pool. Safe to call repeatedly.
func (c *Client) Shutdown() {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	c.teardown()
}

// teardown must be called with transitionMu held
func (c *Client) teardown() {
	old := c.cur.Swap(&snapshot{state: StateUninitialized})
	if old.pool == nil {
		return
	}

	if err := old.pool.Close(); err != nil {
		c.logger.Warn("error closing redis pool", "target", old.cfg.String(), "error", err)
		return
	}
	c.logger.Info("redis connection closed", "target", old.cfg.String())
}

// connect must be called with transitionMu held
func (c *Client) connect(ctx context.Context, cfg ConnectionConfig) {
	cfg = cfg.withDefaults()
	c.logger.Info("connecting to redis", "target", cfg.String())

	pool := c.dial(cfg)

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+cfg.SocketTimeout)
	defer cancel()

	if err := pool.Ping(probeCtx); err != nil {
		c.logger.Error("failed to connect redis", "target", cfg.String(), "error", err)
		if cerr := pool.Close(); cerr != nil {
			c.logger.Warn("error discarding redis pool", "target", cfg.String(), "error", cerr)
		}
		c.cur.Store(&snapshot{state: StateDegraded, cfg: cfg, set: true})
		return
	}

	c.cur.Store(&snapshot{state: StateAvailable, pool: pool, cfg: cfg, set: true})
	c.logger.Info("redis connected successfully", "target", cfg.String())
}

// execute runs fn against one borrowed connection, or returns def when the
// facade is not available or fn fails.
func execute[T any](ctx context.Context, c *Client, verb, key string, def T, fn func(ctx context.Context, cmd redis.Cmdable) (T, error)) T {
	s := c.cur.Load()
	if s.state != StateAvailable || s.pool == nil {
		return def
	}

	conn, err := s.pool.Borrow(ctx)
	if err != nil {
		c.logger.Error("redis "+verb+" failed", "key", key, "error", err)
		return def
	}
	defer conn.Release()

	val, err := fn(ctx, conn)
	if err != nil {
		c.logger.Error("redis "+verb+" failed", "key", key, "error", err)
		return def
	}
	c.logger.Debug("redis "+verb, "key", key)
	return val
}

// Async runs op on its own goroutine and delivers its result on the returned
// channel, so event-loop style callers never wait on network I/O.
func Async[T any](ctx context.Context, op func(ctx context.Context) T) <-chan T {
	ch := make(chan T, 1)
	go func() {
		ch <- op(ctx)
	}()
	return ch
}
