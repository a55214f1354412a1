package redis

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	// DefaultConnectTimeout bounds dialing a new connection
	DefaultConnectTimeout = 10 * time.Second
	// DefaultSocketTimeout bounds every read and write on an established connection
	DefaultSocketTimeout = 5 * time.Second
	// DefaultUsername is the ACL identity sent alongside a configured password
	DefaultUsername = "default"
)

// ConnectionConfig describes one connection attempt. A new value is built
// for every (re)initialization; it is never modified afterwards.
type ConnectionConfig struct {
	Host           string
	Port           uint16
	Password       string
	Database       uint32
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// NewConnectionConfig builds a config with the default timeouts
func NewConnectionConfig(host string, port uint16, password string, database uint32) ConnectionConfig {
	return ConnectionConfig{
		Host:           host,
		Port:           port,
		Password:       password,
		Database:       database,
		ConnectTimeout: DefaultConnectTimeout,
		SocketTimeout:  DefaultSocketTimeout,
	}
}

// Addr returns host:port
func (c ConnectionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// String renders the target without the password
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s/%d", c.Addr(), c.Database)
}

func (c ConnectionConfig) withDefaults() ConnectionConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = DefaultSocketTimeout
	}
	return c
}

// PoolOptions bounds the connection pool
type PoolOptions struct {
	MaxTotal int
	MaxIdle  int
	MinIdle  int
}

// DefaultPoolOptions returns max total 10, max idle 5, min idle 1
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxTotal: 10,
		MaxIdle:  5,
		MinIdle:  1,
	}
}
