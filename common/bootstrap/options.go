package bootstrap

import (
	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/repository"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	customLogger *logger.Logger
	customConfig *config.Config
	customStore  repository.ConfigMapStore
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithStore uses the given document store and skips database setup
func WithStore(store repository.ConfigMapStore) Option {
	return func(o *options) {
		o.customStore = store
	}
}

func defaultOptions() *options {
	return &options{}
}
