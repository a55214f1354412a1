package bootstrap

import (
	"context"
	"fmt"

	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/db"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/repository"
)

// Setup initializes config, logger and the config document store.
// This is the main entry point for the connector service.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
		"store", components.Config.Store.Type,
	)

	// 3. Initialize the config document store
	switch {
	case options.customStore != nil:
		components.Store = options.customStore

	case components.Config.Store.Type == "postgres":
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.DB.Close()
			return nil
		})

		store := repository.NewPostgresConfigMapStore(components.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		components.Store = store

	default:
		components.Store = repository.NewMemoryConfigMapStore()
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
