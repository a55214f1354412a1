package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/db"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/repository"
)

// Components holds all initialized service dependencies
type Components struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.DB // nil unless the postgres store is selected
	Store  repository.ConfigMapStore

	cleanupFuncs []func() error
}

// Shutdown runs every registered cleanup in reverse order (LIFO)
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the config store database, when one is in use
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}
	return nil
}

// AddCleanup registers fn to run on Shutdown
func (c *Components) AddCleanup(fn func() error) {
	c.addCleanup(fn)
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
