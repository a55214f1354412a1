package plugin

import (
	"context"
	"errors"

	"github.com/xhhao/redisconnector/cmd/connector/service"
	"github.com/xhhao/redisconnector/common/logger"
	"github.com/xhhao/redisconnector/common/redis"
)

// Resolver picks the connection settings to start with
type Resolver interface {
	Resolve(ctx context.Context) (service.Resolution, error)
}

// Plugin ties the facade's lifecycle to the process-wide accessor
type Plugin struct {
	client   *redis.Client
	resolver Resolver
	log      *logger.Logger
}

// New creates a plugin for client
func New(client *redis.Client, resolver Resolver, log *logger.Logger) *Plugin {
	return &Plugin{
		client:   client,
		resolver: resolver,
		log:      log.WithComponent("plugin"),
	}
}

// Start connects the facade when settings are available and registers it
// globally. The facade is registered even when it stays unavailable, so
// consumers get defaults instead of ErrNotInitialized.
func (p *Plugin) Start(ctx context.Context) {
	p.log.Info("plugin starting")

	res, err := p.resolver.Resolve(ctx)
	switch {
	case errors.Is(err, service.ErrNoConfiguration):
		p.log.Warn("no redis connection configured, starting unavailable")
	case err != nil:
		p.log.Error("failed to resolve redis configuration", "error", err)
	default:
		p.client.Initialize(ctx, res.Config)
		p.log.Info("redis connection result",
			"source", res.Source,
			"target", res.Config.String(),
			"available", p.client.IsAvailable(),
		)
	}

	redis.SetGlobal(p.client)
	p.log.Info("plugin started")
}

// Stop unregisters the facade, then closes its pool
func (p *Plugin) Stop() {
	p.log.Info("plugin stopping")
	redis.ClearGlobal()
	p.client.Shutdown()
	p.log.Info("plugin stopped")
}
