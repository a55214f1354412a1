package container

import (
	"fmt"

	"github.com/xhhao/redisconnector/cmd/connector/plugin"
	"github.com/xhhao/redisconnector/cmd/connector/service"
	"github.com/xhhao/redisconnector/common/bootstrap"
	"github.com/xhhao/redisconnector/common/keyfilter"
	"github.com/xhhao/redisconnector/common/redis"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Redis      *redis.Client

	// Services
	ConfigService  *service.ConfigService
	BrowserService *service.BrowserService

	Plugin *plugin.Plugin
}

// NewContainer initializes all services once. The Redis facade starts
// uninitialized; Plugin.Start connects it.
func NewContainer(components *bootstrap.Components, opts ...redis.Option) (*Container, error) {
	cfg := components.Config

	redisOpts := append([]redis.Option{
		redis.WithPoolOptions(redis.PoolOptions{
			MaxTotal: cfg.Redis.MaxTotal,
			MaxIdle:  cfg.Redis.MaxIdle,
			MinIdle:  cfg.Redis.MinIdle,
		}),
	}, opts...)
	redisClient := redis.NewClient(components.Logger.WithComponent("redis"), redisOpts...)

	filters, err := keyfilter.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create key filter: %w", err)
	}

	configService := service.NewConfigService(cfg, components.Store, redisClient, components.Logger)
	browserService := service.NewBrowserService(redisClient, filters, cfg.Browser, components.Logger)

	return &Container{
		Components:     components,
		Redis:          redisClient,
		ConfigService:  configService,
		BrowserService: browserService,
		Plugin:         plugin.New(redisClient, configService, components.Logger),
	}, nil
}
