package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xhhao/redisconnector/cmd/connector/container"
	connmw "github.com/xhhao/redisconnector/cmd/connector/middleware"
	"github.com/xhhao/redisconnector/cmd/connector/routes"
	"github.com/xhhao/redisconnector/common/bootstrap"
	"github.com/xhhao/redisconnector/common/server"
	"github.com/xhhao/redisconnector/common/telemetry"
)

const serviceName = "redis-connector"

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, config store)
	components, err := bootstrap.Setup(ctx, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	tel := telemetry.New(components.Config.Telemetry.PprofPort, components.Logger)
	if err := tel.Start(ctx); err != nil {
		components.Logger.Warn("profiling disabled", "error", err)
	}
	components.AddCleanup(tel.Stop)

	// Connect and publish the facade; Stop runs before the store closes
	started := time.Now()
	serviceContainer.Plugin.Start(ctx)
	tel.RecordDuration("plugin_start", started)
	components.AddCleanup(func() error {
		serviceContainer.Plugin.Stop()
		return nil
	})

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, serviceContainer)
	if err := setupMetrics(e, serviceContainer); err != nil {
		components.Logger.Warn("metrics endpoint disabled", "error", err)
	}
	routes.RegisterRedisRoutes(e, serviceContainer)

	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("server error", "error", err)
		components.Shutdown(ctx)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(connmw.RequestContext())
}

// setupHealthCheck registers the health check endpoint. The service stays
// healthy while Redis is degraded; only the config store can fail it.
func setupHealthCheck(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ec echo.Context) error {
		body := map[string]interface{}{
			"status":          "ok",
			"service":         serviceName,
			"redis_available": c.Redis.IsAvailable(),
			"redis_state":     c.Redis.State().String(),
		}

		if err := c.Components.Health(ec.Request().Context()); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return ec.JSON(http.StatusServiceUnavailable, body)
		}
		return ec.JSON(http.StatusOK, body)
	})
}

// setupMetrics exposes facade and pool metrics for Prometheus
func setupMetrics(e *echo.Echo, c *container.Container) error {
	reg, err := telemetry.NewRegistry(c.Redis)
	if err != nil {
		return err
	}
	e.GET("/metrics", echo.WrapHandler(telemetry.MetricsHandler(reg)))
	return nil
}
