package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/xhhao/redisconnector/cmd/connector/container"
	"github.com/xhhao/redisconnector/cmd/connector/handlers"
)

// APIPrefix is the group/version path every connector endpoint lives under
const APIPrefix = "/apis/api.redis.xhhao.com/v1alpha1"

// RegisterRedisRoutes registers the connection, configuration and key browser routes
func RegisterRedisRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRedisHandler(c)

	r := e.Group(APIPrefix + "/redis")
	{
		// Connection management
		r.GET("/status", h.GetStatus)     // GET .../redis/status
		r.GET("/test", h.TestConnection)  // GET .../redis/test
		r.POST("/reconnect", h.Reconnect) // POST .../redis/reconnect

		// Plugin configuration
		r.GET("/config", h.GetConfig)     // GET .../redis/config
		r.POST("/config", h.SaveConfig)   // POST .../redis/config
		r.PATCH("/config", h.PatchConfig) // PATCH .../redis/config

		// Data browsing
		r.GET("/keys", h.ListKeys)           // GET .../redis/keys?pattern=user&limit=50
		r.GET("/data/:key", h.GetData)       // GET .../redis/data/user:1
		r.POST("/data", h.SetData)           // POST .../redis/data
		r.DELETE("/data/:key", h.DeleteData) // DELETE .../redis/data/user:1
	}
}
