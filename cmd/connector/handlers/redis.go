package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xhhao/redisconnector/cmd/connector/container"
	"github.com/xhhao/redisconnector/cmd/connector/models"
	"github.com/xhhao/redisconnector/cmd/connector/service"
	"github.com/xhhao/redisconnector/common/logger"
)

// maxBodyBytes bounds configuration and data request bodies
const maxBodyBytes = 1 << 20

// RedisHandler serves the connection, configuration and key browser endpoints
type RedisHandler struct {
	config  *service.ConfigService
	browser *service.BrowserService
	log     *logger.Logger
}

// NewRedisHandler creates a new redis handler
func NewRedisHandler(c *container.Container) *RedisHandler {
	return &RedisHandler{
		config:  c.ConfigService,
		browser: c.BrowserService,
		log:     c.Components.Logger.WithComponent("redis-handler"),
	}
}

// GetStatus reports both configuration sources and availability
// GET /redis/status
func (h *RedisHandler) GetStatus(c echo.Context) error {
	status, err := h.config.Status(c.Request().Context())
	if err != nil {
		return h.internalError(c, "failed to read status", err)
	}
	return c.JSON(http.StatusOK, status)
}

// TestConnection writes and reads back a probe key
// GET /redis/test
func (h *RedisHandler) TestConnection(c echo.Context) error {
	return c.JSON(http.StatusOK, h.browser.TestConnection(c.Request().Context()))
}

// Reconnect rebuilds the connection from the current settings
// POST /redis/reconnect
func (h *RedisHandler) Reconnect(c echo.Context) error {
	ctx := c.Request().Context()
	h.log.WithContext(ctx).Info("reconnect requested")
	return c.JSON(http.StatusOK, h.config.Reconnect(ctx))
}

// GetConfig returns the stored plugin settings
// GET /redis/config
func (h *RedisHandler) GetConfig(c echo.Context) error {
	settings, err := h.config.GetPluginConfig(c.Request().Context())
	if err != nil {
		return h.internalError(c, "failed to read config", err)
	}
	return c.JSON(http.StatusOK, settings)
}

// SaveConfig replaces the stored plugin settings
// POST /redis/config
func (h *RedisHandler) SaveConfig(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	settings, err := service.DecodeSettings(body)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(http.StatusOK, h.config.SavePluginConfig(c.Request().Context(), settings))
}

// PatchConfig merges an RFC 7386 patch into the stored plugin settings
// PATCH /redis/config
func (h *RedisHandler) PatchConfig(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.config.PatchPluginConfig(c.Request().Context(), body)
	if errors.Is(err, service.ErrInvalidSettings) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return h.internalError(c, "failed to patch config", err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListKeys lists keys matching a pattern
// GET /redis/keys?pattern=user&limit=50&filter=kind=="hash"&&ttl>0
func (h *RedisHandler) ListKeys(c echo.Context) error {
	pattern := c.QueryParam("pattern")
	if pattern == "" {
		pattern = "*"
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "limit must be an integer")
		}
		limit = n
	}

	keys, err := h.browser.ListKeys(c.Request().Context(), pattern, limit, c.QueryParam("filter"))
	if errors.Is(err, service.ErrInvalidFilter) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return h.internalError(c, "failed to list keys", err)
	}
	return c.JSON(http.StatusOK, keys)
}

// GetData returns the full value of one key
// GET /redis/data/:key
func (h *RedisHandler) GetData(c echo.Context) error {
	return c.JSON(http.StatusOK, h.browser.GetData(c.Request().Context(), keyParam(c)))
}

// SetData stores a string value
// POST /redis/data
func (h *RedisHandler) SetData(c echo.Context) error {
	var req models.SetDataRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.browser.SetData(c.Request().Context(), req))
}

// DeleteData removes one key
// DELETE /redis/data/:key
func (h *RedisHandler) DeleteData(c echo.Context) error {
	return c.JSON(http.StatusOK, h.browser.DeleteData(c.Request().Context(), keyParam(c)))
}

func (h *RedisHandler) internalError(c echo.Context, msg string, err error) error {
	h.log.WithContext(c.Request().Context()).Error(msg, "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error":   msg,
		"details": err.Error(),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error": msg,
	})
}

// keyParam returns the :key path segment, unescaped so keys may contain '/'
func keyParam(c echo.Context) string {
	raw := c.Param("key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errors.New("request body must be valid JSON")
	}
	return body, nil
}
