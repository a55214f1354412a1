package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/xhhao/redisconnector/common/logger"
)

// RequestContext copies the request id assigned by echo's RequestID
// middleware into the request context, so logger.WithContext can tag every
// record emitted while serving the request.
//
// Register it after middleware.RequestID():
//
//	e.Use(middleware.RequestID())
//	e.Use(RequestContext())
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}

			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, id)))
			}

			return next(c)
		}
	}
}
