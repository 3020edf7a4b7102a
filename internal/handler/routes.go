// Package handler exposes the invoker endpoint over HTTP with Echo.
package handler

import (
	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, invoker *InvokerHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	e.POST("/:interface/:method", invoker.Handle, middleware.RequireJSON())
}
