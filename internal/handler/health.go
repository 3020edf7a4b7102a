package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	invoker *service.Invoker
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(inv *service.Invoker, v Version) *HealthHandler {
	return &HealthHandler{invoker: inv, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the build version and the registered lookup names.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": string(h.version),
		"beans":   h.invoker.Lookups(),
	})
}
