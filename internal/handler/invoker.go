package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/codec"
	"remoting-proxy-go/internal/service"
)

// InvokerHandler serves POST /:interface/:method invocations.
type InvokerHandler struct {
	invoker *service.Invoker
	codec   codec.JSON
	logger  *slog.Logger
}

// NewInvokerHandler creates an InvokerHandler.
func NewInvokerHandler(inv *service.Invoker, logger *slog.Logger) *InvokerHandler {
	return &InvokerHandler{
		invoker: inv,
		logger:  logger.With("component", "invoker_handler"),
	}
}

// Handle decodes the invocation payload, runs it and writes the result as JSON.
// Methods without a value result answer 204 No Content.
func (h *InvokerHandler) Handle(c echo.Context) error {
	req := c.Request()

	var call service.Call
	if err := h.codec.DecodeReader(req.Body, &call); err != nil {
		return h.writeError(c, http.StatusBadRequest, "invalid invocation payload", err)
	}

	result, err := h.invoker.Invoke(req.Context(), c.Param("method"), &call)
	if err != nil {
		return h.mapError(c, err)
	}
	if result == nil {
		return c.NoContent(http.StatusNoContent)
	}

	body, err := h.codec.Encode(result)
	if err != nil {
		return h.writeError(c, http.StatusInternalServerError, "encode result", err)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *InvokerHandler) mapError(c echo.Context, err error) error {
	var me *service.MethodError
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return h.writeError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrUnauthorized):
		return h.writeError(c, http.StatusUnauthorized, "caller not authorized", err)
	case errors.Is(err, service.ErrUnknownLookup), errors.Is(err, service.ErrUnknownMethod):
		return h.writeError(c, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, context.Canceled):
		return h.writeError(c, http.StatusServiceUnavailable, "request canceled", err)
	case errors.As(err, &me):
		return h.writeError(c, http.StatusInternalServerError, me.Error(), err)
	}
	return h.writeError(c, http.StatusInternalServerError, "invocation failed", err)
}

func (h *InvokerHandler) writeError(c echo.Context, status int, msg string, err error) error {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(c.Request().Context(), level, "invocation error",
		"err", err,
		"status", status,
		"interface", c.Param("interface"),
		"method", c.Param("method"),
	)
	return c.JSON(status, map[string]string{"error": msg})
}
