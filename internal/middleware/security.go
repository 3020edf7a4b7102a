package middleware

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"remoting-proxy-go/internal/codec"
)

// hopByHopHeaders are connection-scoped headers dropped from inbound requests.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Upgrade",
}

// SecurityHeaders returns an Echo middleware that strips hop-by-hop request
// headers and marks responses as non-cacheable, non-sniffable and non-frameable.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range hopByHopHeaders {
				c.Request().Header.Del(h)
			}

			// Set before next so the headers are present once the body is written.
			rh := c.Response().Header()
			rh.Set("X-Content-Type-Options", "nosniff")
			rh.Set("X-Frame-Options", "DENY")
			rh.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}

// RequireJSON rejects requests whose Content-Type is not application/json
// with 415 Unsupported Media Type.
func RequireJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			mt, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
			if err != nil || mt != codec.ContentType {
				return c.JSON(http.StatusUnsupportedMediaType, map[string]string{
					"error": "content type must be " + codec.ContentType,
				})
			}
			return next(c)
		}
	}
}
