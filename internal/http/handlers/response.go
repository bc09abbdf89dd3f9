// Package handlers implements the HTTP endpoints of the public API.
//
// This file holds the shared response helpers. Every error leaving the API
// uses the same envelope, so clients can branch on a stable code instead of
// parsing prose:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "no work recorded for this map"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint. RequestID
// echoes X-Request-ID so a user report can be matched to server logs; Code is
// the stable machine-readable discriminator; Message is safe to show as-is.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the request with the standard envelope. Server-side failures
// (5xx) are additionally logged with request context.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail exposes fail to the router for NoRoute/NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
