// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes. The relay's wire contract is
// plain on purpose; client software embedded in node tooling parses these
// exact shapes:
//
//	success:  { "success": true, "message": "Alert sent successfully" }
//	failure:  { "error": "<message>" }
//	failure+: { "error": "<message>", "details": "<hint>" }
//
// Raw dependency error text is never placed in an envelope; 5xx messages are
// generic and the underlying error is logged with the request ID instead.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-alert-relay/internal/http/middleware"
)

// SuccessResponse is the body of every 2xx alert-endpoint response.
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Alert sent successfully"`
}

// ErrorResponse is the body of every non-2xx response. Details is present
// only when there is a user-actionable hint (e.g. how to register).
type ErrorResponse struct {
	Error   string `json:"error" example:"Identifier not found"`
	Details string `json:"details,omitempty" example:"No registration exists for this ENS name or address"`
}

// fail aborts the request with the plain error envelope. Server-side (5xx)
// failures are additionally logged with the request-scoped logger.
func fail(c *gin.Context, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Int("status", status).Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// failDetails is fail with the optional details hint.
func failDetails(c *gin.Context, status int, msg, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Details: details})
}

// Fail is the exported variant of fail for use by router fallbacks.
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg, nil) }
