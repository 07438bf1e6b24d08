package handlers

import (
	"net/http"

	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
)

var failureStatus = map[services.FailureKind]int{
	services.FailureValidation:  http.StatusUnprocessableEntity,
	services.FailureConflict:    http.StatusConflict,
	services.FailureState:       http.StatusConflict,
	services.FailureNotFound:    http.StatusNotFound,
	services.FailureUnavailable: http.StatusServiceUnavailable,
	services.FailureTimeout:     http.StatusGatewayTimeout,
	services.FailureBackend:     http.StatusBadGateway,
}

// statusFor maps an action result to its HTTP status.
func statusFor(r services.ActionResult) int {
	if r.Success {
		return http.StatusOK
	}
	if status, ok := failureStatus[r.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// respond writes an action result as JSON with the matching status.
func respond(c *gin.Context, r services.ActionResult) {
	c.JSON(statusFor(r), r)
}

// malformed answers a body that could not be decoded at all.
func malformed(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, services.ActionResult{
		Message: "The request body could not be read.",
		Errors:  map[string]string{"_": err.Error()},
	})
}

func markFallback(c *gin.Context, fallback bool) {
	if fallback {
		c.Header(middleware.FallbackHeader, "fallback")
	}
}
