package handlers

import (
	"net/http"
	"testing"

	"github.com/gcforum/portal/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind services.FailureKind
		want int
	}{
		{services.FailureValidation, http.StatusUnprocessableEntity},
		{services.FailureConflict, http.StatusConflict},
		{services.FailureState, http.StatusConflict},
		{services.FailureNotFound, http.StatusNotFound},
		{services.FailureUnavailable, http.StatusServiceUnavailable},
		{services.FailureTimeout, http.StatusGatewayTimeout},
		{services.FailureBackend, http.StatusBadGateway},
		{"", http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(services.ActionResult{Kind: tt.kind}), tt.kind)
	}
	assert.Equal(t, http.StatusOK, statusFor(services.ActionResult{Success: true}))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/resources", safeNext("/resources", "/"))
	assert.Equal(t, "/", safeNext("https://evil.example/", "/"))
	assert.Equal(t, "/", safeNext("//evil.example", "/"))
	assert.Equal(t, "/", safeNext(`/\evil.example`, "/"))
	assert.Equal(t, "/account", safeNext("", "/account"))
}
