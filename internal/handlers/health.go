package handlers

import (
	"net/http"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	backend *database.Backend
	config  *config.Config
}

func NewHealthHandler(backend *database.Backend, cfg *config.Config) *HealthHandler {
	return &HealthHandler{backend: backend, config: cfg}
}

// Health reports the capability tier. An unconfigured store is a valid
// state, so the check is always 200.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"tier":            h.config.Tier().String(),
		"db_connected":    h.backend.Configured(),
		"auth_configured": h.config.AuthConfigured(),
	})
}
