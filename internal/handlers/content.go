package handlers

import (
	"net/http"

	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/models"
	"github.com/gcforum/portal/internal/policy"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
)

// ContentHandler serves the public read paths. Reads never fail: when
// the store is unavailable the services answer from built-in data or
// empty lists.
type ContentHandler struct {
	contentService *services.ContentService
	eventService   *services.EventService
	partnerService *services.PartnerService
	homeService    *services.HomeService
}

func NewContentHandler(content *services.ContentService, events *services.EventService, partners *services.PartnerService, home *services.HomeService) *ContentHandler {
	return &ContentHandler{
		contentService: content,
		eventService:   events,
		partnerService: partners,
		homeService:    home,
	}
}

func (h *ContentHandler) ListResources(c *gin.Context) {
	var q services.ResourceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page := h.contentService.GetResources(c.Request.Context(), q)
	markFallback(c, page.Fallback)
	c.JSON(http.StatusOK, page)
}

func (h *ContentHandler) GetResource(c *gin.Context) {
	item, ok := h.contentService.GetResourceBySlug(c.Request.Context(), c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": item})
}

func (h *ContentHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.contentService.ListCategories(c.Request.Context())})
}

func (h *ContentHandler) ListEvents(c *gin.Context) {
	var q services.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.eventService.GetEvents(c.Request.Context(), q))
}

// GetEvent returns a published event. Editors may also preview drafts;
// those responses are marked private so they are never cached.
func (h *ContentHandler) GetEvent(c *gin.Context) {
	role, _ := middleware.GetUserRole(c)
	preview := policy.CanAccess(models.RoleEditor, role)
	if preview {
		c.Header("Cache-Control", "private, no-store")
	}

	event, ok := h.eventService.GetEventBySlug(c.Request.Context(), c.Param("slug"), preview)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (h *ContentHandler) ListPartners(c *gin.Context) {
	var q services.PartnerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": h.partnerService.GetPartners(c.Request.Context(), q)})
}

func (h *ContentHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, h.homeService.GetHomepage(c.Request.Context()))
}
