package handlers

import (
	"net/http"

	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
)

// AdminHandler is the CMS surface. Route groups decide who may call what:
// content for editors, people and applications for admins.
type AdminHandler struct {
	adminService   *services.AdminService
	contentService *services.ContentService
	eventService   *services.EventService
	partnerService *services.PartnerService
}

func NewAdminHandler(admin *services.AdminService, content *services.ContentService, events *services.EventService, partners *services.PartnerService) *AdminHandler {
	return &AdminHandler{
		adminService:   admin,
		contentService: content,
		eventService:   events,
		partnerService: partners,
	}
}

// GetDashboardStats returns portal statistics
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.adminService.DashboardStats(c.Request.Context())})
}

// Articles

func (h *AdminHandler) ListArticles(c *gin.Context) {
	items := h.contentService.AdminListArticles(c.Request.Context(), c.Query("status"), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"articles": items})
}

func (h *AdminHandler) CreateArticle(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = ""
	created(c, h.adminService.UpsertResourceArticle(c.Request.Context(), in))
}

func (h *AdminHandler) UpdateArticle(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = c.Param("id")
	respond(c, h.adminService.UpsertResourceArticle(c.Request.Context(), in))
}

func (h *AdminHandler) DeleteArticle(c *gin.Context) {
	respond(c, h.adminService.DeleteResourceArticle(c.Request.Context(), c.Param("id")))
}

// Videos

func (h *AdminHandler) ListVideos(c *gin.Context) {
	items := h.contentService.AdminListVideos(c.Request.Context(), c.Query("status"), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"videos": items})
}

func (h *AdminHandler) CreateVideo(c *gin.Context) {
	var in services.VideoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = ""
	created(c, h.adminService.UpsertResourceVideo(c.Request.Context(), in))
}

func (h *AdminHandler) UpdateVideo(c *gin.Context) {
	var in services.VideoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = c.Param("id")
	respond(c, h.adminService.UpsertResourceVideo(c.Request.Context(), in))
}

func (h *AdminHandler) DeleteVideo(c *gin.Context) {
	respond(c, h.adminService.DeleteResourceVideo(c.Request.Context(), c.Param("id")))
}

// Events

func (h *AdminHandler) ListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": h.eventService.AdminListEvents(c.Request.Context(), c.Query("status"))})
}

func (h *AdminHandler) CreateEvent(c *gin.Context) {
	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = ""
	created(c, h.adminService.UpsertEvent(c.Request.Context(), in))
}

func (h *AdminHandler) UpdateEvent(c *gin.Context) {
	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = c.Param("id")
	respond(c, h.adminService.UpsertEvent(c.Request.Context(), in))
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AdminHandler) UpdateEventStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		malformed(c, err)
		return
	}
	respond(c, h.adminService.UpdateEventStatus(c.Request.Context(), c.Param("id"), req.Status))
}

func (h *AdminHandler) DeleteEvent(c *gin.Context) {
	respond(c, h.adminService.DeleteEvent(c.Request.Context(), c.Param("id")))
}

// Partners

func (h *AdminHandler) ListPartners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"partners": h.partnerService.GetPartners(c.Request.Context(), services.PartnerQuery{})})
}

func (h *AdminHandler) CreatePartner(c *gin.Context) {
	var in services.PartnerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = ""
	created(c, h.adminService.UpsertPartner(c.Request.Context(), in))
}

func (h *AdminHandler) UpdatePartner(c *gin.Context) {
	var in services.PartnerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	in.ID = c.Param("id")
	respond(c, h.adminService.UpsertPartner(c.Request.Context(), in))
}

func (h *AdminHandler) DeletePartner(c *gin.Context) {
	respond(c, h.adminService.DeletePartner(c.Request.Context(), c.Param("id")))
}

type ReorderRequest struct {
	Order []services.PartnerOrder `json:"order"`
}

func (h *AdminHandler) ReorderPartners(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		malformed(c, err)
		return
	}
	respond(c, h.adminService.ReorderPartners(c.Request.Context(), req.Order))
}

// Members

func (h *AdminHandler) UpdateMember(c *gin.Context) {
	var in services.MemberInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	respond(c, h.adminService.AdminUpdateMember(c.Request.Context(), c.Param("id"), in))
}

func (h *AdminHandler) UpdateMemberStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		malformed(c, err)
		return
	}
	respond(c, h.adminService.UpdateMemberStatus(c.Request.Context(), c.Param("id"), req.Status))
}

type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) UpdateMemberRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		malformed(c, err)
		return
	}
	actor, _ := middleware.GetUserID(c)
	respond(c, h.adminService.UpdateMemberRole(c.Request.Context(), actor, c.Param("id"), req.Role))
}

func (h *AdminHandler) SendPasswordReset(c *gin.Context) {
	respond(c, h.adminService.SendPasswordResetLink(c.Request.Context(), c.Param("id")))
}

// created answers a successful create with 201.
func created(c *gin.Context, r services.ActionResult) {
	if r.Success {
		c.JSON(http.StatusCreated, r)
		return
	}
	respond(c, r)
}
