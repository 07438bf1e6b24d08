package handlers

import (
	"net/http"

	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MemberHandler struct {
	directoryService *services.DirectoryService
}

func NewMemberHandler(directory *services.DirectoryService) *MemberHandler {
	return &MemberHandler{directoryService: directory}
}

// ListMembers is the members-only directory: approved, listed profiles.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	var q services.MemberQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page := h.directoryService.GetMembers(c.Request.Context(), q)
	markFallback(c, page.Fallback)
	c.JSON(http.StatusOK, page)
}

func (h *MemberHandler) GetMember(c *gin.Context) {
	h.getMember(c, false)
}

// AdminListMembers lists every profile regardless of status or
// visibility.
func (h *MemberHandler) AdminListMembers(c *gin.Context) {
	var q services.MemberQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.IncludeAllStatuses = true
	q.IncludeHidden = true

	page := h.directoryService.GetMembers(c.Request.Context(), q)
	markFallback(c, page.Fallback)
	c.JSON(http.StatusOK, page)
}

func (h *MemberHandler) AdminGetMember(c *gin.Context) {
	h.getMember(c, true)
}

func (h *MemberHandler) getMember(c *gin.Context, includeHidden bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID"})
		return
	}

	member, ok := h.directoryService.GetMemberByID(c.Request.Context(), id, includeHidden)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}
