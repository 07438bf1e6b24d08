package handlers

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	// HTML checkboxes post "on".
	d.RegisterConverter(false, func(s string) reflect.Value {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "yes", "true", "1":
			return reflect.ValueOf(true)
		}
		return reflect.ValueOf(false)
	})
	return d
}

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applications}
}

// Submit accepts the public join form as JSON or as a posted form.
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var in services.ApplicationInput
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&in); err != nil {
			malformed(c, err)
			return
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			malformed(c, err)
			return
		}
		if err := formDecoder.Decode(&in, c.Request.PostForm); err != nil {
			malformed(c, err)
			return
		}
	}

	r := h.applicationService.SubmitApplication(c.Request.Context(), in)
	if r.Success {
		c.JSON(http.StatusCreated, r)
		return
	}
	respond(c, r)
}

func (h *ApplicationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"applications": h.applicationService.ListApplications(c.Request.Context(), c.Query("status"))})
}

func (h *ApplicationHandler) Review(c *gin.Context) {
	var in services.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	reviewer, _ := middleware.GetUserID(c)
	respond(c, h.applicationService.ReviewApplication(c.Request.Context(), reviewer, c.Param("id"), in))
}
