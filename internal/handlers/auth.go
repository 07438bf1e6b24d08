package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/middleware"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService  *services.AuthService
	adminService *services.AdminService
	config       *config.Config
}

func NewAuthHandler(authService *services.AuthService, adminService *services.AdminService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		adminService: adminService,
		config:       cfg,
	}
}

// SignInRequest represents password sign-in input
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignIn handles password authentication and sets the session cookies
func (h *AuthHandler) SignIn(c *gin.Context) {
	if !h.authService.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication is not configured"})
		return
	}

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	session, err := h.authService.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	default:
		logger.Backend("auth.signin", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed. Please try again."})
		return
	}

	services.SetSessionCookies(c.Writer, h.config, session)
	c.JSON(http.StatusOK, gin.H{"user": session.User, "expires_at": session.ExpiresAt})
}

// Logout ends the session. It succeeds for callers that are already
// signed out.
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, ok := middleware.GetUserID(c); ok {
		if err := h.authService.SignOut(c.Request.Context(), userID); err != nil {
			logger.Backend("auth.logout", err)
		}
	}
	services.ClearSessionCookies(c.Writer, h.config)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MagicLink emails a one-time sign-in link. The answer is the same
// whether or not the address has an account.
func (h *AuthHandler) MagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	err := h.authService.SendMagicLink(c.Request.Context(), req.Email)
	if errors.Is(err, services.ErrAuthUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sign-in links are unavailable right now"})
		return
	}
	if err != nil {
		logger.Backend("auth.magic_link", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If that address has an account, a sign-in link is on its way."})
}

// Callback redeems a sign-in or recovery link and redirects into the
// site. Recovery links land on the password form.
func (h *AuthHandler) Callback(c *gin.Context) {
	session, err := h.authService.VerifyOneTimeToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		if !errors.Is(err, services.ErrInvalidToken) && !errors.Is(err, services.ErrAuthUnavailable) {
			logger.Backend("auth.callback", err)
		}
		c.Redirect(http.StatusSeeOther, "/login?error=link_invalid")
		return
	}

	services.SetSessionCookies(c.Writer, h.config, session)
	next := safeNext(c.Query("next"), "/dashboard")
	if c.Query("type") == "recovery" {
		next = "/account/password"
	}
	c.Redirect(http.StatusSeeOther, next)
}

// safeNext only allows same-site relative paths.
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

type AcceptInviteRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AcceptInvite sets the first password for an invited account
func (h *AuthHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token and password are required"})
		return
	}

	session, err := h.authService.AcceptInvite(c.Request.Context(), req.Token, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrWeakPassword):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This invitation link is invalid or has already been used"})
		return
	case errors.Is(err, services.ErrAuthUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Invitations are unavailable right now"})
		return
	default:
		logger.Backend("auth.accept_invite", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not activate your account. Please try again."})
		return
	}

	services.SetSessionCookies(c.Writer, h.config, session)
	c.JSON(http.StatusOK, gin.H{"user": session.User})
}

// GetCurrentUser returns the signed-in identity and its profile
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    userID,
			"email": middleware.GetUserEmail(c),
		},
		"profile": middleware.CurrentProfile(c),
	})
}

// UpdateProfile is the member's own profile edit
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		malformed(c, err)
		return
	}
	userID, _ := middleware.GetUserID(c)
	respond(c, h.adminService.UpdateMyProfile(c.Request.Context(), userID, in))
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ChangePassword replaces the signed-in user's password within
// PASSWORD_UPDATE_TIMEOUT.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A new password is required"})
		return
	}
	userID, _ := middleware.GetUserID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.PasswordUpdateTimeout)
	defer cancel()

	err := h.authService.UpdatePassword(ctx, userID, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated."})
	case errors.Is(err, services.ErrPasswordTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Password update timed out. Please try again."})
	case errors.Is(err, services.ErrWeakPassword):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAuthUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Password changes are unavailable right now"})
	default:
		logger.Backend("auth.password", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update your password. Please try again."})
	}
}
