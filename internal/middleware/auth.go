package middleware

import (
	"net/http"

	"github.com/gcforum/portal/internal/models"
	"github.com/gcforum/portal/internal/policy"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	keyUserID    = "userID"
	keyUserEmail = "userEmail"
	keyProfiles  = "profileResolver"
	keyProfile   = "profile"
)

// Authenticate resolves the session cookies once per request. It never
// rejects: routes that need a user add RequireAuth or RequireRole.
func Authenticate(sessions *services.SessionResolver, profiles *services.ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if profiles != nil {
			c.Set(keyProfiles, profiles)
		}

		claims := sessions.Resolve(c.Writer, c.Request)
		if claims != nil {
			c.Set(keyUserID, claims.UserID)
			c.Set(keyUserEmail, claims.Email)
		}

		c.Next()
	}
}

// RequireAuth ensures there is a signed-in user
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole ensures the user has an approved profile whose role is at
// least required.
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		profile := CurrentProfile(c)
		if profile == nil || profile.Status != models.ProfileStatusApproved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Your membership is not active"})
			return
		}
		if !policy.CanAccess(required, profile.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		c.Next()
	}
}

func RequireMember() gin.HandlerFunc {
	return RequireRole(models.RoleMember)
}

func RequireEditor() gin.HandlerFunc {
	return RequireRole(models.RoleEditor)
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(keyUserID)
	if !exists {
		return uuid.Nil, false
	}
	return userID.(uuid.UUID), true
}

func GetUserEmail(c *gin.Context) string {
	return c.GetString(keyUserEmail)
}

// CurrentProfile loads the signed-in user's profile on first use and
// keeps it for the rest of the request. Nil when signed out or when no
// profile could be read.
func CurrentProfile(c *gin.Context) *models.Profile {
	if p, exists := c.Get(keyProfile); exists {
		return p.(*models.Profile)
	}

	var profile *models.Profile
	userID, ok := GetUserID(c)
	if r, exists := c.Get(keyProfiles); ok && exists {
		profile = r.(*services.ProfileResolver).Resolve(c.Request.Context(), userID)
	}
	c.Set(keyProfile, profile)
	return profile
}

// GetUserRole returns the role of the signed-in user's profile.
func GetUserRole(c *gin.Context) (models.Role, bool) {
	profile := CurrentProfile(c)
	if profile == nil {
		return "", false
	}
	return profile.Role, true
}
