package services

import (
	"context"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileResolver struct {
	backend *database.Backend
}

func NewProfileResolver(backend *database.Backend) *ProfileResolver {
	return &ProfileResolver{backend: backend}
}

// Resolve loads the profile for identity under the caller's own row-level
// scope. When that read is denied, and only then, it retries once with
// the service credential. It never returns an error: absent, denied and
// failed reads all come back nil.
func (r *ProfileResolver) Resolve(ctx context.Context, identity uuid.UUID) *models.Profile {
	if identity == uuid.Nil {
		return nil
	}

	var profile models.Profile
	err := r.backend.ScopedRead(ctx, identity, func(tx *gorm.DB) error {
		return tx.First(&profile, "id = ?", identity).Error
	})

	switch database.Classify(err) {
	case database.KindNone:
		return &profile
	case database.KindNotFound, database.KindUnavailable:
		return nil
	case database.KindPermissionDenied:
		return r.privilegedRead(ctx, identity)
	default:
		logger.Backend("profile.resolve", err)
		return nil
	}
}

// privilegedRead is the one read allowed to bypass row-level security on
// behalf of a member. Every use is logged for audit.
func (r *ProfileResolver) privilegedRead(ctx context.Context, identity uuid.UUID) *models.Profile {
	entry := logger.Op("profile.resolve").WithField("identity", identity.String())

	db := r.backend.Service()
	if db == nil {
		entry.Warn("profile read denied and no service credential is configured")
		return nil
	}
	entry.Warn("profile read denied under row-level security, using service credential")

	var profile models.Profile
	if err := db.WithContext(ctx).First(&profile, "id = ?", identity).Error; err != nil {
		if !database.IsNotFound(err) {
			logger.Backend("profile.resolve.privileged", err)
		}
		return nil
	}
	return &profile
}
