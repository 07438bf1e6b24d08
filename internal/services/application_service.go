package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inviter is the part of the identity provider the review workflow uses.
type Inviter interface {
	InviteUserByEmail(ctx context.Context, email, name string) (*models.Identity, error)
	FindUserByEmail(ctx context.Context, email string) (*models.Identity, error)
}

// ApplicationInput is the public join form. Field names double as form
// keys.
type ApplicationInput struct {
	FullName         string `json:"full_name" schema:"full_name" validate:"required,max=120"`
	Email            string `json:"email" schema:"email" validate:"required,email"`
	Phone            string `json:"phone" schema:"phone" validate:"max=40"`
	Organisation     string `json:"organisation" schema:"organisation" validate:"required,max=120"`
	Title            string `json:"title" schema:"title" validate:"max=120"`
	Location         string `json:"location" schema:"location" validate:"max=120"`
	Sector           string `json:"sector" schema:"sector" validate:"max=120"`
	JobLevel         string `json:"job_level" schema:"job_level" validate:"max=120"`
	TeamSize         string `json:"team_size" schema:"team_size" validate:"max=40"`
	LinkedIn         string `json:"linkedin" schema:"linkedin" validate:"omitempty,url"`
	Message          string `json:"message" schema:"message" validate:"max=2000"`
	ConsentDirectory bool   `json:"consent_directory" schema:"consent_directory"`
	ConsentTerms     bool   `json:"consent_terms" schema:"consent_terms" validate:"required"`
}

type ReviewInput struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type ApplicationService struct {
	backend *database.Backend
	config  *config.Config
	cache   cache.Store
	inviter Inviter
	mailer  Mailer
	now     func() time.Time
}

func NewApplicationService(backend *database.Backend, cfg *config.Config, store cache.Store, inviter Inviter, mailer Mailer) *ApplicationService {
	return &ApplicationService{
		backend: backend,
		config:  cfg,
		cache:   store,
		inviter: inviter,
		mailer:  mailer,
		now:     time.Now,
	}
}

// SubmitApplication records a join request. One pending application per
// email is allowed.
func (s *ApplicationService) SubmitApplication(ctx context.Context, in ApplicationInput) ActionResult {
	db := s.backend.Reader()
	if db == nil {
		return failed(FailureUnavailable, "Applications cannot be accepted right now. Please try again later.")
	}
	if errs := validateStruct(in); errs != nil {
		if _, ok := errs["consent_terms"]; ok {
			errs["consent_terms"] = "You must accept the terms to apply."
		}
		return invalid(errs)
	}

	ctx, cancel := withMutationTimeout(ctx, s.config)
	defer cancel()

	email := normalizeEmail(in.Email)
	app := models.MemberApplication{
		FullName:         strings.TrimSpace(in.FullName),
		Email:            email,
		Phone:            in.Phone,
		Organisation:     in.Organisation,
		Title:            in.Title,
		Location:         in.Location,
		Sector:           in.Sector,
		JobLevel:         in.JobLevel,
		TeamSize:         in.TeamSize,
		LinkedIn:         in.LinkedIn,
		Message:          in.Message,
		ConsentDirectory: in.ConsentDirectory,
		ConsentTerms:     in.ConsentTerms,
		Status:           models.ApplicationStatusPending,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		err := tx.Model(&models.MemberApplication{}).
			Where("email = ? AND status = ?", email, models.ApplicationStatusPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return errDuplicateApplication
		}
		return tx.Create(&app).Error
	})
	if errors.Is(err, errDuplicateApplication) {
		return failed(FailureConflict, "An application for this email is already being reviewed.")
	}
	if err != nil {
		logger.Backend("application.submit", err)
		return failed(FailureBackend, "We could not save your application. Please try again.")
	}

	if err := s.mailer.SendApplicationReceived(email, app.FullName); err != nil {
		logger.Op("application.submit").WithError(err).Warn("acknowledgement email not sent")
	}
	invalidate(ctx, s.cache, cache.TagApplications)
	r := succeeded("Thank you. Your application has been received.")
	r.ID = app.ID.String()
	return r
}

var errDuplicateApplication = errors.New("duplicate pending application")

// ListApplications returns applications newest first, optionally by status.
func (s *ApplicationService) ListApplications(ctx context.Context, status string) []models.MemberApplication {
	db := s.backend.Service()
	if db == nil {
		db = s.backend.Reader()
	}
	if db == nil {
		return []models.MemberApplication{}
	}

	tx := db.WithContext(ctx)
	switch st := models.ApplicationStatus(status); st {
	case models.ApplicationStatusPending, models.ApplicationStatusApproved, models.ApplicationStatusRejected:
		tx = tx.Where("status = ?", st)
	}
	apps := []models.MemberApplication{}
	if err := tx.Order("created_at DESC").Find(&apps).Error; err != nil {
		logger.Backend("application.list", err)
		return []models.MemberApplication{}
	}
	return apps
}

// ReviewApplication approves or rejects a pending application, once.
//
// Approval first makes sure the applicant has a usable account: an
// invitation is sent, an existing registration is reused, and failing
// both a profile with the same email is adopted. The profile is then
// filled from the application and approved. The application itself is
// marked reviewed last, in the same transaction as the profile write, so
// a failed approval leaves it pending and safe to retry.
func (s *ApplicationService) ReviewApplication(ctx context.Context, reviewer uuid.UUID, id string, in ReviewInput) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}

	ctx, cancel := withMutationTimeout(ctx, s.config)
	defer cancel()

	var app models.MemberApplication
	if err := db.WithContext(ctx).First(&app, "id = ?", uid).Error; err != nil {
		return failure("application.review", err)
	}
	if app.Status != models.ApplicationStatusPending {
		return failure("application.review", errAlreadyReviewed)
	}

	if in.Decision == "reject" {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.markReviewed(tx, &app, models.ApplicationStatusRejected, reviewer, in.Notes)
		})
		if err != nil {
			return failure("application.review", err)
		}
		if err := s.mailer.SendApplicationRejected(app.Email, app.FullName); err != nil {
			logger.Op("application.review").WithError(err).Warn("rejection email not sent")
		}
		invalidate(ctx, s.cache, cache.TagApplications)
		return succeeded("Application rejected.")
	}

	profileID, duplicate, result := s.resolveApplicant(ctx, db, &app)
	if result != nil {
		return *result
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.approveProfile(tx, profileID, &app); err != nil {
			return err
		}
		return s.markReviewed(tx, &app, models.ApplicationStatusApproved, reviewer, in.Notes)
	})
	if err != nil {
		return failure("application.review", err)
	}

	invalidate(ctx, s.cache, cache.TagApplications, cache.TagMembers)
	r := succeeded("Application approved and invitation sent.")
	if duplicate {
		r.Message = "Application approved. The applicant already had an account, so no invitation was sent."
	}
	r.ID = profileID.String()
	return r
}

// resolveApplicant finds the account an approval attaches to. duplicate
// reports that the email was already registered.
func (s *ApplicationService) resolveApplicant(ctx context.Context, db *gorm.DB, app *models.MemberApplication) (uuid.UUID, bool, *ActionResult) {
	email := normalizeEmail(app.Email)
	duplicate := false

	identity, err := s.inviter.InviteUserByEmail(ctx, email, app.FullName)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRegistered):
		duplicate = true
		identity, err = s.inviter.FindUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			r := failure("application.review", err)
			return uuid.Nil, duplicate, &r
		}
	case errors.Is(err, ErrAuthUnavailable):
		r := failed(FailureUnavailable, "Invitations are unavailable: authentication is not configured.")
		return uuid.Nil, false, &r
	default:
		r := failure("application.review", err)
		return uuid.Nil, false, &r
	}
	if identity != nil {
		return identity.ID, duplicate, nil
	}

	var profile models.Profile
	err = db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&profile).Error
	if err == nil {
		return profile.ID, duplicate, nil
	}
	if !database.IsNotFound(err) {
		r := failure("application.review", err)
		return uuid.Nil, duplicate, &r
	}

	r := failed(FailureNotFound, "We couldn't locate an account for this applicant.")
	return uuid.Nil, duplicate, &r
}

// approveProfile creates or updates the profile from the application.
// An existing role is kept.
func (s *ApplicationService) approveProfile(tx *gorm.DB, id uuid.UUID, app *models.MemberApplication) error {
	var profile models.Profile
	res := tx.Where("id = ?", id).Limit(1).Find(&profile)
	if res.Error != nil {
		return res.Error
	}
	exists := res.RowsAffected > 0
	if !exists {
		profile = models.Profile{ID: id, Role: models.RoleMember}
	}

	profile.FullName = app.FullName
	profile.Email = normalizeEmail(app.Email)
	profile.Phone = app.Phone
	profile.Organisation = app.Organisation
	profile.Title = app.Title
	profile.Location = app.Location
	profile.Sector = app.Sector
	profile.JobLevel = app.JobLevel
	profile.LinkedIn = app.LinkedIn
	profile.ShowInDirectory = app.ConsentDirectory
	profile.Status = models.ProfileStatusApproved

	if exists {
		return tx.Save(&profile).Error
	}
	return tx.Create(&profile).Error
}

// markReviewed moves the application out of pending. The status guard in
// the update makes a concurrent second review fail instead of overwrite.
func (s *ApplicationService) markReviewed(tx *gorm.DB, app *models.MemberApplication, status models.ApplicationStatus, reviewer uuid.UUID, notes string) error {
	now := s.now()
	var reviewerID *uuid.UUID
	if reviewer != uuid.Nil {
		reviewerID = &reviewer
	}

	res := tx.Model(&models.MemberApplication{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
		Updates(map[string]any{
			"status":         status,
			"reviewer_id":    reviewerID,
			"reviewer_notes": notes,
			"reviewed_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errAlreadyReviewed
	}
	app.Status = status
	app.ReviewerID = reviewerID
	app.ReviewerNotes = notes
	app.ReviewedAt = &now
	return nil
}
