package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileInput is what members may change about themselves.
type ProfileInput struct {
	FullName        string `json:"full_name" validate:"required,max=120"`
	Organisation    string `json:"organisation" validate:"max=120"`
	Title           string `json:"title" validate:"max=120"`
	Phone           string `json:"phone" validate:"max=40"`
	Location        string `json:"location" validate:"max=120"`
	Sector          string `json:"sector" validate:"max=120"`
	JobLevel        string `json:"job_level" validate:"max=120"`
	LinkedIn        string `json:"linkedin" validate:"omitempty,url"`
	AvatarURL       string `json:"avatar_url"`
	ShowInDirectory *bool  `json:"show_in_directory"`
}

func (in ProfileInput) updates() map[string]any {
	u := map[string]any{
		"full_name":    strings.TrimSpace(in.FullName),
		"organisation": in.Organisation,
		"title":        in.Title,
		"phone":        in.Phone,
		"location":     in.Location,
		"sector":       in.Sector,
		"job_level":    in.JobLevel,
		"linkedin":     in.LinkedIn,
		"avatar_url":   in.AvatarURL,
	}
	if in.ShowInDirectory != nil {
		u["show_in_directory"] = *in.ShowInDirectory
	}
	return u
}

// MemberInput is the administrator's edit form, which can also change the
// contact email.
type MemberInput struct {
	ProfileInput
	Email string `json:"email" validate:"omitempty,email"`
}

func (s *AdminService) UpdateMemberStatus(ctx context.Context, id, status string) ActionResult {
	st := models.ProfileStatus(status)
	if !st.Valid() {
		return invalid(map[string]string{"status": "Must be one of: pending approved rejected suspended closed."})
	}
	r := s.updateProfile(ctx, "member.status", id, map[string]any{"status": st})
	if r.Success {
		r.Message = "Member status set to " + status + "."
	}
	return r
}

// UpdateMemberRole changes a member's role. Administrators cannot demote
// themselves.
func (s *AdminService) UpdateMemberRole(ctx context.Context, actor uuid.UUID, id, role string) ActionResult {
	r := models.Role(role)
	if !r.Valid() {
		return invalid(map[string]string{"role": "Must be one of: member editor admin."})
	}
	if uid, err := uuid.Parse(id); err == nil && uid == actor && r != models.RoleAdmin {
		return failed(FailureState, "You cannot remove your own admin role.")
	}
	res := s.updateProfile(ctx, "member.role", id, map[string]any{"role": r})
	if res.Success {
		res.Message = "Member role set to " + role + "."
	}
	return res
}

func (s *AdminService) AdminUpdateMember(ctx context.Context, id string, in MemberInput) ActionResult {
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}
	u := in.updates()
	if in.Email != "" {
		u["email"] = normalizeEmail(in.Email)
	}
	res := s.updateProfile(ctx, "member.update", id, u)
	if res.Success {
		res.Message = "Member updated."
	}
	return res
}

func (s *AdminService) updateProfile(ctx context.Context, op, id string, updates map[string]any) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", uid).Updates(updates)
	if result.Error != nil {
		return failure(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return failure(op, gorm.ErrRecordNotFound)
	}

	invalidate(ctx, s.cache, cache.TagMembers)
	r := succeeded("")
	r.ID = uid.String()
	return r
}

// UpdateMyProfile is the self-service edit. It runs under the caller's
// own row-level scope and cannot touch role, status or email.
func (s *AdminService) UpdateMyProfile(ctx context.Context, identity uuid.UUID, in ProfileInput) ActionResult {
	if !s.backend.Configured() {
		return failed(FailureUnavailable, "Profile editing is unavailable right now.")
	}
	if identity == uuid.Nil {
		return failed(FailureState, "You must be signed in.")
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.backend.ScopedWrite(ctx, identity, func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).Where("id = ?", identity).Updates(in.updates())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return failure("profile.update", err)
	}

	invalidate(ctx, s.cache, cache.TagMembers)
	return succeeded("Profile updated.")
}

// SendPasswordResetLink emails a recovery link to a member.
func (s *AdminService) SendPasswordResetLink(ctx context.Context, id string) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if s.auth == nil || !s.auth.Configured() {
		return failed(FailureUnavailable, "Password resets are unavailable: authentication is not configured.")
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var profile models.Profile
	if err := db.WithContext(ctx).First(&profile, "id = ?", uid).Error; err != nil {
		return failure("member.reset", err)
	}
	email := profile.Email
	if email == "" {
		if user, err := s.auth.GetUserByID(ctx, uid); err == nil {
			email = user.Email
		}
	}
	if email == "" {
		return failed(FailureNotFound, "This member has no email address.")
	}

	link, err := s.auth.GenerateRecoveryLink(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return failed(FailureNotFound, "No login account exists for this member.")
	}
	if err != nil {
		return failure("member.reset", err)
	}
	if err := s.mailer.SendPasswordReset(email, profile.FullName, link); err != nil {
		return failure("member.reset", err)
	}
	return succeeded("Password reset link sent to " + email + ".")
}
