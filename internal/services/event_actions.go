package services

import (
	"context"
	"strings"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventResourceInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	FileURL  string `json:"file_url" validate:"required"`
	FileSize int64  `json:"file_size" validate:"min=0"`
	FileType string `json:"file_type"`
}

type EventInput struct {
	ID               string               `json:"id" validate:"omitempty,uuid"`
	Title            string               `json:"title" validate:"required,max=200"`
	Slug             string               `json:"slug" validate:"max=200"`
	Status           models.ContentStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Summary          string               `json:"summary" validate:"max=500"`
	Description      string               `json:"description"`
	StartsAt         string               `json:"starts_at" validate:"required"`
	EndsAt           string               `json:"ends_at"`
	LocationName     string               `json:"location_name"`
	LocationAddress  string               `json:"location_address"`
	LocationCity     string               `json:"location_city"`
	IsOnline         bool                 `json:"is_online"`
	RegistrationURL  string               `json:"registration_url" validate:"omitempty,url"`
	RegistrationOpen bool                 `json:"registration_open"`
	Capacity         int                  `json:"capacity" validate:"min=0"`
	Image            string               `json:"image"`
	Resources        []EventResourceInput `json:"resources" validate:"dive"`
}

// UpsertEvent creates or updates an event and replaces its attachments.
func (s *AdminService) UpsertEvent(ctx context.Context, in EventInput) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}
	startsAt, err := parseOptionalDate(in.StartsAt)
	if err != nil || startsAt == nil {
		return invalid(map[string]string{"starts_at": "Use an RFC 3339 timestamp."})
	}
	endsAt, err := parseOptionalDate(in.EndsAt)
	if err != nil {
		return invalid(map[string]string{"ends_at": "Use an RFC 3339 timestamp."})
	}
	if endsAt != nil && endsAt.Before(*startsAt) {
		return invalid(map[string]string{"ends_at": "Must be after the start."})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var event models.Event
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ID != "" {
			if err := tx.First(&event, "id = ?", in.ID).Error; err != nil {
				return err
			}
		}

		slug := resolveSlug(in.Slug, in.Title, event.Slug)
		if slug == "" {
			return &fieldError{"slug", "Could not derive a slug from the title."}
		}
		var n int64
		if err := tx.Model(&models.Event{}).Where("slug = ? AND id <> ?", slug, event.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &slugTakenError{slug}
		}

		event.Slug = slug
		event.Title = strings.TrimSpace(in.Title)
		event.Status = statusOrDraft(in.Status)
		event.Summary = in.Summary
		event.Description = in.Description
		event.StartsAt = *startsAt
		event.EndsAt = endsAt
		event.LocationName = in.LocationName
		event.LocationAddress = in.LocationAddress
		event.LocationCity = in.LocationCity
		event.IsOnline = in.IsOnline
		event.RegistrationURL = in.RegistrationURL
		event.RegistrationOpen = in.RegistrationOpen
		event.Capacity = in.Capacity
		event.Image = in.Image
		event.Resources = nil

		if err := tx.Omit(clause.Associations).Save(&event).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventResource{}).Error; err != nil {
			return err
		}
		for _, r := range in.Resources {
			resource := models.EventResource{
				EventID:  event.ID,
				Title:    r.Title,
				FileURL:  r.FileURL,
				FileSize: r.FileSize,
				FileType: r.FileType,
			}
			if err := tx.Create(&resource).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return failure("event.upsert", err)
	}

	invalidate(ctx, s.cache, cache.TagEvents, cache.TagHome)
	r := succeeded("Event saved.")
	r.ID = event.ID.String()
	return r
}

func (s *AdminService) UpdateEventStatus(ctx context.Context, id string, status string) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}
	st := models.ContentStatus(status)
	if !st.Valid() {
		return invalid(map[string]string{"status": "Must be one of: draft published."})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", uid).Update("status", st)
	if result.Error != nil {
		return failure("event.status", result.Error)
	}
	if result.RowsAffected == 0 {
		return failure("event.status", gorm.ErrRecordNotFound)
	}

	invalidate(ctx, s.cache, cache.TagEvents, cache.TagHome)
	return succeeded("Event " + string(st) + ".")
}

func (s *AdminService) DeleteEvent(ctx context.Context, id string) ActionResult {
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

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", uid).Delete(&models.EventResource{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.Event{}, uid)
	})
	if err != nil {
		return failure("event.delete", err)
	}

	invalidate(ctx, s.cache, cache.TagEvents, cache.TagHome)
	return succeeded("Event deleted.")
}
