package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartnerInput struct {
	ID         string `json:"id" validate:"omitempty,uuid"`
	Name       string `json:"name" validate:"required,max=120"`
	Title      string `json:"title" validate:"max=120"`
	Bio        string `json:"bio"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	LinkedIn   string `json:"linkedin" validate:"omitempty,url"`
	AvatarURL  string `json:"avatar_url"`
	OrderIndex *int   `json:"order_index"`
	ShowOnTeam bool   `json:"show_on_team"`
	IsAuthor   bool   `json:"is_author"`
}

type PartnerOrder struct {
	ID         string `json:"id" validate:"required,uuid"`
	OrderIndex int    `json:"order_index"`
}

// UpsertPartner creates or updates a partner. New partners without an
// explicit position go to the end of the list.
func (s *AdminService) UpsertPartner(ctx context.Context, in PartnerInput) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var partner models.Partner
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ID != "" {
			if err := tx.First(&partner, "id = ?", in.ID).Error; err != nil {
				return err
			}
		}

		switch {
		case in.OrderIndex != nil:
			partner.OrderIndex = *in.OrderIndex
		case in.ID == "":
			var next int
			if err := tx.Model(&models.Partner{}).Select("COALESCE(MAX(order_index), -1) + 1").Scan(&next).Error; err != nil {
				return err
			}
			partner.OrderIndex = next
		}

		partner.Name = strings.TrimSpace(in.Name)
		partner.Title = in.Title
		partner.Bio = in.Bio
		partner.Email = in.Email
		partner.Phone = in.Phone
		partner.LinkedIn = in.LinkedIn
		partner.AvatarURL = in.AvatarURL
		partner.ShowOnTeam = in.ShowOnTeam
		partner.IsAuthor = in.IsAuthor
		return tx.Save(&partner).Error
	})
	if err != nil {
		return failure("partner.upsert", err)
	}

	invalidate(ctx, s.cache, cache.TagPartners, cache.TagResources, cache.TagHome)
	r := succeeded("Team member saved.")
	r.ID = partner.ID.String()
	return r
}

// DeletePartner removes a partner and its author credits.
func (s *AdminService) DeletePartner(ctx context.Context, id string) ActionResult {
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
		for _, table := range []string{"article_authors", "video_authors"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE partner_id = ?", uid).Error; err != nil {
				return err
			}
		}
		return deleteByID(tx, &models.Partner{}, uid)
	})
	if err != nil {
		return failure("partner.delete", err)
	}

	invalidate(ctx, s.cache, cache.TagPartners, cache.TagResources, cache.TagHome)
	return succeeded("Team member deleted.")
}

// ReorderPartners writes every position in one transaction; if any row
// fails, none change.
func (s *AdminService) ReorderPartners(ctx context.Context, order []PartnerOrder) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if len(order) == 0 {
		return required("order")
	}
	ids := make([]uuid.UUID, len(order))
	seen := map[uuid.UUID]bool{}
	for i, o := range order {
		if errs := validateStruct(o); errs != nil {
			return invalid(map[string]string{fmt.Sprintf("order[%d].id", i): "Must be a valid id."})
		}
		ids[i] = uuid.MustParse(o.ID)
		if seen[ids[i]] {
			return invalid(map[string]string{fmt.Sprintf("order[%d].id", i): "Listed more than once."})
		}
		seen[ids[i]] = true
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, o := range order {
			res := tx.Model(&models.Partner{}).Where("id = ?", ids[i]).Update("order_index", o.OrderIndex)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("partner %s: %w", ids[i], gorm.ErrRecordNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return failure("partner.reorder", err)
	}

	// Resource pages list their authors by order_index.
	invalidate(ctx, s.cache, cache.TagPartners, cache.TagResources, cache.TagHome)
	return succeeded("Order saved.")
}
