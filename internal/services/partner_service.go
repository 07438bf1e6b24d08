package services

import (
	"context"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
)

type PartnerQuery struct {
	TeamOnly    bool `form:"team" json:"team"`
	AuthorsOnly bool `form:"authors" json:"authors"`
}

type PartnerService struct {
	backend *database.Backend
}

func NewPartnerService(backend *database.Backend) *PartnerService {
	return &PartnerService{backend: backend}
}

// GetPartners returns partners in display order. Failures yield an empty list.
func (s *PartnerService) GetPartners(ctx context.Context, q PartnerQuery) []models.Partner {
	partners, err := s.list(ctx, q)
	if err != nil {
		logger.Backend("partners.list", err)
		return []models.Partner{}
	}
	return partners
}

func (s *PartnerService) list(ctx context.Context, q PartnerQuery) ([]models.Partner, error) {
	db := s.backend.Reader()
	if db == nil {
		return []models.Partner{}, nil
	}

	tx := db.WithContext(ctx)
	if q.TeamOnly {
		tx = tx.Where("show_on_team = ?", true)
	}
	if q.AuthorsOnly {
		tx = tx.Where("is_author = ?", true)
	}
	partners := []models.Partner{}
	if err := tx.Order("order_index ASC").Order("name ASC").Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}
