package services

import (
	"context"

	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalMembers        int64 `json:"total_members"`
	ApprovedMembers     int64 `json:"approved_members"`
	PendingMembers      int64 `json:"pending_members"`
	PendingApplications int64 `json:"pending_applications"`
	PublishedArticles   int64 `json:"published_articles"`
	PublishedVideos     int64 `json:"published_videos"`
	UpcomingEvents      int64 `json:"upcoming_events"`
	Partners            int64 `json:"partners"`
}

// DashboardStats counts what the admin overview shows. Counts that fail
// are left at zero.
func (s *AdminService) DashboardStats(ctx context.Context) DashboardStats {
	var stats DashboardStats
	db := s.backend.Service()
	if db == nil {
		return stats
	}
	db = db.WithContext(ctx)
	now := s.now()

	counts := []struct {
		dst   *int64
		query func(tx *gorm.DB) *gorm.DB
	}{
		{&stats.TotalMembers, func(tx *gorm.DB) *gorm.DB { return tx.Model(&models.Profile{}) }},
		{&stats.ApprovedMembers, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Profile{}).Where("status = ?", models.ProfileStatusApproved)
		}},
		{&stats.PendingMembers, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Profile{}).Where("status = ?", models.ProfileStatusPending)
		}},
		{&stats.PendingApplications, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.MemberApplication{}).Where("status = ?", models.ApplicationStatusPending)
		}},
		{&stats.PublishedArticles, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Article{}).Where("status = ?", models.StatusPublished)
		}},
		{&stats.PublishedVideos, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Video{}).Where("status = ?", models.StatusPublished)
		}},
		{&stats.UpcomingEvents, func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Event{}).Where("status = ? AND starts_at >= ?", models.StatusPublished, now)
		}},
		{&stats.Partners, func(tx *gorm.DB) *gorm.DB { return tx.Model(&models.Partner{}) }},
	}

	var g errgroup.Group
	for _, c := range counts {
		g.Go(func() error {
			return c.query(db).Count(c.dst).Error
		})
	}
	if err := g.Wait(); err != nil {
		logger.Backend("admin.stats", err)
	}
	return stats
}
