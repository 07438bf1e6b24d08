package services

import (
	"context"
	"strings"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"gorm.io/gorm"
)

type EventQuery struct {
	When     string `form:"when" json:"when"` // upcoming, past or all
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"page_size" json:"page_size"`
}

type EventPage struct {
	Items      []models.Event `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

type EventService struct {
	backend *database.Backend
	config  *config.Config
	now     func() time.Time
}

func NewEventService(backend *database.Backend, cfg *config.Config) *EventService {
	return &EventService{backend: backend, config: cfg, now: time.Now}
}

// GetEvents lists published events. Upcoming events run soonest first,
// past and all run most recent first. Failures yield an empty page.
func (s *EventService) GetEvents(ctx context.Context, q EventQuery) EventPage {
	size := pageSize(q.PageSize, s.config.DefaultPageSize)
	empty := EventPage{Items: []models.Event{}, Pagination: Paginate(1, size, 0, s.config.MaxPageSize)}

	db := s.backend.Reader()
	if db == nil {
		return empty
	}
	now := s.now()

	scope := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&models.Event{}).Where("status = ?", models.StatusPublished)
		switch strings.ToLower(q.When) {
		case "past":
			return tx.Where("starts_at < ?", now)
		case "all":
			return tx
		default:
			return tx.Where("starts_at >= ?", now)
		}
	}

	var total int64
	if err := scope(db.WithContext(ctx)).Count(&total).Error; err != nil {
		logger.Backend("events.count", err)
		return empty
	}
	p := Paginate(q.Page, size, int(total), s.config.MaxPageSize)

	order := "starts_at DESC"
	if w := strings.ToLower(q.When); w != "past" && w != "all" {
		order = "starts_at ASC"
	}

	var events []models.Event
	err := scope(db.WithContext(ctx)).Preload("Resources").
		Order(order).Offset(p.Offset()).Limit(p.PageSize).
		Find(&events).Error
	if err != nil {
		logger.Backend("events.list", err)
		return empty
	}
	for i := range events {
		events[i].Derive(now)
	}
	if events == nil {
		events = []models.Event{}
	}
	return EventPage{Items: events, Pagination: p}
}

// GetEventBySlug returns a published event, or any event when
// includeDrafts is set.
func (s *EventService) GetEventBySlug(ctx context.Context, slug string, includeDrafts bool) (*models.Event, bool) {
	db := s.backend.Reader()
	if includeDrafts && s.backend.Privileged() {
		db = s.backend.Service()
	}
	if db == nil {
		return nil, false
	}

	tx := db.WithContext(ctx).Preload("Resources").Where("slug = ?", slug)
	if !includeDrafts {
		tx = tx.Where("status = ?", models.StatusPublished)
	}
	var event models.Event
	if err := tx.First(&event).Error; err != nil {
		if !database.IsNotFound(err) {
			logger.Backend("events.get", err)
		}
		return nil, false
	}
	event.Derive(s.now())
	return &event, true
}

// Upcoming returns the next published events.
func (s *EventService) Upcoming(ctx context.Context, limit int) ([]models.Event, error) {
	db := s.backend.Reader()
	if db == nil {
		return []models.Event{}, nil
	}
	now := s.now()
	events := []models.Event{}
	err := db.WithContext(ctx).Preload("Resources").
		Where("status = ? AND starts_at >= ?", models.StatusPublished, now).
		Order("starts_at ASC").Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Derive(now)
	}
	return events, nil
}

// AdminListEvents lists events in any status, newest first.
func (s *EventService) AdminListEvents(ctx context.Context, status string) []models.Event {
	db := s.backend.Service()
	if db == nil {
		db = s.backend.Reader()
	}
	if db == nil {
		return []models.Event{}
	}

	tx := db.WithContext(ctx).Preload("Resources")
	if st := models.ContentStatus(status); st.Valid() {
		tx = tx.Where("status = ?", st)
	}
	var events []models.Event
	if err := tx.Order("starts_at DESC").Find(&events).Error; err != nil {
		logger.Backend("events.admin_list", err)
		return []models.Event{}
	}
	now := s.now()
	for i := range events {
		events[i].Derive(now)
	}
	return events
}
