package services

import (
	"context"

	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"golang.org/x/sync/errgroup"
)

type HomePage struct {
	Featured       []models.ResourceItem `json:"featured"`
	Latest         []models.ResourceItem `json:"latest"`
	UpcomingEvents []models.Event        `json:"upcoming_events"`
	Team           []models.Partner      `json:"team"`
}

type HomeService struct {
	content  *ContentService
	events   *EventService
	partners *PartnerService
}

func NewHomeService(content *ContentService, events *EventService, partners *PartnerService) *HomeService {
	return &HomeService{content: content, events: events, partners: partners}
}

// GetHomepage fetches each section concurrently. A failing section is
// logged and left empty; the others are still returned.
func (s *HomeService) GetHomepage(ctx context.Context) HomePage {
	home := HomePage{
		Featured:       []models.ResourceItem{},
		Latest:         []models.ResourceItem{},
		UpcomingEvents: []models.Event{},
		Team:           []models.Partner{},
	}

	var g errgroup.Group
	g.Go(func() error {
		if items, err := s.content.recent(ctx, true, 3); err != nil {
			logger.Backend("home.featured", err)
		} else {
			home.Featured = items
		}
		return nil
	})
	g.Go(func() error {
		if items, err := s.content.recent(ctx, false, 6); err != nil {
			logger.Backend("home.latest", err)
		} else {
			home.Latest = items
		}
		return nil
	})
	g.Go(func() error {
		if events, err := s.events.Upcoming(ctx, 3); err != nil {
			logger.Backend("home.events", err)
		} else {
			home.UpcomingEvents = events
		}
		return nil
	})
	g.Go(func() error {
		if team, err := s.partners.list(ctx, PartnerQuery{TeamOnly: true}); err != nil {
			logger.Backend("home.team", err)
		} else {
			home.Team = team
		}
		return nil
	})
	_ = g.Wait()
	return home
}
