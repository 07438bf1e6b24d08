package services

import (
	"context"
	"testing"
	"time"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var eventNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// seedEvents stores two past and two upcoming published events around
// eventNow, plus an upcoming draft.
func seedEvents(t *testing.T, db *gorm.DB) {
	t.Helper()
	events := []models.Event{
		{Slug: "spring-roundtable", Title: "Spring Roundtable", Status: models.StatusPublished, StartsAt: *date("2025-03-01")},
		{Slug: "may-briefing", Title: "May Briefing", Status: models.StatusPublished, StartsAt: *date("2025-05-01"),
			Resources: []models.EventResource{{Title: "Slides", FileURL: "events/may/slides.pdf", FileSize: 2048, FileType: "application/pdf"}}},
		{Slug: "summer-forum", Title: "Summer Forum", Status: models.StatusPublished, StartsAt: *date("2025-07-01")},
		{Slug: "autumn-summit", Title: "Autumn Summit", Status: models.StatusPublished, StartsAt: *date("2025-09-01")},
		{Slug: "secret-dinner", Title: "Secret Dinner", Status: models.StatusDraft, StartsAt: *date("2025-06-20")},
	}
	for i := range events {
		require.NoError(t, db.Create(&events[i]).Error)
	}
}

func newEventService(backend *database.Backend) *EventService {
	svc := NewEventService(backend, testConfig())
	svc.now = func() time.Time { return eventNow }
	return svc
}

func eventSlugs(events []models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Slug
	}
	return out
}

func TestGetEvents_Windows(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedEvents(t, db)
	svc := newEventService(backend)
	ctx := context.Background()

	tests := []struct {
		when   string
		want   []string
		isPast []bool
	}{
		{"", []string{"summer-forum", "autumn-summit"}, []bool{false, false}},
		{"upcoming", []string{"summer-forum", "autumn-summit"}, []bool{false, false}},
		{"past", []string{"may-briefing", "spring-roundtable"}, []bool{true, true}},
		{"all", []string{"autumn-summit", "summer-forum", "may-briefing", "spring-roundtable"}, []bool{false, false, true, true}},
	}

	for _, tt := range tests {
		t.Run("when="+tt.when, func(t *testing.T) {
			page := svc.GetEvents(ctx, EventQuery{When: tt.when})
			assert.Equal(t, tt.want, eventSlugs(page.Items))
			for i, e := range page.Items {
				assert.Equal(t, tt.isPast[i], e.IsPast, e.Slug)
				assert.NotNil(t, e.Resources)
			}
			assert.Equal(t, len(tt.want), page.Pagination.TotalItems)
		})
	}
}

func TestGetEvents_Paginates(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedEvents(t, db)
	svc := newEventService(backend)

	page := svc.GetEvents(context.Background(), EventQuery{When: "all", Page: 2, PageSize: 3})

	assert.Equal(t, []string{"spring-roundtable"}, eventSlugs(page.Items))
	assert.Equal(t, Pagination{Page: 2, PageSize: 3, TotalItems: 4, TotalPages: 2, From: 4, To: 4}, page.Pagination)
}

func TestGetEvents_DegradesToEmpty(t *testing.T) {
	unconfigured := newEventService(database.New(nil, nil))
	page := unconfigured.GetEvents(context.Background(), EventQuery{})
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Pagination.TotalItems)

	backend, db := privilegedBackend(t)
	require.NoError(t, db.Migrator().DropTable("event_resources", "events"))
	failing := newEventService(backend)
	page = failing.GetEvents(context.Background(), EventQuery{When: "all"})
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestGetEventBySlug(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedEvents(t, db)
	svc := newEventService(backend)
	ctx := context.Background()

	event, ok := svc.GetEventBySlug(ctx, "may-briefing", false)
	require.True(t, ok)
	assert.True(t, event.IsPast)
	require.Len(t, event.Resources, 1)
	assert.Equal(t, "Slides", event.Resources[0].Title)

	_, ok = svc.GetEventBySlug(ctx, "secret-dinner", false)
	assert.False(t, ok)

	draft, ok := svc.GetEventBySlug(ctx, "secret-dinner", true)
	require.True(t, ok)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.False(t, draft.IsPast)

	_, ok = svc.GetEventBySlug(ctx, "no-such-event", true)
	assert.False(t, ok)
}

func TestUpcoming(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedEvents(t, db)
	svc := newEventService(backend)

	events, err := svc.Upcoming(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"summer-forum"}, eventSlugs(events))

	events, err = newEventService(database.New(nil, nil)).Upcoming(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventDerive(t *testing.T) {
	e := models.Event{StartsAt: eventNow.Add(-time.Minute)}
	e.Derive(eventNow)
	assert.True(t, e.IsPast)
	assert.NotNil(t, e.Resources)

	e = models.Event{StartsAt: eventNow}
	e.Derive(eventNow)
	assert.False(t, e.IsPast)
}
