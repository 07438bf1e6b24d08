package services

import (
	"context"
	"testing"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMembers(t *testing.T, db *gorm.DB) map[string]models.Profile {
	t.Helper()
	rows := []models.Profile{
		{FullName: "Claire Dubois", Organisation: "Northwind Energy", Location: "London", Sector: "Energy", JobLevel: "General Counsel", Status: models.ProfileStatusApproved, ShowInDirectory: true},
		{FullName: "Tom Okafor", Organisation: "Brightline Retail", Location: "Manchester", Sector: "Retail", JobLevel: "Deputy GC", Status: models.ProfileStatusApproved, ShowInDirectory: true},
		{FullName: "Priya Natarajan", Organisation: "Helix Pharma", Location: "London", Sector: "Life Sciences", Status: models.ProfileStatusApproved, ShowInDirectory: false},
		{FullName: "Marcus Lee", Organisation: "Atlas Logistics", Location: "Edinburgh", Sector: "Logistics", Status: models.ProfileStatusPending, ShowInDirectory: true},
		{FullName: "Sara Kim", Organisation: "Northwind Energy", Location: "London", Sector: "Energy", Status: models.ProfileStatusSuspended, ShowInDirectory: true},
	}
	out := map[string]models.Profile{}
	for i := range rows {
		rows[i].ID = uuid.New()
		rows[i].Role = models.RoleMember
		require.NoError(t, db.Create(&rows[i]).Error)
		out[rows[i].FullName] = rows[i]
	}
	return out
}

func names(cards []models.MemberCard) []string {
	var out []string
	for _, c := range cards {
		out = append(out, c.FullName)
	}
	return out
}

func TestGetMembers_PublicVisibility(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedMembers(t, db)
	svc := NewDirectoryService(backend, testConfig())

	page := svc.GetMembers(context.Background(), MemberQuery{})

	assert.Equal(t, []string{"Claire Dubois", "Tom Okafor"}, names(page.Items))
	assert.Equal(t, 2, page.Pagination.TotalItems)
	for _, card := range page.Items {
		assert.Empty(t, card.Email)
		assert.Empty(t, card.Status)
	}
	assert.Equal(t, []string{"London", "Manchester"}, page.Facets.Locations)
}

func TestGetMembers_AdminSeesEveryone(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedMembers(t, db)
	svc := NewDirectoryService(backend, testConfig())

	page := svc.GetMembers(context.Background(), MemberQuery{IncludeAllStatuses: true, IncludeHidden: true})

	assert.Len(t, page.Items, 5)
	assert.Contains(t, names(page.Items), "Marcus Lee")
	assert.Contains(t, names(page.Items), "Priya Natarajan")
	for _, card := range page.Items {
		assert.NotEmpty(t, card.Status)
	}
}

func TestGetMembers_Filters(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedMembers(t, db)
	svc := NewDirectoryService(backend, testConfig())
	ctx := context.Background()

	assert.Equal(t, []string{"Claire Dubois"}, names(svc.GetMembers(ctx, MemberQuery{Location: "London"}).Items))
	assert.Equal(t, []string{"Tom Okafor"}, names(svc.GetMembers(ctx, MemberQuery{Search: "brightLINE"}).Items))
	assert.Equal(t, []string{"Tom Okafor"}, names(svc.GetMembers(ctx, MemberQuery{Search: "okaf"}).Items))
	assert.Empty(t, svc.GetMembers(ctx, MemberQuery{Sector: "Logistics"}).Items)
	assert.Len(t, svc.GetMembers(ctx, MemberQuery{Sector: "all"}).Items, 2)
}

func TestGetMembers_FallbackUsesSameFilter(t *testing.T) {
	svc := NewDirectoryService(database.New(nil, nil), testConfig())
	ctx := context.Background()

	public := svc.GetMembers(ctx, MemberQuery{})
	assert.True(t, public.Fallback)
	for _, card := range public.Items {
		var profile models.Profile
		for _, p := range database.FallbackProfiles() {
			if p.ID == card.ID {
				profile = p
			}
		}
		assert.True(t, profile.Listed(), card.FullName)
	}

	all := svc.GetMembers(ctx, MemberQuery{IncludeAllStatuses: true, IncludeHidden: true})
	assert.Len(t, all.Items, len(database.FallbackProfiles()))

	london := svc.GetMembers(ctx, MemberQuery{Location: "London"})
	assert.Equal(t, []string{"Claire Dubois"}, names(london.Items))
}

func TestMemberConditions_PredicateMatchesStore(t *testing.T) {
	backend, db := privilegedBackend(t)
	seeded := seedMembers(t, db)

	queries := []MemberQuery{
		{},
		{Location: "London"},
		{Search: "north"},
		{IncludeHidden: true},
		{IncludeAllStatuses: true},
		{IncludeAllStatuses: true, IncludeHidden: true, Sector: "Energy"},
	}
	for _, q := range queries {
		conds := memberConditions(q)

		var fromStore []models.Profile
		require.NoError(t, applyConditions(backend.Service().Model(&models.Profile{}), conds).Order("full_name").Find(&fromStore).Error)

		var inMemory []string
		for _, p := range seeded {
			if matchesAll(&p, conds) {
				inMemory = append(inMemory, p.FullName)
			}
		}
		var stored []string
		for _, p := range fromStore {
			stored = append(stored, p.FullName)
		}
		assert.ElementsMatch(t, stored, inMemory, "%+v", q)
	}
}

func TestGetMemberByID(t *testing.T) {
	backend, db := privilegedBackend(t)
	seeded := seedMembers(t, db)
	svc := NewDirectoryService(backend, testConfig())
	ctx := context.Background()

	card, ok := svc.GetMemberByID(ctx, seeded["Claire Dubois"].ID, false)
	require.True(t, ok)
	assert.Equal(t, "Northwind Energy", card.Organisation)

	_, ok = svc.GetMemberByID(ctx, seeded["Priya Natarajan"].ID, false)
	assert.False(t, ok)

	card, ok = svc.GetMemberByID(ctx, seeded["Priya Natarajan"].ID, true)
	require.True(t, ok)
	assert.Equal(t, models.ProfileStatusApproved, card.Status)
}
