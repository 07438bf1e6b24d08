package services

import (
	"context"
	"testing"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPartners(t *testing.T, db *gorm.DB) {
	t.Helper()
	partners := []models.Partner{
		{Name: "Zoe Park", OrderIndex: 10, ShowOnTeam: true, IsAuthor: true},
		{Name: "Office Desk", OrderIndex: 1},
		{Name: "Amelia Hart", OrderIndex: 3, ShowOnTeam: true},
		{Name: "Rahul Mehta", OrderIndex: 3, IsAuthor: true},
	}
	for i := range partners {
		require.NoError(t, db.Create(&partners[i]).Error)
	}
}

func partnerNames(partners []models.Partner) []string {
	out := make([]string, len(partners))
	for i, p := range partners {
		out[i] = p.Name
	}
	return out
}

func TestGetPartners(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedPartners(t, db)
	svc := NewPartnerService(backend)
	ctx := context.Background()

	tests := []struct {
		name string
		q    PartnerQuery
		want []string
	}{
		{"display order", PartnerQuery{}, []string{"Office Desk", "Amelia Hart", "Rahul Mehta", "Zoe Park"}},
		{"team only", PartnerQuery{TeamOnly: true}, []string{"Amelia Hart", "Zoe Park"}},
		{"authors only", PartnerQuery{AuthorsOnly: true}, []string{"Rahul Mehta", "Zoe Park"}},
		{"team authors", PartnerQuery{TeamOnly: true, AuthorsOnly: true}, []string{"Zoe Park"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, partnerNames(svc.GetPartners(ctx, tt.q)))
		})
	}
}

func TestGetPartners_DegradesToEmpty(t *testing.T) {
	partners := NewPartnerService(database.New(nil, nil)).GetPartners(context.Background(), PartnerQuery{})
	assert.NotNil(t, partners)
	assert.Empty(t, partners)

	backend, db := privilegedBackend(t)
	require.NoError(t, db.Migrator().DropTable("article_authors", "video_authors", "partners"))
	partners = NewPartnerService(backend).GetPartners(context.Background(), PartnerQuery{TeamOnly: true})
	assert.NotNil(t, partners)
	assert.Empty(t, partners)
}
