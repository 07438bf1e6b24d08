package services

import (
	"context"
	"testing"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeResourceArticle_RoundTripsUpsert(t *testing.T) {
	backend, db := privilegedBackend(t)
	a := seedAuthor(t, db, "Amelia Hart", 0)
	b := seedAuthor(t, db, "Rahul Mehta", 1)
	svc := NewAdminService(backend, testConfig(), nil, nil, &recordingMailer{})

	in := ArticleInput{
		ResourceInput: ResourceInput{
			Title:       "Horizon: IP Issues 2026!",
			Status:      models.StatusPublished,
			AuthorIDs:   []string{a.ID.String(), b.ID.String()},
			PublishedOn: "2025-03-01",
		},
		Tags: []string{"IP", "Strategy"},
	}
	res := svc.UpsertResourceArticle(context.Background(), in)
	require.True(t, res.Success, res.Message)

	var stored models.Article
	require.NoError(t, db.Preload("Category").Preload("Tags").Preload("Authors").First(&stored, "id = ?", res.ID).Error)
	item := NormalizeResourceArticle(&stored)

	assert.Equal(t, "horizon-ip-issues-2026", item.Slug)
	assert.Equal(t, in.Title, item.Title)
	assert.Equal(t, models.StatusPublished, item.Status)
	assert.ElementsMatch(t, in.Tags, item.Tags)
	assert.ElementsMatch(t, in.AuthorIDs, item.AuthorIDs)
	require.NotNil(t, item.PublishedOn)
	assert.Equal(t, "2025-03-01", item.PublishedOn.Format("2006-01-02"))
}

func TestNormalize_FallbackRows(t *testing.T) {
	for _, a := range database.FallbackArticles() {
		item := NormalizeResourceArticle(&a)
		assert.Equal(t, models.ResourceArticle, item.Type)
		assert.NotEmpty(t, item.Slug)
		assert.NotNil(t, item.Tags)
		assert.Len(t, item.Authors, len(item.AuthorIDs))
	}
	for _, v := range database.FallbackVideos() {
		item := NormalizeResourceVideo(&v)
		assert.Equal(t, models.ResourceVideo, item.Type)
		assert.Empty(t, item.Tags)
		assert.NotEmpty(t, item.VideoURL)
	}
}
