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

// seedLibrary stores two articles and one video with interleaved dates,
// one draft and one tagged article.
func seedLibrary(t *testing.T, db *gorm.DB) (models.Partner, models.Partner) {
	t.Helper()
	amelia := seedAuthor(t, db, "Amelia Hart", 0)
	rahul := seedAuthor(t, db, "Rahul Mehta", 1)
	governance := seedCategory(t, db, "governance", "Governance")
	litigation := seedCategory(t, db, "litigation", "Litigation")

	older := models.Article{
		Slug: "board-basics", Title: "Board Basics", Status: models.StatusPublished,
		CategoryID: &governance.ID, PublishedOn: date("2025-01-01"),
		Tags:    []models.Tag{{Slug: "governance", Name: "Governance"}},
		Authors: []models.Partner{amelia},
	}
	newer := models.Article{
		Slug: "horizon-ip", Title: "Horizon IP", Status: models.StatusPublished,
		CategoryID: &litigation.ID, PublishedOn: date("2025-03-01"),
		Tags:    []models.Tag{{Slug: "ip", Name: "IP"}},
		Authors: []models.Partner{amelia, rahul},
	}
	draft := models.Article{
		Slug: "unfinished", Title: "Unfinished", Status: models.StatusDraft, PublishedOn: date("2025-04-01"),
	}
	video := models.Video{
		Slug: "panel", Title: "Litigation Panel", Status: models.StatusPublished,
		CategoryID: &litigation.ID, PublishedOn: date("2025-02-01"),
		VideoURL: "https://videos.example/panel", Authors: []models.Partner{rahul},
	}
	for _, v := range []any{&older, &newer, &draft, &video} {
		require.NoError(t, db.Create(v).Error)
	}
	return amelia, rahul
}

func TestGetResources_MergedNewestFirst(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())

	page := svc.GetResources(context.Background(), ResourceQuery{})

	require.Len(t, page.Items, 3)
	assert.False(t, page.Fallback)
	assert.Equal(t, "2025-03-01", page.Items[0].PublishedOn.Format("2006-01-02"))
	assert.Equal(t, models.ResourceArticle, page.Items[0].Type)
	assert.Equal(t, "2025-02-01", page.Items[1].PublishedOn.Format("2006-01-02"))
	assert.Equal(t, models.ResourceVideo, page.Items[1].Type)
	assert.Equal(t, "2025-01-01", page.Items[2].PublishedOn.Format("2006-01-02"))
	assert.Equal(t, models.ResourceArticle, page.Items[2].Type)
}

func TestGetResources_PaginatesAfterMerge(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())

	page := svc.GetResources(context.Background(), ResourceQuery{Page: 2, PageSize: 1})

	require.Len(t, page.Items, 1)
	assert.Equal(t, "panel", page.Items[0].Slug)
	assert.Equal(t, Pagination{Page: 2, PageSize: 1, TotalItems: 3, TotalPages: 3, From: 2, To: 2}, page.Pagination)

	again := svc.GetResources(context.Background(), ResourceQuery{Page: 2, PageSize: 1})
	assert.Equal(t, page, again)
}

func TestGetResources_TagFilterExcludesVideos(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())

	page := svc.GetResources(context.Background(), ResourceQuery{Tag: "ip"})

	require.Len(t, page.Items, 1)
	assert.Equal(t, "horizon-ip", page.Items[0].Slug)
	for _, item := range page.Items {
		assert.NotEqual(t, models.ResourceVideo, item.Type)
	}

	page = svc.GetResources(context.Background(), ResourceQuery{Type: "video", Tag: "ip"})
	assert.Empty(t, page.Items)
}

func TestGetResources_Filters(t *testing.T) {
	backend, db := privilegedBackend(t)
	amelia, rahul := seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())
	ctx := context.Background()

	byCategory := svc.GetResources(ctx, ResourceQuery{Category: "litigation"})
	assert.Len(t, byCategory.Items, 2)

	byAuthor := svc.GetResources(ctx, ResourceQuery{Author: rahul.ID.String()})
	assert.Len(t, byAuthor.Items, 2)

	onlyAmelia := svc.GetResources(ctx, ResourceQuery{Author: amelia.ID.String(), Type: "article"})
	assert.Len(t, onlyAmelia.Items, 2)

	search := svc.GetResources(ctx, ResourceQuery{Search: "PANEL"})
	require.Len(t, search.Items, 1)
	assert.Equal(t, "panel", search.Items[0].Slug)

	badAuthor := svc.GetResources(ctx, ResourceQuery{Author: "not-an-id"})
	assert.Empty(t, badAuthor.Items)
	assert.False(t, badAuthor.Fallback)
}

func TestGetResources_FacetsIgnorePageTagAndSearch(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())
	ctx := context.Background()

	page := svc.GetResources(ctx, ResourceQuery{Tag: "ip", Search: "horizon", PageSize: 1})

	require.Len(t, page.Items, 1)
	assert.Len(t, page.Facets.Categories, 2)
	assert.Len(t, page.Facets.Authors, 2)
	assert.ElementsMatch(t, []FacetOption{{Value: "governance", Label: "Governance"}, {Value: "ip", Label: "IP"}}, page.Facets.Tags)
}

func TestGetResources_FacetsFollowAuthorAndCategory(t *testing.T) {
	backend, db := privilegedBackend(t)
	amelia, rahul := seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())
	ctx := context.Background()

	byRahul := svc.GetResources(ctx, ResourceQuery{Author: rahul.ID.String()})
	assert.Equal(t, []FacetOption{{Value: "litigation", Label: "Litigation"}}, byRahul.Facets.Categories)

	governance := svc.GetResources(ctx, ResourceQuery{Category: "governance", PageSize: 1})
	require.Len(t, governance.Items, 1)
	assert.Equal(t, []FacetOption{{Value: "governance", Label: "Governance"}}, governance.Facets.Categories)
	assert.Equal(t, []FacetOption{{Value: "governance", Label: "Governance"}}, governance.Facets.Tags)
	require.Len(t, governance.Facets.Authors, 1)
	assert.Equal(t, amelia.ID.String(), governance.Facets.Authors[0].ID)
}

func TestGetResources_FallbackWithoutStore(t *testing.T) {
	svc := NewContentService(database.New(nil, nil), testConfig())

	page := svc.GetResources(context.Background(), ResourceQuery{})

	assert.True(t, page.Fallback)
	require.NotEmpty(t, page.Items)
	var articles, videos, multiAuthor int
	for _, item := range page.Items {
		switch item.Type {
		case models.ResourceArticle:
			articles++
		case models.ResourceVideo:
			videos++
		}
		if len(item.AuthorIDs) > 1 {
			multiAuthor++
		}
	}
	assert.GreaterOrEqual(t, articles, 1)
	assert.GreaterOrEqual(t, videos, 1)
	assert.GreaterOrEqual(t, multiAuthor, 1)

	for i := 1; i < len(page.Items); i++ {
		assert.False(t, page.Items[i].SortTime().After(page.Items[i-1].SortTime()))
	}

	tagged := svc.GetResources(context.Background(), ResourceQuery{Tag: "ip"})
	for _, item := range tagged.Items {
		assert.Equal(t, models.ResourceArticle, item.Type)
	}
}

func TestGetResources_FallbackOnBackendError(t *testing.T) {
	backend, db := privilegedBackend(t)
	require.NoError(t, db.Migrator().DropTable("videos"))
	svc := NewContentService(backend, testConfig())

	page := svc.GetResources(context.Background(), ResourceQuery{})

	assert.True(t, page.Fallback)
	assert.NotEmpty(t, page.Items)
}

func TestGetResourceBySlug(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())
	ctx := context.Background()

	item, ok := svc.GetResourceBySlug(ctx, "horizon-ip")
	require.True(t, ok)
	assert.Equal(t, []string{"IP"}, item.Tags)
	assert.Len(t, item.Authors, 2)

	item, ok = svc.GetResourceBySlug(ctx, "panel")
	require.True(t, ok)
	assert.Equal(t, models.ResourceVideo, item.Type)

	_, ok = svc.GetResourceBySlug(ctx, "unfinished")
	assert.False(t, ok)
}

func TestAdminListArticles_IncludesDrafts(t *testing.T) {
	backend, db := privilegedBackend(t)
	seedLibrary(t, db)
	svc := NewContentService(backend, testConfig())

	all := svc.AdminListArticles(context.Background(), "", "")
	assert.Len(t, all, 3)

	drafts := svc.AdminListArticles(context.Background(), "draft", "")
	require.Len(t, drafts, 1)
	assert.Equal(t, "unfinished", drafts[0].Slug)

	assert.Len(t, svc.AdminListVideos(context.Background(), "", "pan"), 1)
}

func TestListCategories_Fallback(t *testing.T) {
	svc := NewContentService(database.New(nil, nil), testConfig())
	categories := svc.ListCategories(context.Background())
	assert.NotEmpty(t, categories)
}
