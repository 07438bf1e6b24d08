package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ResourceQuery filters the public resource library. "all" or an empty
// value disables a filter.
type ResourceQuery struct {
	Type     string `form:"type" json:"type"`
	Category string `form:"category" json:"category"`
	Tag      string `form:"tag" json:"tag"`
	Author   string `form:"author" json:"author"`
	Search   string `form:"q" json:"q"`
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"page_size" json:"page_size"`
}

func (q ResourceQuery) wants(t models.ResourceType) bool {
	return !active(q.Type) || q.Type == string(t)
}

// facetQuery keeps the filters facets are scoped by: type, author and
// category. Tag, search and page are dropped.
func (q ResourceQuery) facetQuery() ResourceQuery {
	return ResourceQuery{Type: q.Type, Author: q.Author, Category: q.Category}
}

// narrowed reports whether the listing filters beyond the facet scope.
func (q ResourceQuery) narrowed() bool {
	return active(q.Tag) || strings.TrimSpace(q.Search) != ""
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "all")
}

type FacetOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ResourceFacets struct {
	Categories []FacetOption      `json:"categories"`
	Tags       []FacetOption      `json:"tags"`
	Authors    []models.AuthorRef `json:"authors"`
}

type ResourcePage struct {
	Items      []models.ResourceItem `json:"items"`
	Pagination Pagination            `json:"pagination"`
	Facets     ResourceFacets        `json:"facets"`
	Fallback   bool                  `json:"fallback"`
}

type ContentService struct {
	backend *database.Backend
	config  *config.Config
}

func NewContentService(backend *database.Backend, cfg *config.Config) *ContentService {
	return &ContentService{backend: backend, config: cfg}
}

// GetResources lists published articles and videos as one sequence,
// newest first, paginated after the merge. Facets cover every published
// item matching the type, author and category filters, whatever the tag,
// search or page. Backend failures fall back to the built-in dataset.
func (s *ContentService) GetResources(ctx context.Context, q ResourceQuery) ResourcePage {
	db := s.backend.Reader()
	if db == nil {
		return s.fallbackResources(q)
	}

	var articles, videos, facetArticles, facetVideos []models.ResourceItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = queryArticles(db.WithContext(gctx), q)
		return err
	})
	g.Go(func() error {
		var err error
		videos, err = queryVideos(db.WithContext(gctx), q)
		return err
	})
	if q.narrowed() {
		base := q.facetQuery()
		g.Go(func() error {
			var err error
			facetArticles, err = queryArticles(db.WithContext(gctx), base)
			return err
		})
		g.Go(func() error {
			var err error
			facetVideos, err = queryVideos(db.WithContext(gctx), base)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Backend("content.get_resources", err)
		return s.fallbackResources(q)
	}

	items := mergeResources(articles, videos)
	facetItems := items
	if q.narrowed() {
		facetItems = mergeResources(facetArticles, facetVideos)
	}
	return s.page(items, facetItems, q, false)
}

func (s *ContentService) page(items, facetItems []models.ResourceItem, q ResourceQuery, fallback bool) ResourcePage {
	p := Paginate(q.Page, pageSize(q.PageSize, s.config.DefaultPageSize), len(items), s.config.MaxPageSize)
	start, end := p.Slice()
	return ResourcePage{
		Items:      append([]models.ResourceItem{}, items[start:end]...),
		Pagination: p,
		Facets:     buildFacets(facetItems),
		Fallback:   fallback,
	}
}

func (s *ContentService) fallbackResources(q ResourceQuery) ResourcePage {
	all := fallbackItems()
	base := q.facetQuery()
	var items, facetItems []models.ResourceItem
	for _, item := range all {
		if !matchesResource(item, base) {
			continue
		}
		facetItems = append(facetItems, item)
		if matchesResource(item, q) {
			items = append(items, item)
		}
	}
	sortResources(items)
	return s.page(items, facetItems, q, true)
}

// fallbackItems returns the published built-in resources in canonical form.
func fallbackItems() []models.ResourceItem {
	var out []models.ResourceItem
	articles := database.FallbackArticles()
	for i := range articles {
		if articles[i].Status == models.StatusPublished {
			out = append(out, NormalizeResourceArticle(&articles[i]))
		}
	}
	videos := database.FallbackVideos()
	for i := range videos {
		if videos[i].Status == models.StatusPublished {
			out = append(out, NormalizeResourceVideo(&videos[i]))
		}
	}
	return out
}

// matchesResource is the in-memory form of the store filters in
// queryArticles and queryVideos.
func matchesResource(item models.ResourceItem, q ResourceQuery) bool {
	if item.Status != models.StatusPublished || !q.wants(item.Type) {
		return false
	}
	if active(q.Category) && (item.Category == nil || item.Category.Slug != q.Category) {
		return false
	}
	if active(q.Tag) {
		if item.Type != models.ResourceArticle {
			return false
		}
		want := Slugify(q.Tag)
		found := false
		for _, t := range item.Tags {
			if Slugify(t) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if active(q.Author) && !contains(item.AuthorIDs, q.Author) {
		return false
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		if !strings.Contains(strings.ToLower(item.Title), strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func preloadResource(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Category").Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	})
}

func queryArticles(db *gorm.DB, q ResourceQuery) ([]models.ResourceItem, error) {
	if !q.wants(models.ResourceArticle) {
		return nil, nil
	}
	tx := preloadResource(db.Model(&models.Article{})).Preload("Tags").
		Where("status = ?", models.StatusPublished)
	tx, ok := applyResourceFilters(tx, q, "article_authors", "article_id")
	if !ok {
		return nil, nil
	}
	if active(q.Tag) {
		tx = tx.Where("id IN (SELECT at.article_id FROM article_tags at JOIN tags t ON t.id = at.tag_id WHERE t.slug = ?)", Slugify(q.Tag))
	}

	var rows []models.Article
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]models.ResourceItem, 0, len(rows))
	for i := range rows {
		items = append(items, NormalizeResourceArticle(&rows[i]))
	}
	return items, nil
}

func queryVideos(db *gorm.DB, q ResourceQuery) ([]models.ResourceItem, error) {
	// Videos have no tags.
	if !q.wants(models.ResourceVideo) || active(q.Tag) {
		return nil, nil
	}
	tx := preloadResource(db.Model(&models.Video{})).
		Where("status = ?", models.StatusPublished)
	tx, ok := applyResourceFilters(tx, q, "video_authors", "video_id")
	if !ok {
		return nil, nil
	}

	var rows []models.Video
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]models.ResourceItem, 0, len(rows))
	for i := range rows {
		items = append(items, NormalizeResourceVideo(&rows[i]))
	}
	return items, nil
}

// applyResourceFilters adds the category, author and search filters shared
// by both content types. ok is false when the query cannot match anything.
func applyResourceFilters(tx *gorm.DB, q ResourceQuery, authorTable, ownerColumn string) (*gorm.DB, bool) {
	if active(q.Category) {
		tx = tx.Where("category_id IN (SELECT id FROM categories WHERE slug = ?)", q.Category)
	}
	if active(q.Author) {
		author, err := uuid.Parse(q.Author)
		if err != nil {
			return tx, false
		}
		tx = tx.Where("id IN (SELECT "+ownerColumn+" FROM "+authorTable+" WHERE partner_id = ?)", author)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		tx = tx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	return tx, true
}

func mergeResources(articles, videos []models.ResourceItem) []models.ResourceItem {
	items := make([]models.ResourceItem, 0, len(articles)+len(videos))
	items = append(items, articles...)
	items = append(items, videos...)
	sortResources(items)
	return items
}

// sortResources orders newest first. Ties break on title then id so
// repeated requests page identically.
func sortResources(items []models.ResourceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].SortTime(), items[j].SortTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
}

func buildFacets(items []models.ResourceItem) ResourceFacets {
	facets := ResourceFacets{
		Categories: []FacetOption{},
		Tags:       []FacetOption{},
		Authors:    []models.AuthorRef{},
	}
	seenCategory := map[string]bool{}
	seenTag := map[string]bool{}
	seenAuthor := map[string]bool{}

	for _, item := range items {
		if c := item.Category; c != nil && !seenCategory[c.Slug] {
			seenCategory[c.Slug] = true
			facets.Categories = append(facets.Categories, FacetOption{Value: c.Slug, Label: c.Name})
		}
		for _, t := range item.Tags {
			slug := Slugify(t)
			if slug != "" && !seenTag[slug] {
				seenTag[slug] = true
				facets.Tags = append(facets.Tags, FacetOption{Value: slug, Label: t})
			}
		}
		for _, a := range item.Authors {
			if !seenAuthor[a.ID] {
				seenAuthor[a.ID] = true
				facets.Authors = append(facets.Authors, a)
			}
		}
	}

	sort.Slice(facets.Categories, func(i, j int) bool { return facets.Categories[i].Label < facets.Categories[j].Label })
	sort.Slice(facets.Tags, func(i, j int) bool { return facets.Tags[i].Label < facets.Tags[j].Label })
	sort.Slice(facets.Authors, func(i, j int) bool { return facets.Authors[i].Name < facets.Authors[j].Name })
	return facets
}

// GetResourceBySlug finds one published article or video.
func (s *ContentService) GetResourceBySlug(ctx context.Context, slug string) (*models.ResourceItem, bool) {
	db := s.backend.Reader()
	if db == nil {
		return fallbackBySlug(slug)
	}

	var article models.Article
	err := preloadResource(db.WithContext(ctx)).Preload("Tags").
		Where("slug = ? AND status = ?", slug, models.StatusPublished).
		First(&article).Error
	if err == nil {
		item := NormalizeResourceArticle(&article)
		return &item, true
	}
	if !database.IsNotFound(err) {
		logger.Backend("content.get_resource", err)
		return fallbackBySlug(slug)
	}

	var video models.Video
	err = preloadResource(db.WithContext(ctx)).
		Where("slug = ? AND status = ?", slug, models.StatusPublished).
		First(&video).Error
	if err == nil {
		item := NormalizeResourceVideo(&video)
		return &item, true
	}
	if !database.IsNotFound(err) {
		logger.Backend("content.get_resource", err)
		return fallbackBySlug(slug)
	}
	return nil, false
}

func fallbackBySlug(slug string) (*models.ResourceItem, bool) {
	for _, item := range fallbackItems() {
		if item.Slug == slug {
			return &item, true
		}
	}
	return nil, false
}

// ListCategories returns every category by name.
func (s *ContentService) ListCategories(ctx context.Context) []models.Category {
	db := s.backend.Reader()
	if db != nil {
		var categories []models.Category
		err := db.WithContext(ctx).Order("name ASC").Find(&categories).Error
		if err == nil {
			return categories
		}
		logger.Backend("content.list_categories", err)
	}

	var out []models.Category
	seen := map[string]bool{}
	for _, a := range database.FallbackArticles() {
		if a.Category != nil && !seen[a.Category.Slug] {
			seen[a.Category.Slug] = true
			out = append(out, *a.Category)
		}
	}
	for _, v := range database.FallbackVideos() {
		if v.Category != nil && !seen[v.Category.Slug] {
			seen[v.Category.Slug] = true
			out = append(out, *v.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// adminDB prefers the service handle so drafts are visible.
func (s *ContentService) adminDB() *gorm.DB {
	if db := s.backend.Service(); db != nil {
		return db
	}
	return s.backend.Reader()
}

// AdminListArticles lists articles in any status, most recently edited
// first. status and search are optional.
func (s *ContentService) AdminListArticles(ctx context.Context, status, search string) []models.ResourceItem {
	db := s.adminDB()
	if db == nil {
		return []models.ResourceItem{}
	}
	tx := adminFilters(preloadResource(db.WithContext(ctx)).Preload("Tags"), status, search)

	var rows []models.Article
	if err := tx.Order("updated_at DESC").Find(&rows).Error; err != nil {
		logger.Backend("content.admin_list_articles", err)
		return []models.ResourceItem{}
	}
	items := make([]models.ResourceItem, 0, len(rows))
	for i := range rows {
		items = append(items, NormalizeResourceArticle(&rows[i]))
	}
	return items
}

func (s *ContentService) AdminListVideos(ctx context.Context, status, search string) []models.ResourceItem {
	db := s.adminDB()
	if db == nil {
		return []models.ResourceItem{}
	}
	tx := adminFilters(preloadResource(db.WithContext(ctx)), status, search)

	var rows []models.Video
	if err := tx.Order("updated_at DESC").Find(&rows).Error; err != nil {
		logger.Backend("content.admin_list_videos", err)
		return []models.ResourceItem{}
	}
	items := make([]models.ResourceItem, 0, len(rows))
	for i := range rows {
		items = append(items, NormalizeResourceVideo(&rows[i]))
	}
	return items
}

func adminFilters(tx *gorm.DB, status, search string) *gorm.DB {
	if st := models.ContentStatus(status); st.Valid() {
		tx = tx.Where("status = ?", st)
	}
	if term := strings.TrimSpace(search); term != "" {
		tx = tx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	return tx
}

// recent returns the newest published resources, optionally featured
// only. Used by the homepage, which shows nothing rather than fallback
// data when the store fails.
func (s *ContentService) recent(ctx context.Context, featuredOnly bool, limit int) ([]models.ResourceItem, error) {
	db := s.backend.Reader()
	if db == nil {
		return []models.ResourceItem{}, nil
	}

	scope := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("status = ?", models.StatusPublished)
		if featuredOnly {
			tx = tx.Where("featured = ?", true)
		}
		// Undated rows sort as the epoch, matching mergeResources.
		return tx.Order("COALESCE(published_on, '1970-01-01') DESC").Limit(limit)
	}

	var articles []models.Article
	var videos []models.Video
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(preloadResource(db.WithContext(gctx)).Preload("Tags")).Find(&articles).Error
	})
	g.Go(func() error {
		return scope(preloadResource(db.WithContext(gctx))).Find(&videos).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var a, v []models.ResourceItem
	for i := range articles {
		a = append(a, NormalizeResourceArticle(&articles[i]))
	}
	for i := range videos {
		v = append(v, NormalizeResourceVideo(&videos[i]))
	}
	items := mergeResources(a, v)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
