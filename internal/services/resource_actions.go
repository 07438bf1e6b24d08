package services

import (
	"context"
	"strings"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResourceInput holds the fields articles and videos share.
type ResourceInput struct {
	ID          string               `json:"id" validate:"omitempty,uuid"`
	Title       string               `json:"title" validate:"required,max=200"`
	Slug        string               `json:"slug" validate:"max=200"`
	Status      models.ContentStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Category    string               `json:"category"`
	AuthorIDs   []string             `json:"author_ids" validate:"dive,uuid"`
	PublishedOn string               `json:"published_on"`
	Featured    bool                 `json:"featured"`
	Excerpt     string               `json:"excerpt" validate:"max=500"`
	SEO         models.SEO           `json:"seo"`
}

type ArticleInput struct {
	ResourceInput
	Tags        []string `json:"tags" validate:"dive,required,max=50"`
	ContentHTML string   `json:"content_html"`
	HeroImage   string   `json:"hero_image"`
}

type VideoInput struct {
	ResourceInput
	VideoURL  string `json:"video_url" validate:"required,url"`
	Thumbnail string `json:"thumbnail"`
}

// UpsertResourceArticle creates an article, or updates the one named by
// ID. A missing slug is derived from the title on create and kept on
// update. Slugs are unique across articles and videos. Publishing without
// a date stamps today; an update without a date keeps the stored one.
func (s *AdminService) UpsertResourceArticle(ctx context.Context, in ArticleInput) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}
	publishedOn, err := parseOptionalDate(in.PublishedOn)
	if err != nil {
		return invalid(map[string]string{"published_on": "Use YYYY-MM-DD."})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var article models.Article
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ID != "" {
			if err := tx.First(&article, "id = ?", in.ID).Error; err != nil {
				return err
			}
		}

		slug := resolveSlug(in.Slug, in.Title, article.Slug)
		if err := ensureResourceSlugFree(tx, slug, article.ID); err != nil {
			return err
		}
		categoryID, err := resolveCategory(tx, in.Category)
		if err != nil {
			return err
		}
		authors, err := loadAuthors(tx, in.AuthorIDs)
		if err != nil {
			return err
		}
		tags, err := upsertTags(tx, in.Tags)
		if err != nil {
			return err
		}

		article.Slug = slug
		article.Title = strings.TrimSpace(in.Title)
		article.Status = statusOrDraft(in.Status)
		article.CategoryID = categoryID
		if publishedOn != nil {
			article.PublishedOn = publishedOn
		}
		if article.Status == models.StatusPublished && article.PublishedOn == nil {
			t := today(s.now())
			article.PublishedOn = &t
		}
		article.Featured = in.Featured
		article.Excerpt = in.Excerpt
		article.ContentHTML = in.ContentHTML
		article.HeroImage = in.HeroImage
		article.SEO = in.SEO
		article.Category = nil
		article.Tags = nil
		article.Authors = nil

		if err := tx.Omit(clause.Associations).Save(&article).Error; err != nil {
			return err
		}
		if err := replaceAssociation(tx, &article, "Tags", tags); err != nil {
			return err
		}
		return replaceAssociation(tx, &article, "Authors", authors)
	})
	if err != nil {
		return failure("article.upsert", err)
	}

	invalidate(ctx, s.cache, cache.TagResources, cache.TagHome)
	r := succeeded("Article saved.")
	r.ID = article.ID.String()
	return r
}

func (s *AdminService) DeleteResourceArticle(ctx context.Context, id string) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		article := models.Article{ID: uid}
		if err := tx.Model(&article).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&article).Association("Authors").Clear(); err != nil {
			return err
		}
		return deleteByID(tx, &models.Article{}, uid)
	})
	if err != nil {
		return failure("article.delete", err)
	}

	invalidate(ctx, s.cache, cache.TagResources, cache.TagHome)
	return succeeded("Article deleted.")
}

// UpsertResourceVideo is UpsertResourceArticle for videos.
func (s *AdminService) UpsertResourceVideo(ctx context.Context, in VideoInput) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	if errs := validateStruct(in); errs != nil {
		return invalid(errs)
	}
	publishedOn, err := parseOptionalDate(in.PublishedOn)
	if err != nil {
		return invalid(map[string]string{"published_on": "Use YYYY-MM-DD."})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var video models.Video
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ID != "" {
			if err := tx.First(&video, "id = ?", in.ID).Error; err != nil {
				return err
			}
		}

		slug := resolveSlug(in.Slug, in.Title, video.Slug)
		if err := ensureResourceSlugFree(tx, slug, video.ID); err != nil {
			return err
		}
		categoryID, err := resolveCategory(tx, in.Category)
		if err != nil {
			return err
		}
		authors, err := loadAuthors(tx, in.AuthorIDs)
		if err != nil {
			return err
		}

		video.Slug = slug
		video.Title = strings.TrimSpace(in.Title)
		video.Status = statusOrDraft(in.Status)
		video.CategoryID = categoryID
		if publishedOn != nil {
			video.PublishedOn = publishedOn
		}
		if video.Status == models.StatusPublished && video.PublishedOn == nil {
			t := today(s.now())
			video.PublishedOn = &t
		}
		video.Featured = in.Featured
		video.Excerpt = in.Excerpt
		video.VideoURL = in.VideoURL
		video.Thumbnail = in.Thumbnail
		video.SEO = in.SEO
		video.Category = nil
		video.Authors = nil

		if err := tx.Omit(clause.Associations).Save(&video).Error; err != nil {
			return err
		}
		return replaceAssociation(tx, &video, "Authors", authors)
	})
	if err != nil {
		return failure("video.upsert", err)
	}

	invalidate(ctx, s.cache, cache.TagResources, cache.TagHome)
	r := succeeded("Video saved.")
	r.ID = video.ID.String()
	return r
}

func (s *AdminService) DeleteResourceVideo(ctx context.Context, id string) ActionResult {
	db := s.backend.Service()
	if db == nil {
		return notConfigured()
	}
	uid, res := parseID(id)
	if res != nil {
		return *res
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Video{ID: uid}).Association("Authors").Clear(); err != nil {
			return err
		}
		return deleteByID(tx, &models.Video{}, uid)
	})
	if err != nil {
		return failure("video.delete", err)
	}

	invalidate(ctx, s.cache, cache.TagResources, cache.TagHome)
	return succeeded("Video deleted.")
}

// parseID checks the id every delete and status change needs.
func parseID(id string) (uuid.UUID, *ActionResult) {
	id = strings.TrimSpace(id)
	if id == "" {
		r := required("id")
		return uuid.Nil, &r
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		r := invalid(map[string]string{"id": "Must be a valid id."})
		return uuid.Nil, &r
	}
	return uid, nil
}

func deleteByID(tx *gorm.DB, model any, id uuid.UUID) error {
	res := tx.Delete(model, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func statusOrDraft(s models.ContentStatus) models.ContentStatus {
	if s == "" {
		return models.StatusDraft
	}
	return s
}

// resolveSlug prefers an explicit slug, then the item's current one, then
// one derived from the title.
func resolveSlug(explicit, title, current string) string {
	if slug := Slugify(explicit); slug != "" {
		return slug
	}
	if current != "" {
		return current
	}
	return Slugify(title)
}

func ensureResourceSlugFree(tx *gorm.DB, slug string, self uuid.UUID) error {
	if slug == "" {
		return &fieldError{"slug", "Could not derive a slug from the title."}
	}
	for _, model := range []any{&models.Article{}, &models.Video{}} {
		var n int64
		if err := tx.Model(model).Where("slug = ? AND id <> ?", slug, self).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &slugTakenError{slug}
		}
	}
	return nil
}

func resolveCategory(tx *gorm.DB, slug string) (*uuid.UUID, error) {
	if !active(slug) || slug == "none" {
		return nil, nil
	}
	var category models.Category
	if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &fieldError{"category", "Unknown category."}
		}
		return nil, err
	}
	return &category.ID, nil
}

// loadAuthors returns the partners for ids in the order given. Every id
// must be a partner flagged as an author.
func loadAuthors(tx *gorm.DB, ids []string) ([]models.Partner, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	notAuthor := &fieldError{"author_ids", "Every author must be a team member marked as an author."}

	parsed := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, raw := range ids {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, notAuthor
		}
		if !seen[id] {
			seen[id] = true
			parsed = append(parsed, id)
		}
	}

	var found []models.Partner
	if err := tx.Where("id IN ? AND is_author = ?", parsed, true).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Partner, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]models.Partner, 0, len(parsed))
	for _, id := range parsed {
		p, ok := byID[id]
		if !ok {
			return nil, notAuthor
		}
		out = append(out, p)
	}
	return out, nil
}

// upsertTags finds or creates a tag per distinct slug.
func upsertTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		var tag models.Tag
		if err := tx.Where(models.Tag{Slug: slug}).Attrs(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func replaceAssociation[T any](tx *gorm.DB, owner any, name string, values []T) error {
	assoc := tx.Model(owner).Association(name)
	if len(values) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}
