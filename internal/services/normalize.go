package services

import (
	"github.com/gcforum/portal/internal/models"
)

// NormalizeResourceArticle converts a stored article, with its relations
// preloaded, into the canonical resource shape.
func NormalizeResourceArticle(a *models.Article) models.ResourceItem {
	item := models.ResourceItem{
		ID:          a.ID.String(),
		Slug:        a.Slug,
		Title:       a.Title,
		Type:        models.ResourceArticle,
		Status:      a.Status,
		Category:    categoryRef(a.Category),
		Tags:        make([]string, 0, len(a.Tags)),
		PublishedOn: a.PublishedOn,
		Featured:    a.Featured,
		Excerpt:     a.Excerpt,
		ContentHTML: a.ContentHTML,
		Image:       a.HeroImage,
		SEO:         a.SEO,
	}
	for _, t := range a.Tags {
		item.Tags = append(item.Tags, t.Name)
	}
	item.AuthorIDs, item.Authors = authorRefs(a.Authors)
	return item
}

// NormalizeResourceVideo is NormalizeResourceArticle for videos, which
// carry a URL instead of a body and never have tags.
func NormalizeResourceVideo(v *models.Video) models.ResourceItem {
	item := models.ResourceItem{
		ID:          v.ID.String(),
		Slug:        v.Slug,
		Title:       v.Title,
		Type:        models.ResourceVideo,
		Status:      v.Status,
		Category:    categoryRef(v.Category),
		Tags:        []string{},
		PublishedOn: v.PublishedOn,
		Featured:    v.Featured,
		Excerpt:     v.Excerpt,
		VideoURL:    v.VideoURL,
		Image:       v.Thumbnail,
		SEO:         v.SEO,
	}
	item.AuthorIDs, item.Authors = authorRefs(v.Authors)
	return item
}

func categoryRef(c *models.Category) *models.CategoryRef {
	if c == nil {
		return nil
	}
	return &models.CategoryRef{ID: c.ID.String(), Slug: c.Slug, Name: c.Name}
}

func authorRefs(partners []models.Partner) ([]string, []models.AuthorRef) {
	ids := make([]string, 0, len(partners))
	refs := make([]models.AuthorRef, 0, len(partners))
	for i := range partners {
		ids = append(ids, partners[i].ID.String())
		refs = append(refs, partners[i].ToAuthorRef())
	}
	return ids, refs
}
