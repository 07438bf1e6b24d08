package database

import (
	"embed"
	"strings"
	"time"

	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

//go:embed fallback/*.json
var fallbackFS embed.FS

// Rows in the fallback files use more than one key spelling per field
// (snake and camel case, "avatar" and "avatar_url"). Each field lists its
// accepted keys in order of preference.

// FallbackArticles returns the built-in articles served when the store is
// unavailable. Authors and categories are attached.
func FallbackArticles() []models.Article {
	doc := loadFallback("fallback/resources.json")
	authors := fallbackAuthors(doc)

	var out []models.Article
	for _, row := range doc.Get("articles").Array() {
		a := models.Article{
			ID:          parseID(row),
			Slug:        field(row, "slug"),
			Title:       field(row, "title"),
			Status:      models.ContentStatus(field(row, "status")),
			PublishedOn: parseDate(field(row, "published_on", "publishedOn", "published_at")),
			Featured:    row.Get("featured").Bool(),
			Excerpt:     field(row, "excerpt", "summary"),
			ContentHTML: field(row, "content_html", "contentHtml", "content"),
			HeroImage:   field(row, "hero_image", "heroImage", "image"),
			Category:    parseCategory(row),
			Authors:     pickAuthors(authors, list(row, "author_ids", "authorIds")),
		}
		if a.Category != nil {
			a.CategoryID = &a.Category.ID
		}
		for _, name := range list(row, "tags") {
			a.Tags = append(a.Tags, models.Tag{Slug: tagSlug(name), Name: name})
		}
		out = append(out, a)
	}
	return out
}

// FallbackVideos returns the built-in videos served when the store is
// unavailable.
func FallbackVideos() []models.Video {
	doc := loadFallback("fallback/resources.json")
	authors := fallbackAuthors(doc)

	var out []models.Video
	for _, row := range doc.Get("videos").Array() {
		v := models.Video{
			ID:          parseID(row),
			Slug:        field(row, "slug"),
			Title:       field(row, "title"),
			Status:      models.ContentStatus(field(row, "status")),
			PublishedOn: parseDate(field(row, "published_on", "publishedOn", "published_at")),
			Featured:    row.Get("featured").Bool(),
			Excerpt:     field(row, "excerpt", "summary"),
			VideoURL:    field(row, "video_url", "videoUrl", "url"),
			Thumbnail:   field(row, "thumbnail", "image"),
			Category:    parseCategory(row),
			Authors:     pickAuthors(authors, list(row, "author_ids", "authorIds")),
		}
		if v.Category != nil {
			v.CategoryID = &v.Category.ID
		}
		out = append(out, v)
	}
	return out
}

// FallbackAuthors returns the partners referenced by fallback resources.
func FallbackAuthors() []models.Partner {
	return fallbackAuthors(loadFallback("fallback/resources.json"))
}

// FallbackProfiles returns the built-in member roster. Callers filter it
// exactly as they would a live query.
func FallbackProfiles() []models.Profile {
	doc := loadFallback("fallback/members.json")

	var out []models.Profile
	for _, row := range doc.Array() {
		out = append(out, models.Profile{
			ID:              parseID(row),
			FullName:        field(row, "full_name", "fullName", "name"),
			Role:            models.RoleMember,
			Status:          models.ProfileStatus(field(row, "status")),
			Organisation:    field(row, "organisation", "organization", "company"),
			Title:           field(row, "title", "job_title"),
			Location:        field(row, "location"),
			Sector:          field(row, "sector"),
			JobLevel:        field(row, "job_level", "jobLevel"),
			LinkedIn:        field(row, "linkedin", "linkedIn"),
			AvatarURL:       field(row, "avatar_url", "avatarUrl", "avatar"),
			ShowInDirectory: boolField(row, "show_in_directory", "showInDirectory"),
		})
	}
	return out
}

func loadFallback(name string) gjson.Result {
	data, err := fallbackFS.ReadFile(name)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func fallbackAuthors(doc gjson.Result) []models.Partner {
	var out []models.Partner
	for i, row := range doc.Get("authors").Array() {
		out = append(out, models.Partner{
			ID:         parseID(row),
			Name:       field(row, "name", "full_name"),
			Title:      field(row, "title"),
			AvatarURL:  field(row, "avatar_url", "avatarUrl", "avatar"),
			OrderIndex: i,
			IsAuthor:   true,
		})
	}
	return out
}

func pickAuthors(all []models.Partner, ids []string) []models.Partner {
	var out []models.Partner
	for _, id := range ids {
		for _, p := range all {
			if p.ID.String() == id {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseCategory(row gjson.Result) *models.Category {
	if c := row.Get("category"); c.IsObject() {
		return &models.Category{
			ID:   uuidOrNew(c.Get("id").String()),
			Slug: c.Get("slug").String(),
			Name: c.Get("name").String(),
		}
	}
	slug := field(row, "category_slug", "categorySlug")
	if slug == "" {
		return nil
	}
	return &models.Category{
		ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("category:"+slug)),
		Slug: slug,
		Name: field(row, "category_name", "categoryName"),
	}
}

// field returns the first non-empty string among keys.
func field(row gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := row.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func boolField(row gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if v := row.Get(k); v.Exists() {
			return v.Bool()
		}
	}
	return false
}

func list(row gjson.Result, keys ...string) []string {
	for _, k := range keys {
		v := row.Get(k)
		if !v.Exists() {
			continue
		}
		var out []string
		for _, item := range v.Array() {
			if s := item.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseID(row gjson.Result) uuid.UUID {
	return uuidOrNew(field(row, "id"))
}

func uuidOrNew(raw string) uuid.UUID {
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.New()
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func tagSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
