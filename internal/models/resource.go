package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
)

func (s ContentStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type ResourceType string

const (
	ResourceArticle ResourceType = "article"
	ResourceVideo   ResourceType = "video"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Slug string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name string    `gorm:"not null" json:"name"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SEO holds the search metadata stored alongside content. It is stored
// and returned verbatim.
type SEO struct {
	SEOTitle       string `json:"seo_title"`
	SEODescription string `json:"seo_description"`
	SEOImage       string `json:"seo_image"`
}

type Article struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Slug        string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string        `gorm:"not null" json:"title"`
	Status      ContentStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CategoryID  *uuid.UUID    `gorm:"type:uuid;index" json:"category_id"`
	PublishedOn *time.Time    `gorm:"index" json:"published_on"`
	Featured    bool          `gorm:"default:false" json:"featured"`
	Excerpt     string        `gorm:"type:text" json:"excerpt"`
	ContentHTML string        `gorm:"type:text" json:"content_html"`
	HeroImage   string        `json:"hero_image"`
	SEO         SEO           `gorm:"embedded" json:"seo"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags     []Tag     `gorm:"many2many:article_tags" json:"tags,omitempty"`
	Authors  []Partner `gorm:"many2many:article_authors" json:"authors,omitempty"`
}

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Video has no tags; a tag filter always excludes videos.
type Video struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Slug        string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string        `gorm:"not null" json:"title"`
	Status      ContentStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CategoryID  *uuid.UUID    `gorm:"type:uuid;index" json:"category_id"`
	PublishedOn *time.Time    `gorm:"index" json:"published_on"`
	Featured    bool          `gorm:"default:false" json:"featured"`
	Excerpt     string        `gorm:"type:text" json:"excerpt"`
	VideoURL    string        `gorm:"not null" json:"video_url"`
	Thumbnail   string        `json:"thumbnail"`
	SEO         SEO           `gorm:"embedded" json:"seo"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Authors  []Partner `gorm:"many2many:video_authors" json:"authors,omitempty"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type CategoryRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type AuthorRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ResourceItem is the canonical shape of an article or a video.
type ResourceItem struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Type        ResourceType  `json:"type"`
	Status      ContentStatus `json:"status"`
	Category    *CategoryRef  `json:"category,omitempty"`
	Tags        []string      `json:"tags"`
	AuthorIDs   []string      `json:"author_ids"`
	Authors     []AuthorRef   `json:"authors"`
	PublishedOn *time.Time    `json:"published_on"`
	Featured    bool          `json:"featured"`
	Excerpt     string        `json:"excerpt,omitempty"`
	ContentHTML string        `json:"content_html,omitempty"`
	VideoURL    string        `json:"video_url,omitempty"`
	Image       string        `json:"image,omitempty"`
	SEO         SEO           `json:"seo"`
}

// SortTime is the publish date used for ordering; a missing date sorts
// as the earliest possible.
func (r *ResourceItem) SortTime() time.Time {
	if r.PublishedOn == nil {
		return time.Unix(0, 0).UTC()
	}
	return *r.PublishedOn
}
