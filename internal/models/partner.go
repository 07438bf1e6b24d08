package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Partner is a team member shown on the site. IsAuthor gates eligibility
// as a resource author; OrderIndex sets display order and need not be
// contiguous.
type Partner struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Title      string    `json:"title"`
	Bio        string    `gorm:"type:text" json:"bio"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	LinkedIn   string    `json:"linkedin"`
	AvatarURL  string    `json:"avatar_url"`
	OrderIndex int       `gorm:"default:0;index" json:"order_index"`
	ShowOnTeam bool      `gorm:"default:false" json:"show_on_team"`
	IsAuthor   bool      `gorm:"default:false" json:"is_author"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Partner) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Partner) ToAuthorRef() AuthorRef {
	return AuthorRef{
		ID:        p.ID.String(),
		Name:      p.Name,
		Title:     p.Title,
		AvatarURL: p.AvatarURL,
	}
}
