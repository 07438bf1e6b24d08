package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID               uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Slug             string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title            string        `gorm:"not null" json:"title"`
	Status           ContentStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Summary          string        `gorm:"type:text" json:"summary"`
	Description      string        `gorm:"type:text" json:"description"`
	StartsAt         time.Time     `gorm:"not null;index" json:"starts_at"`
	EndsAt           *time.Time    `json:"ends_at,omitempty"`
	LocationName     string        `json:"location_name"`
	LocationAddress  string        `json:"location_address"`
	LocationCity     string        `json:"location_city"`
	IsOnline         bool          `gorm:"default:false" json:"is_online"`
	RegistrationURL  string        `json:"registration_url"`
	RegistrationOpen bool          `gorm:"default:false" json:"registration_open"`
	Capacity         int           `json:"capacity"`
	Image            string        `json:"image"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Derived on read, never stored.
	IsPast bool `gorm:"-" json:"is_past"`

	// Relations
	Resources []EventResource `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"resources"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Derive sets the read-only fields relative to now.
func (e *Event) Derive(now time.Time) {
	e.IsPast = e.StartsAt.Before(now)
	if e.Resources == nil {
		e.Resources = []EventResource{}
	}
}

type EventResource struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Title     string    `gorm:"not null" json:"title"`
	FileURL   string    `gorm:"not null" json:"file_url"`
	FileSize  int64     `json:"file_size"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *EventResource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
