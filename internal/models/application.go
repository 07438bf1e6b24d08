package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// MemberApplication is a request to join. It only leaves pending once, via
// the review workflow, and is kept indefinitely.
type MemberApplication struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	FullName         string            `gorm:"not null" json:"full_name"`
	Email            string            `gorm:"not null;index" json:"email"`
	Phone            string            `json:"phone"`
	Organisation     string            `json:"organisation"`
	Title            string            `json:"title"`
	Location         string            `json:"location"`
	Sector           string            `json:"sector"`
	JobLevel         string            `json:"job_level"`
	TeamSize         string            `json:"team_size"`
	LinkedIn         string            `json:"linkedin"`
	Message          string            `gorm:"type:text" json:"message"`
	ConsentDirectory bool              `json:"consent_directory"`
	ConsentTerms     bool              `json:"consent_terms"`
	Status           ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewerID       *uuid.UUID        `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewerNotes    string            `gorm:"type:text" json:"reviewer_notes,omitempty"`
	ReviewedAt       *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (a *MemberApplication) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
