package models

import (
	"time"

	"github.com/google/uuid"
)

type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "pending"
	ProfileStatusApproved  ProfileStatus = "approved"
	ProfileStatusRejected  ProfileStatus = "rejected"
	ProfileStatusSuspended ProfileStatus = "suspended"
	ProfileStatusClosed    ProfileStatus = "closed"
)

func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusPending, ProfileStatusApproved, ProfileStatusRejected,
		ProfileStatusSuspended, ProfileStatusClosed:
		return true
	}
	return false
}

// Profile is the application record for a registered identity. Profiles
// are never deleted; closing an account is a status change.
type Profile struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	FullName        string        `json:"full_name"`
	Role            Role          `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status          ProfileStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Organisation    string        `gorm:"index" json:"organisation"`
	Title           string        `json:"title"`
	Email           string        `gorm:"index" json:"email"`
	Phone           string        `json:"phone"`
	Location        string        `gorm:"index" json:"location"`
	Sector          string        `gorm:"index" json:"sector"`
	JobLevel        string        `json:"job_level"`
	LinkedIn        string        `json:"linkedin"`
	AvatarURL       string        `json:"avatar_url"`
	ShowInDirectory bool          `gorm:"default:false" json:"show_in_directory"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Listed reports whether the profile may appear in the public directory.
func (p *Profile) Listed() bool {
	return p.Status == ProfileStatusApproved && p.ShowInDirectory
}

// MemberCard is the directory-facing view of a profile. Contact details
// beyond the organisation and public links are left out.
type MemberCard struct {
	ID           uuid.UUID     `json:"id"`
	FullName     string        `json:"full_name"`
	Organisation string        `json:"organisation"`
	Title        string        `json:"title"`
	Location     string        `json:"location"`
	Sector       string        `json:"sector"`
	JobLevel     string        `json:"job_level"`
	LinkedIn     string        `json:"linkedin,omitempty"`
	AvatarURL    string        `json:"avatar_url,omitempty"`
	Role         Role          `json:"role,omitempty"`
	Status       ProfileStatus `json:"status,omitempty"`
	Email        string        `json:"email,omitempty"`
	Listed       bool          `json:"show_in_directory"`
}

// ToCard converts the profile for directory output. Admin views also get
// role, status and email.
func (p *Profile) ToCard(admin bool) MemberCard {
	card := MemberCard{
		ID:           p.ID,
		FullName:     p.FullName,
		Organisation: p.Organisation,
		Title:        p.Title,
		Location:     p.Location,
		Sector:       p.Sector,
		JobLevel:     p.JobLevel,
		LinkedIn:     p.LinkedIn,
		AvatarURL:    p.AvatarURL,
		Listed:       p.ShowInDirectory,
	}
	if admin {
		card.Role = p.Role
		card.Status = p.Status
		card.Email = p.Email
	}
	return card
}
