package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity is an account known to the auth provider. The application
// profile lives in Profile under the same ID.
type Identity struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string     `json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	InviteToken      string     `gorm:"index" json:"-"`
	InvitedAt        *time.Time `json:"invited_at,omitempty"`
	OneTimeToken     string     `gorm:"index" json:"-"`
	OneTimeExpires   *time.Time `json:"-"`
	RecoveryToken    string     `gorm:"index" json:"-"`
	RecoveryExpires  *time.Time `json:"-"`
	SessionID        string     `gorm:"index" json:"-"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Identity) TableName() string {
	return "auth_users"
}

func (u *Identity) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
