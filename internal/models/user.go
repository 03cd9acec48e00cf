package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

// User is the credential record shared by local and federated sign-in.
// PasswordHash is only set for local users and never leaves the process.
type User struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string            `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string            `gorm:"column:password_hash" json:"-"`
	DisplayName  string            `gorm:"size:255" json:"displayName"`
	Avatar       *string           `gorm:"size:1024" json:"avatar"`
	AuthProvider string            `gorm:"size:20;not null" json:"authProvider"`
	GoogleID     *string           `gorm:"size:255;uniqueIndex" json:"-"`
	Preferences  datatypes.JSONMap `gorm:"type:jsonb" json:"preferences"`
	AvatarID     *string           `gorm:"size:100" json:"avatarId"`
	VoiceID      *string           `gorm:"size:100" json:"voiceId"`
	LastLogin    *time.Time        `json:"lastLogin"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (u *User) IsLocal() bool {
	return u.AuthProvider == AuthProviderLocal
}
