// Package users is the credential store: persistence of user records behind
// a repository interface with Postgres (GORM) and MongoDB implementations.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// NullableString is a partial-update field. Set=false leaves the column
// untouched; Set=true with a nil Value clears it.
type NullableString struct {
	Set   bool
	Value *string
}

// ProfileUpdate carries only the fields a request actually supplied.
type ProfileUpdate struct {
	Preferences map[string]any
	AvatarID    NullableString
	VoiceID     NullableString
}

// Empty reports whether the update would not touch any field.
func (u ProfileUpdate) Empty() bool {
	return u.Preferences == nil && !u.AvatarID.Set && !u.VoiceID.Set
}

type Repository interface {
	// Create inserts a new user. A unique-index violation on email or
	// provider id is reported as ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetByEmail loads the user including its password hash.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error)
	Ping(ctx context.Context) error
}
