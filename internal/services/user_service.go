package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/google/uuid"
)

const (
	prefAvatarID = "avatarId"
	prefVoiceID  = "voiceId"
)

type UserService struct {
	users users.Repository
}

func NewUserService(repo users.Repository) *UserService {
	return &UserService{users: repo}
}

func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdatePreferences promotes avatarId and voiceId to top-level fields and
// stores the remaining keys as the preferences document. Keys absent from
// prefs are left untouched.
func (s *UserService) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs map[string]any) (*models.User, error) {
	user, err := s.users.UpdateProfile(ctx, userID, SplitPreferences(prefs))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return user, nil
}

// SplitPreferences builds a partial profile update from a raw preferences
// object. A falsy avatarId or voiceId clears the field.
func SplitPreferences(prefs map[string]any) users.ProfileUpdate {
	var update users.ProfileUpdate
	rest := make(map[string]any, len(prefs))
	for key, value := range prefs {
		switch key {
		case prefAvatarID:
			update.AvatarID = nullableFromValue(value)
		case prefVoiceID:
			update.VoiceID = nullableFromValue(value)
		default:
			rest[key] = value
		}
	}
	if len(rest) > 0 {
		update.Preferences = rest
	}
	return update
}

func nullableFromValue(v any) users.NullableString {
	if isFalsy(v) {
		return users.NullableString{Set: true}
	}
	var s string
	if str, ok := v.(string); ok {
		s = str
	} else {
		s = fmt.Sprint(v)
	}
	return users.NullableString{Set: true, Value: &s}
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0 || math.IsNaN(t)
	case int:
		return t == 0
	}
	return false
}
