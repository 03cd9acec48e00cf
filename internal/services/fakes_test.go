package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/google/uuid"
)

// memRepo is an in-memory users.Repository enforcing unique email and
// google id the way the real stores' indexes do.
type memRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	calls map[string]int

	getErr    error
	createErr error
	// hideEmail and hideGoogleID make the next lookup miss once,
	// simulating a racing insert that has not committed yet.
	hideEmail    bool
	hideGoogleID bool
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[uuid.UUID]*models.User{}, calls: map[string]int{}}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.Preferences != nil {
		c.Preferences = map[string]any{}
		for k, v := range u.Preferences {
			c.Preferences[k] = v
		}
	}
	return &c
}

func (m *memRepo) seed(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = clone(u)
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Create"]++
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return users.ErrDuplicateEmail
		}
		if u.GoogleID != nil && existing.GoogleID != nil && *u.GoogleID == *existing.GoogleID {
			return users.ErrDuplicateEmail
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.byID[u.ID] = clone(u)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(u), nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetByEmail"]++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.hideEmail {
		m.hideEmail = false
		return nil, users.ErrNotFound
	}
	for _, u := range m.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memRepo) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.hideGoogleID {
		m.hideGoogleID = false
		return nil, users.ErrNotFound
	}
	for _, u := range m.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return clone(u), nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *memRepo) UpdateProfile(_ context.Context, id uuid.UUID, update users.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if update.Preferences != nil {
		u.Preferences = update.Preferences
	}
	if update.AvatarID.Set {
		u.AvatarID = update.AvatarID.Value
	}
	if update.VoiceID.Set {
		u.VoiceID = update.VoiceID.Value
	}
	return clone(u), nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

type fakeProvider struct {
	assertion *IdentityAssertion
	err       error
	beginURL  string
	beginErr  error
}

func (f *fakeProvider) Name() string { return "google" }

func (f *fakeProvider) BeginAuthorization(context.Context) (string, error) {
	return f.beginURL, f.beginErr
}

func (f *fakeProvider) CompleteAuthorization(context.Context, CallbackParams) (*IdentityAssertion, error) {
	return f.assertion, f.err
}
