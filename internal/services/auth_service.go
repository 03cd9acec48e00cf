package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/google/uuid"
)

var (
	ErrBadRequest            = errors.New("email, password and display name are required")
	ErrMissingCredentials    = errors.New("email and password are required")
	ErrPasswordTooLong       = errors.New("password exceeds 72 bytes")
	ErrUserExists            = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrOAuthProvider         = errors.New("oauth provider error")
	ErrOAuthResolutionFailed = errors.New("oauth user could not be resolved")
)

// PublicUser is the projection returned to clients after authentication.
type PublicUser struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	Avatar      *string        `json:"avatar,omitempty"`
	Preferences map[string]any `json:"preferences"`
}

func NewPublicUser(u *models.User) PublicUser {
	prefs := map[string]any(u.Preferences)
	if prefs == nil {
		prefs = map[string]any{}
	}
	return PublicUser{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Preferences: prefs,
	}
}

type AuthResult struct {
	Token string
	User  PublicUser
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type AuthService struct {
	users     users.Repository
	passwords *PasswordHasher
	tokens    *TokenIssuer
	now       func() time.Time
}

func NewAuthService(repo users.Repository, passwords *PasswordHasher, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		users:     repo,
		passwords: passwords,
		tokens:    tokens,
		now:       time.Now,
	}
}

// bcrypt only reads the first 72 bytes of a password.
const maxPasswordBytes = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	displayName := strings.TrimSpace(in.DisplayName)
	if email == "" || in.Password == "" || displayName == "" {
		return nil, ErrBadRequest
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		AuthProvider: models.AuthProviderLocal,
		Preferences:  map[string]any{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsLocal() || !s.passwords.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now

	return s.issue(user)
}

// BeginFederated returns the consent URL of the given provider.
func (s *AuthService) BeginFederated(ctx context.Context, provider IdentityProvider) (string, error) {
	authURL, err := provider.BeginAuthorization(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOAuthProvider, err)
	}
	return authURL, nil
}

// CompleteFederated finishes a provider handshake, resolves or creates the
// local user and issues a token for it.
func (s *AuthService) CompleteFederated(ctx context.Context, provider IdentityProvider, cb CallbackParams) (*AuthResult, error) {
	assertion, err := provider.CompleteAuthorization(ctx, cb)
	if err != nil {
		slog.Warn("oauth callback failed", "provider", provider.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOAuthProvider, err)
	}

	user, err := s.resolveFederatedUser(ctx, assertion)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) resolveFederatedUser(ctx context.Context, a *IdentityAssertion) (*models.User, error) {
	email := normalizeEmail(a.Email)
	if a.Subject == "" || email == "" {
		return nil, ErrOAuthResolutionFailed
	}

	user, err := s.users.GetByGoogleID(ctx, a.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("lookup federated user: %w", err)
	}

	user, err = s.lookupByVerifiedEmail(ctx, email, a.EmailVerified)
	if err == nil || !errors.Is(err, users.ErrNotFound) {
		return user, err
	}

	displayName := strings.TrimSpace(a.DisplayName)
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}
	subject := a.Subject
	user = &models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		AuthProvider: a.Provider,
		GoogleID:     &subject,
		Preferences:  map[string]any{},
	}
	if a.Picture != "" {
		picture := a.Picture
		user.Avatar = &picture
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return s.resolveAfterRace(ctx, a.Subject, email, a.EmailVerified)
		}
		return nil, fmt.Errorf("create federated user: %w", err)
	}
	slog.Info("federated user created", "user_id", user.ID.String(), "provider", a.Provider)
	return user, nil
}

// resolveAfterRace re-resolves once after Create hit a unique index. The
// winner may hold either the subject or the email.
func (s *AuthService) resolveAfterRace(ctx context.Context, subject, email string, verified bool) (*models.User, error) {
	user, err := s.users.GetByGoogleID(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("lookup federated user: %w", err)
	}

	user, err = s.lookupByVerifiedEmail(ctx, email, verified)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrOAuthResolutionFailed
	}
	return user, err
}

// lookupByVerifiedEmail returns an existing account with the email. The
// account keeps its original auth provider. An unverified provider email
// never resolves to an existing account.
func (s *AuthService) lookupByVerifiedEmail(ctx context.Context, email string, verified bool) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !verified {
		return nil, ErrOAuthResolutionFailed
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: NewPublicUser(user)}, nil
}
