package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/identity"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)

func (f loaderFunc) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f(ctx, id)
}

func knownUser(u *models.User) loaderFunc {
	return func(_ context.Context, id uuid.UUID) (*models.User, error) {
		if id == u.ID {
			return u, nil
		}
		return nil, users.ErrNotFound
	}
}

func newProtectedApp(t *testing.T, loader UserLoader) (*fiber.App, *services.TokenIssuer) {
	t.Helper()
	issuer, err := services.NewTokenIssuer("middleware-secret", time.Hour)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", Protect(issuer, loader), func(c *fiber.Ctx) error {
		id, err := identity.FromCtx(c)
		if err != nil {
			return err
		}
		return c.SendString(id.User.Email)
	})
	return app, issuer
}

func call(t *testing.T, app *fiber.App, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	if resp.StatusCode != http.StatusOK {
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body["message"].(string)
	}
	buf := make([]byte, 256)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestProtect_ValidToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	app, issuer := newProtectedApp(t, knownUser(user))

	token, err := issuer.Issue(user.ID.String())
	require.NoError(t, err)

	status, body := call(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ada@example.com", body)
}

func TestProtect_Rejections(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	app, issuer := newProtectedApp(t, knownUser(user))

	deleted, err := issuer.Issue(uuid.NewString())
	require.NoError(t, err)
	notUUID, err := issuer.Issue("not-a-uuid")
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	forged, err := foreign.SignedString([]byte("someone-else"))
	require.NoError(t, err)

	expiredClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	expired, err := expiredClaims.SignedString([]byte("middleware-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer "},
		{name: "malformed", header: "Bearer not.a.jwt"},
		{name: "wrong secret", header: "Bearer " + forged},
		{name: "expired", header: "Bearer " + expired},
		{name: "deleted user", header: "Bearer " + deleted},
		{name: "subject not a uuid", header: "Bearer " + notUUID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := call(t, app, tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "Not authorized to access this route", msg)
		})
	}
}

func TestProtect_LookupFailureIsServerError(t *testing.T) {
	app, issuer := newProtectedApp(t, loaderFunc(func(context.Context, uuid.UUID) (*models.User, error) {
		return nil, errors.New("db down")
	}))
	token, err := issuer.Issue(uuid.NewString())
	require.NoError(t, err)

	status, msg := call(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", msg)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Token abc"))
	assert.Empty(t, bearerToken("Bearer"))
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
