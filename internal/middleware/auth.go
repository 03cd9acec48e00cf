package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/dto"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/identity"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const notAuthorizedMessage = "Not authorized to access this route"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Protect resolves the bearer token to a user and attaches it to the request
// via identity.Set. Any token or lookup failure short-circuits with 401.
func Protect(tokens TokenVerifier, loader UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return unauthorized(c)
		}

		subject, err := tokens.Verify(raw)
		if err != nil {
			slog.Debug("bearer token rejected", "path", c.Path(), "error", err)
			return unauthorized(c)
		}

		userID, err := uuid.Parse(subject)
		if err != nil {
			return unauthorized(c)
		}

		user, err := loader.GetByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return unauthorized(c)
			}
			slog.Error("identity lookup failed", "user_id", subject, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Success: false, Message: "Server error",
			})
		}

		identity.Set(c, &identity.Identity{UserID: userID, User: user})
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Success: false, Message: notAuthorizedMessage,
	})
}
