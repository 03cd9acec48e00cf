// Package identity carries the authenticated user through a request.
package identity

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const localsKey = "identity"

var ErrNoIdentity = errors.New("no authenticated identity in context")

// Identity is the resolved bearer of a verified token.
type Identity struct {
	UserID uuid.UUID
	User   *models.User
}

// Set attaches id to the request. The auth middleware is the only writer.
func Set(c *fiber.Ctx, id *Identity) {
	c.Locals(localsKey, id)
}

// FromCtx returns the identity attached by the auth middleware.
func FromCtx(c *fiber.Ctx) (*Identity, error) {
	id, ok := c.Locals(localsKey).(*Identity)
	if !ok || id == nil {
		return nil, ErrNoIdentity
	}
	return id, nil
}

// UserIDString returns the user id for logging, or "" when unauthenticated.
func UserIDString(c *fiber.Ctx) string {
	if id, err := FromCtx(c); err == nil {
		return id.UserID.String()
	}
	return ""
}
