package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/dto"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/identity"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	id, err := identity.FromCtx(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Not authorized to access this route")
	}

	user, err := h.userService.GetMe(c.UserContext(), id.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fail(c, fiber.StatusUnauthorized, "Not authorized to access this route")
		}
		return serverError(c, "get current user", err)
	}

	return c.JSON(dto.UserResponse{Success: true, User: user})
}

func (h *UserHandler) UpdatePreferences(c *fiber.Ctx) error {
	id, err := identity.FromCtx(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Not authorized to access this route")
	}

	var req dto.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := h.userService.UpdatePreferences(c.UserContext(), id.UserID, req.Preferences)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return serverError(c, "update preferences", err)
	}

	return c.JSON(dto.UserResponse{Success: true, User: user})
}
