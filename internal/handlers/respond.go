package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/dto"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/identity"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Success: false, Message: message})
}

// serverError logs and reports err, then answers with a generic 500.
func serverError(c *fiber.Ctx, op string, err error) error {
	slog.Error(op+" failed",
		"error", err,
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"user_id", identity.UserIDString(c),
		"method", c.Method(),
		"path", c.Path(),
	)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	return fail(c, fiber.StatusInternalServerError, "Server error")
}
