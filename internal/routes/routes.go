package routes

import (
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/handlers"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	protect fiber.Handler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	// Auth (public)
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	if authHandler.GoogleEnabled() {
		auth.Get("/google", authHandler.GoogleAuth)
		auth.Get("/google/callback", authHandler.GoogleCallback)
	}

	// Users (bearer token)
	users := api.Group("/users", protect)
	users.Get("/me", userHandler.GetMe)
	users.Put("/me/preferences", userHandler.UpdatePreferences)
}
