package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/dto"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	oauthErrorCode  = "oauth_error"
	oauthFailedCode = "oauth_failed"
)

type AuthHandler struct {
	authService *services.AuthService
	google      services.IdentityProvider
	clientURL   string
}

// NewAuthHandler builds the auth endpoints. google may be nil when the
// provider is not configured; its routes are then not mounted.
func NewAuthHandler(authService *services.AuthService, google services.IdentityProvider, clientURL string) *AuthHandler {
	return &AuthHandler{authService: authService, google: google, clientURL: clientURL}
}

func (h *AuthHandler) GoogleEnabled() bool {
	return h.google != nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserExists):
			return fail(c, fiber.StatusBadRequest, "User already exists")
		case errors.Is(err, services.ErrBadRequest):
			return fail(c, fiber.StatusBadRequest, "Please provide an email, password and display name")
		case errors.Is(err, services.ErrPasswordTooLong):
			return fail(c, fiber.StatusBadRequest, "Password must be at most 72 bytes")
		}
		return serverError(c, "register", err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{
		Success: true, Token: res.Token, User: res.User,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredentials):
			return fail(c, fiber.StatusBadRequest, "Please provide an email and password")
		case errors.Is(err, services.ErrInvalidCredentials):
			return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		return serverError(c, "login", err)
	}

	return c.JSON(dto.AuthResponse{Success: true, Token: res.Token, User: res.User})
}

func (h *AuthHandler) GoogleAuth(c *fiber.Ctx) error {
	authURL, err := h.authService.BeginFederated(c.UserContext(), h.google)
	if err != nil {
		slog.Error("oauth initiate failed", "provider", h.google.Name(), "error", err)
		return h.loginRedirect(c, oauthErrorCode)
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	res, err := h.authService.CompleteFederated(c.UserContext(), h.google, services.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	})
	if err != nil {
		if errors.Is(err, services.ErrOAuthProvider) {
			return h.loginRedirect(c, oauthErrorCode)
		}
		if !errors.Is(err, services.ErrOAuthResolutionFailed) {
			slog.Error("oauth user resolution failed", "provider", h.google.Name(), "error", err)
		}
		return h.loginRedirect(c, oauthFailedCode)
	}

	userJSON, err := json.Marshal(res.User)
	if err != nil {
		slog.Error("encode oauth user", "error", err)
		return h.loginRedirect(c, oauthFailedCode)
	}

	q := url.Values{}
	q.Set("token", res.Token)
	q.Set("user", string(userJSON))
	return c.Redirect(h.clientURL+"/auth/callback?"+q.Encode(), fiber.StatusFound)
}

func (h *AuthHandler) loginRedirect(c *fiber.Ctx, code string) error {
	return c.Redirect(h.clientURL+"/login?error="+code, fiber.StatusFound)
}
