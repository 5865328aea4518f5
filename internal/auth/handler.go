package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"meal-planner/internal/api"
	"meal-planner/internal/config"
	"meal-planner/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	users      *Users
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *Users, jwtSecret string, ttl config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtSecret:  jwtSecret,
		accessTTL:  ttl.AccessTokenTTL,
		refreshTTL: ttl.RefreshTokenTTL,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Email == "" || body.Password == "" {
		return api.UnauthorizedError("Email and password are required")
	}

	ctx := c.UserContext()

	user, err := h.users.FindByEmail(ctx, body.Email)
	if errors.Is(err, store.ErrNotFound) {
		return api.UnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return err
	}
	if !user.Active {
		return api.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, user.PasswordHash) {
		return api.UnauthorizedError("Invalid email or password")
	}

	pair, err := h.generateTokenPair(ctx, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.RefreshToken == "" {
		return api.UnauthorizedError("Refresh token is required")
	}

	ctx := c.UserContext()

	// The used token is deleted whether or not it is still valid.
	user, expiresAt, err := h.users.ConsumeRefreshToken(ctx, body.RefreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return api.UnauthorizedError("Invalid refresh token")
	}
	if err != nil {
		return err
	}
	if time.Now().After(expiresAt) {
		return api.UnauthorizedError("Refresh token expired")
	}
	if !user.Active {
		return api.UnauthorizedError("Account is disabled")
	}

	pair, err := h.generateTokenPair(ctx, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.RefreshToken == "" {
		return api.UnauthorizedError("Refresh token is required")
	}

	if err := h.users.RevokeRefreshToken(c.UserContext(), body.RefreshToken); err != nil {
		log.Printf("WARN: revoke refresh token: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uc := GetUser(c)
	if uc == nil {
		return api.UnauthorizedError("Missing auth token")
	}
	user, err := h.users.FindByID(c.UserContext(), uc.ID)
	if errors.Is(err, store.ErrNotFound) {
		return api.UnauthorizedError("Unknown user")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler, authMW fiber.Handler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
	auth.Get("/me", authMW, h.Me)
}

// --- helpers ---

func (h *AuthHandler) generateTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := GenerateAccessToken(user.ID, user.Email, h.jwtSecret, h.accessTTL)
	if err != nil {
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := GenerateRefreshToken()
	if err := h.users.SaveRefreshToken(ctx, user.ID, refreshToken, time.Now().Add(h.refreshTTL)); err != nil {
		log.Printf("ERROR: %v", err)
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(h.accessTTL.Seconds()),
	}, nil
}
