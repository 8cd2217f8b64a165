package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/auth"
	"github.com/makeasinger/musicgen/internal/middleware"
)

// AuthHandler handles ForwardAuth verification for the API gateway
type AuthHandler struct {
	verifier auth.TokenVerifier
}

func NewAuthHandler(verifier auth.TokenVerifier) *AuthHandler {
	return &AuthHandler{verifier: verifier}
}

// Verify handles GET /auth/verify, called by the gateway's ForwardAuth.
// Returns 200 with X-User-* headers on success, 401 on failure.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	tokenString, ok := middleware.BearerToken(c)
	if !ok || h.verifier == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	claims, err := h.verifier.Validate(tokenString)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set("X-User-Id", claims.User())
	c.Set("X-User-Email", claims.Email)
	c.Set("X-User-Name", claims.Name)
	return c.SendStatus(fiber.StatusOK)
}
