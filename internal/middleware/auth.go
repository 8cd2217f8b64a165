package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/auth"
	"github.com/makeasinger/musicgen/pkg/response"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	verifier auth.TokenVerifier
}

// NewAuthMiddleware creates auth middleware backed by verifier, usually an
// auth.Chain of the OIDC and HMAC verifiers.
func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate validates the bearer token of the Authorization header
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := BearerToken(c)
		if !ok {
			return response.Unauthorized(c, "Missing or malformed authorization header")
		}
		if m.verifier == nil {
			return response.Unauthorized(c, "Authentication not configured")
		}

		claims, err := m.verifier.Validate(tokenString)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		setIdentity(c, claims.User(), claims.Email, claims.Name)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// BearerToken extracts the token of a "Bearer <token>" Authorization header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *fiber.Ctx, userID, email, name string) {
	c.Locals("userId", userID)
	c.Locals("email", email)
	c.Locals("name", name)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
