package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/pkg/response"
)

// GatewaySecretHeader carries the shared secret a gateway proves itself with.
const GatewaySecretHeader = "X-Gateway-Secret"

// GatewayAuthMiddleware trusts the X-User-* headers set by a gateway that
// already verified the caller through /auth/verify. With a non-empty secret,
// requests that do not carry it in GatewaySecretHeader are rejected.
func GatewayAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.Get(GatewaySecretHeader)), []byte(secret)) != 1 {
			return response.Unauthorized(c, "Request did not come through the gateway")
		}

		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		setIdentity(c, userID, c.Get("X-User-Email"), c.Get("X-User-Name"))
		return c.Next()
	}
}
