package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	cfg "github.com/socialapp/social-executor/configs"
)

type AuthMiddleware struct {
	cfg cfg.Config
}

func NewAuthMiddleware(c cfg.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: c}
}

// RequireAPIKey guards the admin surface. The key is accepted as a header or
// a query parameter so curl one-liners and dashboards both work.
func (m *AuthMiddleware) RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}

		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing API key",
			})
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(m.cfg.AdminAPIKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid API key",
			})
		}

		return c.Next()
	}
}
