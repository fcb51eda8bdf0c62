package middleware

import (
	"apex-dashboard/internal/common/models"
	"apex-dashboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RequireRole lets the request through when any role in the token
// satisfies required. It must run after AuthMiddleware.
func RequireRole(required models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, r := range claims.Roles {
			if models.Role(r).AtLeast(required) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: " + string(required) + " role required",
		})
	}
}
