package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"worksync/models"
	"worksync/utils"
)

// Protected authenticates the request and stores the user and its worker in
// Locals under "user" and "worker".
func Protected(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
			}
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil || claims.TokenType != utils.AccessToken {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		var user models.User
		if err := db.Preload("Worker").First(&user, claims.UserID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
		}

		if !user.IsActive {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
		}

		if claims.TokenVersion != user.TokenVersion {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token version", nil)
		}

		if user.Worker == nil {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Account has no worker profile", nil)
		}
		worker := *user.Worker
		worker.User = user
		worker.User.Worker = nil

		c.Locals("user", &user)
		c.Locals("userID", user.ID)
		c.Locals("worker", &worker)

		return c.Next()
	}
}

// CurrentWorker returns the worker stored by Protected.
func CurrentWorker(c *fiber.Ctx) *models.Worker {
	worker, _ := c.Locals("worker").(*models.Worker)
	return worker
}
