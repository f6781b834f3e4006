package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/internal/config"
	"tasksync/pkg/logger"
	"tasksync/pkg/token"
)

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   message,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// UseToken memverifikasi header Authorization: Bearer <jwt> dan mengisi
// locals userID, email dan role dari claims.
func UseToken(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return unauthorized(c, "No token provided")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid token format")
	}
	claims, err := token.Parse(config.SecretKey, parts[1])
	if err != nil {
		logger.SecurityLogger.Warn("Rejected token", zap.String("ip", c.IP()), zap.Error(err))
		return unauthorized(c, "Invalid or expired token")
	}
	c.Locals("userID", claims.UserID)
	c.Locals("email", claims.Email)
	c.Locals("role", claims.Role)
	return c.Next()
}
