package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tasksync/pkg/logger"
)

// ErrorHandler memulihkan panic menjadi 500 dan mencatat setiap request.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				errMsg := fmt.Sprintf("Recovered from panic: %v", r)
				logger.ErrorLogger.Error(errMsg, zap.String("stack", string(debug.Stack())))
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
					"error":   "Internal server error",
					"success": false,
					"status":  fiber.StatusInternalServerError,
				})
			}
		}()
		// Logging request masuk
		logger.RequestLogger.Info("Incoming request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
		)
		err = c.Next()
		logger.RequestLogger.Info("Request completed",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}
