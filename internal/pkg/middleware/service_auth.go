package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soundrift/billingsync/internal/pkg/env"
)

// ServiceAuthMiddleware authenticates app-facing requests with the shared
// service token. The webhook endpoint never goes through this: it is
// signature-verified instead.
func ServiceAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(env.GetEnv("SERVICE_API_TOKEN", ""))
		if expected == "" {
			log.Print("service auth middleware: SERVICE_API_TOKEN not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Service token not configured"})
		}

		token := extractServiceTokenFromHeader(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing service token"})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service token"})
		}

		return c.Next()
	}
}

func extractServiceTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Service-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
