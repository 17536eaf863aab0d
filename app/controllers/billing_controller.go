package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/soundrift/billingsync/internal/pkg/billing"
	"github.com/soundrift/billingsync/internal/pkg/database"
	"github.com/soundrift/billingsync/internal/pkg/env"
)

type portalLinkRequest struct {
	UserID uint `json:"user_id"`
}

// HandlePortalLink returns a Stripe-hosted subscription management URL for
// the given user. The main application redirects the browser there from the
// account page.
func HandlePortalLink(c *fiber.Ctx) error {
	var req portalLinkRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "user_id is required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeProviderFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	returnURL := env.GetEnv("PORTAL_RETURN_URL", "")
	url, err := svc.CreatePortalLink(ctx, req.UserID, returnURL)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownCustomer) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No billing customer for user"})
		}
		log.Printf("portal link for user %d failed: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "portal_link_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"url": url})
}

// HandleUserSubscription returns the stored subscription for a user, for the
// account page and feature gating in the main application.
func HandleUserSubscription(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid user id"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeProviderFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := svc.GetUserSubscription(ctx, uint(userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No subscription for user"})
		}
		log.Printf("subscription lookup for user %d failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(sub)
}
