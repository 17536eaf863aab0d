package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soundrift/billingsync/app/models"
	"github.com/soundrift/billingsync/internal/pkg/billing"
	"github.com/soundrift/billingsync/internal/pkg/database"
	"github.com/soundrift/billingsync/internal/pkg/env"
)

const webhookTimeout = 15 * time.Second

// HandleStripeWebhook is the inbound event endpoint. Verification and routing
// failures are terminal for the request and answered immediately; failures
// inside the dispatch are logged and converted to a server error so Stripe's
// retry mechanism redelivers the event.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := billing.VerifyEvent(rawBody, signature, secret)
	if err != nil {
		log.Printf("stripe webhook rejected: %v", err)
		status, code := webhookErrorResponse(err)
		return c.Status(status).JSON(fiber.Map{"error": code})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeProviderFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, event.ID, string(event.Type), string(rawBody))
	if err != nil {
		log.Printf("stripe webhook persist failed for %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	// Stripe retries reuse the event ID. Only deliveries that already settled
	// cleanly are duplicates; a redelivery after a failed run must reprocess,
	// since provider retry is the recovery path for out-of-order or transient
	// failures.
	if !created && isSettledWebhookEvent(stored) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	if !billing.IsRelevantEvent(event.Type) {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	procErr := svc.ProcessEvent(ctx, &event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		log.Printf("stripe webhook %s (%s) failed: %v", event.ID, event.Type, procErr)
		status, code := webhookErrorResponse(procErr)
		return c.Status(status).JSON(fiber.Map{"error": code})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// isSettledWebhookEvent reports whether a stored event finished processing
// without error, either handled or acknowledged as irrelevant.
func isSettledWebhookEvent(stored *models.BillingWebhookEvent) bool {
	return stored != nil && stored.ProcessedAt != nil && stored.ProcessingError == ""
}

// webhookErrorResponse maps the billing error taxonomy to the HTTP status and
// error code answered to Stripe. 4xx ends delivery, 5xx triggers a retry.
func webhookErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrConfiguration):
		return fiber.StatusBadRequest, "webhook_not_configured"
	case errors.Is(err, billing.ErrVerification):
		return fiber.StatusBadRequest, "invalid_signature"
	case errors.Is(err, billing.ErrMalformedPayload):
		return fiber.StatusBadRequest, "invalid_payload"
	case errors.Is(err, billing.ErrUnhandledEvent):
		return fiber.StatusInternalServerError, "unhandled_event"
	case errors.Is(err, billing.ErrUnknownCustomer):
		return fiber.StatusInternalServerError, "unknown_customer"
	case errors.Is(err, billing.ErrStorage):
		return fiber.StatusInternalServerError, "storage_failed"
	default:
		return fiber.StatusInternalServerError, "processing_failed"
	}
}
