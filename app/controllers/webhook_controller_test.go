package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/soundrift/billingsync/app/models"
	"github.com/soundrift/billingsync/internal/pkg/billing"
)

func TestWebhookErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"configuration", billing.ErrConfiguration, fiber.StatusBadRequest, "webhook_not_configured"},
		{"verification", billing.ErrVerification, fiber.StatusBadRequest, "invalid_signature"},
		{"malformed payload", billing.ErrMalformedPayload, fiber.StatusBadRequest, "invalid_payload"},
		{"unhandled event", billing.ErrUnhandledEvent, fiber.StatusInternalServerError, "unhandled_event"},
		{"unknown customer", billing.ErrUnknownCustomer, fiber.StatusInternalServerError, "unknown_customer"},
		{"storage", billing.ErrStorage, fiber.StatusInternalServerError, "storage_failed"},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, "processing_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := webhookErrorResponse(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestIsSettledWebhookEvent(t *testing.T) {
	now := time.Now()

	// Unprocessed and failed rows must be reprocessed on redelivery; only a
	// clean prior run makes the retry a duplicate.
	assert.False(t, isSettledWebhookEvent(nil))
	assert.False(t, isSettledWebhookEvent(&models.BillingWebhookEvent{}))
	assert.False(t, isSettledWebhookEvent(&models.BillingWebhookEvent{
		ProcessedAt:     &now,
		ProcessingError: "billing: storage write failed",
	}))
	assert.True(t, isSettledWebhookEvent(&models.BillingWebhookEvent{
		ProcessedAt: &now,
	}))
}

func TestHandleStripeWebhookMissingSignature(t *testing.T) {
	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "webhook_not_configured")
}

func TestHandleStripeWebhookBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test_secret")

	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "invalid_signature")
}
