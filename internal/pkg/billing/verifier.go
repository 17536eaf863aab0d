package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// VerifyEvent authenticates a raw webhook body against the shared endpoint
// secret and returns the typed event envelope. It is a pure gate: no side
// effects beyond validation.
func VerifyEvent(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret or signature missing", ErrConfiguration)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return event, nil
}
