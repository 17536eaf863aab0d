package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// relevantEvents is the fixed allow-list of event types this processor acts
// on. Built once at init and never mutated: Stripe keeps introducing new
// event types, and anything outside this set is acknowledged without work.
var relevantEvents = map[stripe.EventType]struct{}{
	"product.created":               {},
	"product.updated":               {},
	"price.created":                 {},
	"price.updated":                 {},
	"checkout.session.completed":    {},
	"customer.subscription.created": {},
	"customer.subscription.updated": {},
	"customer.subscription.deleted": {},
}

// IsRelevantEvent reports whether the event type is on the processing
// allow-list.
func IsRelevantEvent(eventType stripe.EventType) bool {
	_, ok := relevantEvents[eventType]
	return ok
}

// ProcessEvent dispatches a verified, allow-listed event to its
// reconciliation path. Each case narrows the raw payload to the shape its
// event type promises before any work happens; the default case only fires
// when the allow-list and this dispatch table have drifted apart, which is a
// defect answered with a server error so Stripe redelivers.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "product.created", "product.updated":
		var product stripe.Product
		if err := json.Unmarshal(event.Data.Raw, &product); err != nil {
			return fmt.Errorf("%w: decode product from %s: %v", ErrMalformedPayload, event.Type, err)
		}
		return s.UpsertProduct(ctx, &product)

	case "price.created", "price.updated":
		var price stripe.Price
		if err := json.Unmarshal(event.Data.Raw, &price); err != nil {
			return fmt.Errorf("%w: decode price from %s: %v", ErrMalformedPayload, event.Type, err)
		}
		return s.UpsertPrice(ctx, &price)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: decode subscription from %s: %v", ErrMalformedPayload, event.Type, err)
		}
		if sub.ID == "" || sub.Customer == nil || sub.Customer.ID == "" {
			return fmt.Errorf("%w: subscription event %s missing id or customer", ErrMalformedPayload, event.ID)
		}
		_, err := s.ReconcileSubscription(ctx, sub.ID, sub.Customer.ID, event.Type == "customer.subscription.created")
		return err

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("%w: decode checkout session: %v", ErrMalformedPayload, err)
		}
		return s.HandleCheckoutCompleted(ctx, &sess)

	default:
		return fmt.Errorf("%w: %s", ErrUnhandledEvent, event.Type)
	}
}
