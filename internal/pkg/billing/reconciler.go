package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/soundrift/billingsync/app/models"
)

// ReconcileSubscription converges the local subscription row with provider
// truth. The subscription is always re-fetched from Stripe rather than read
// from the webhook payload: deletion payloads can be stale, and the fetch
// makes concurrent or out-of-order deliveries safe (each writer stores a
// state at least as fresh as the event that triggered it).
//
// When createdFromCheckout is set and this is the first reconciliation of the
// subscription, the default payment method's billing details are copied onto
// the Stripe customer and the local user row. That enrichment fails soft: the
// subscription upsert has already committed and is the state that matters.
func (s *Service) ReconcileSubscription(ctx context.Context, subscriptionID, customerID string, createdFromCheckout bool) (string, error) {
	userID, err := s.repo.ResolveCustomer(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: customer %s", ErrUnknownCustomer, customerID)
		}
		return "", fmt.Errorf("%w: resolve customer %s: %v", ErrStorage, customerID, err)
	}

	fetched, err := s.provider.RetrieveSubscription(ctx, subscriptionID)
	if err != nil {
		return "", err
	}

	sub := subscriptionFromStripe(fetched, userID)
	created, err := s.repo.UpsertSubscription(sub)
	if err != nil {
		return "", fmt.Errorf("%w: upsert subscription %s: %v", ErrStorage, sub.ID, err)
	}
	s.cacheStatus(userID, sub.Status)
	log.Printf("reconciled subscription %s for user %d (status=%s, created=%t)", sub.ID, userID, sub.Status, created)

	if createdFromCheckout && created {
		if err := s.copyBillingDetailsToUser(ctx, userID, customerID, fetched); err != nil {
			log.Printf("%v: subscription %s: %v", ErrPaymentMethodLookup, sub.ID, err)
		}
	}

	return sub.Status, nil
}

// HandleCheckoutCompleted resolves the subscription created by a completed
// checkout session and delegates to ReconcileSubscription. Sessions in any
// mode other than "subscription" are a no-op.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess == nil {
		return fmt.Errorf("%w: nil checkout session", ErrMalformedPayload)
	}
	if sess.Mode != stripe.CheckoutSessionModeSubscription {
		return nil
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return fmt.Errorf("%w: subscription-mode checkout session %s has no subscription", ErrMalformedPayload, sess.ID)
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return fmt.Errorf("%w: checkout session %s has no customer", ErrMalformedPayload, sess.ID)
	}

	_, err := s.ReconcileSubscription(ctx, sess.Subscription.ID, sess.Customer.ID, true)
	return err
}

func (s *Service) copyBillingDetailsToUser(ctx context.Context, userID uint, customerID string, sub *stripe.Subscription) error {
	pm := sub.DefaultPaymentMethod
	if pm == nil || pm.ID == "" {
		return errors.New("subscription has no default payment method")
	}
	// The expanded object omits nothing we need, but a partial expansion
	// (no billing details) warrants a direct lookup.
	if pm.BillingDetails == nil {
		fresh, err := s.provider.RetrievePaymentMethod(ctx, pm.ID)
		if err != nil {
			return err
		}
		pm = fresh
	}
	if pm.BillingDetails == nil {
		return fmt.Errorf("payment method %s has no billing details", pm.ID)
	}

	if err := s.provider.UpdateCustomerBillingDetails(ctx, customerID, pm.BillingDetails); err != nil {
		return err
	}

	addrJSON := ""
	if pm.BillingDetails.Address != nil {
		if raw, err := json.Marshal(pm.BillingDetails.Address); err == nil {
			addrJSON = string(raw)
		}
	}
	pmJSON := paymentMethodJSON(pm)
	if err := s.repo.SaveUserBillingDetails(userID, addrJSON, pmJSON); err != nil {
		return err
	}
	return nil
}

// paymentMethodJSON flattens the type-specific details of a payment method
// into the JSON blob stored on the user row.
func paymentMethodJSON(pm *stripe.PaymentMethod) string {
	out := map[string]interface{}{
		"id":   pm.ID,
		"type": string(pm.Type),
	}
	if pm.Card != nil {
		out["brand"] = string(pm.Card.Brand)
		out["last4"] = pm.Card.Last4
		out["exp_month"] = pm.Card.ExpMonth
		out["exp_year"] = pm.Card.ExpYear
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(raw)
}

func subscriptionFromStripe(sub *stripe.Subscription, userID uint) *models.Subscription {
	m := &models.Subscription{
		ID:                 sub.ID,
		UserID:             userID,
		Status:             string(sub.Status),
		Quantity:           1,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Created:            time.Unix(sub.Created, 0),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		EndedAt:            unixPtr(sub.EndedAt),
		CancelAt:           unixPtr(sub.CancelAt),
		CanceledAt:         unixPtr(sub.CanceledAt),
		TrialStart:         unixPtr(sub.TrialStart),
		TrialEnd:           unixPtr(sub.TrialEnd),
		MetadataJSON:       metadataJSON(sub.Metadata),
	}
	// Price and quantity live on the subscription item, not the envelope.
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil && item.Price.ID != "" {
				m.PriceID = item.Price.ID
				if item.Quantity > 0 {
					m.Quantity = item.Quantity
				}
				break
			}
		}
	}
	return m
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}
