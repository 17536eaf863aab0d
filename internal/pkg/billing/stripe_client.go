package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	bpsession "github.com/stripe/stripe-go/v76/billingportal/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/subscription"

	"github.com/soundrift/billingsync/internal/pkg/env"
)

// Provider is the outbound Stripe surface the service depends on. Subscription
// events re-fetch provider truth through it instead of trusting the webhook
// payload, which may be stale or partial under retry.
type Provider interface {
	RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	RetrievePaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	UpdateCustomerBillingDetails(ctx context.Context, customerID string, details *stripe.PaymentMethodBillingDetails) error
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeProvider struct{}

// NewStripeProviderFromEnv configures the global Stripe client key and returns
// the live provider.
func NewStripeProviderFromEnv() Provider {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &stripeProvider{}
}

func (p *stripeProvider) RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("subscription id is required")
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")

	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", id, err)
	}
	return sub, nil
}

func (p *stripeProvider) RetrievePaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("payment method id is required")
	}
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment method %s: %w", id, err)
	}
	return pm, nil
}

func (p *stripeProvider) UpdateCustomerBillingDetails(ctx context.Context, customerID string, details *stripe.PaymentMethodBillingDetails) error {
	if details == nil {
		return errors.New("billing details are required")
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if details.Name != "" {
		params.Name = stripe.String(details.Name)
	}
	if details.Phone != "" {
		params.Phone = stripe.String(details.Phone)
	}
	if addr := details.Address; addr != nil {
		params.Address = &stripe.AddressParams{
			Line1:      stripe.String(addr.Line1),
			Line2:      stripe.String(addr.Line2),
			City:       stripe.String(addr.City),
			State:      stripe.String(addr.State),
			PostalCode: stripe.String(addr.PostalCode),
			Country:    stripe.String(addr.Country),
		}
	}

	if _, err := customer.Update(customerID, params); err != nil {
		return fmt.Errorf("update customer %s billing details: %w", customerID, err)
	}
	return nil
}

func (p *stripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := bpsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session for %s: %w", customerID, err)
	}
	return sess.URL, nil
}
