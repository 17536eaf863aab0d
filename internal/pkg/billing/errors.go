package billing

import "errors"

// Failure classes of the webhook processor. The webhook controller maps these
// to HTTP statuses: the first three answer 400 and end the request, the next
// three answer 500 so Stripe's retry mechanism redelivers the event.
// ErrPaymentMethodLookup is soft: logged, never aborts a reconciliation.
var (
	// ErrConfiguration marks a deployment defect: missing signature header
	// or unset webhook secret.
	ErrConfiguration = errors.New("billing: webhook configuration invalid")

	// ErrVerification marks a failed signature check (tampered body, wrong
	// secret, or timestamp outside the tolerance window).
	ErrVerification = errors.New("billing: webhook signature verification failed")

	// ErrMalformedPayload marks an event payload that does not match the
	// shape its type promises.
	ErrMalformedPayload = errors.New("billing: malformed event payload")

	// ErrUnhandledEvent marks drift between the relevant-events set and the
	// dispatch table.
	ErrUnhandledEvent = errors.New("billing: unhandled relevant event")

	// ErrUnknownCustomer marks a subscription event whose customer has no
	// local user mapping.
	ErrUnknownCustomer = errors.New("billing: no local user for provider customer")

	// ErrStorage marks a failed persistence write.
	ErrStorage = errors.New("billing: storage write failed")

	// ErrPaymentMethodLookup marks a failed payment-method enrichment.
	ErrPaymentMethodLookup = errors.New("billing: payment method lookup failed")
)
