package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

func TestIsRelevantEvent(t *testing.T) {
	relevant := []stripe.EventType{
		"product.created",
		"product.updated",
		"price.created",
		"price.updated",
		"checkout.session.completed",
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
	}
	for _, et := range relevant {
		if !IsRelevantEvent(et) {
			t.Errorf("expected %s to be relevant", et)
		}
	}

	irrelevant := []stripe.EventType{
		"invoice.paid",
		"payment_intent.succeeded",
		"customer.created",
		"charge.refunded",
		"",
	}
	for _, et := range irrelevant {
		if IsRelevantEvent(et) {
			t.Errorf("expected %s to be ignored", et)
		}
	}
}

func testEvent(eventType stripe.EventType, raw string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_test",
		Type: eventType,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestProcessEventDispatchesProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeProvider{}, nil)

	event := testEvent("product.created", `{"id":"prod_1","active":true,"name":"Pro Plan"}`)
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if _, ok := repo.products["prod_1"]; !ok {
		t.Fatalf("expected product row after dispatch")
	}
}

func TestProcessEventDispatchesSubscription(t *testing.T) {
	repo := newFakeRepo()
	repo.mapCustomer("cus_1", 7)
	provider := &fakeProvider{sub: providerSubscription("sub_1", "cus_1", "price_1", stripe.SubscriptionStatusActive)}
	svc := NewService(repo, provider, nil)

	event := testEvent("customer.subscription.updated", `{"id":"sub_1","customer":"cus_1","status":"active"}`)
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if provider.retrieveSubCalls != 1 {
		t.Fatalf("expected the subscription to be re-fetched, got %d calls", provider.retrieveSubCalls)
	}
	if _, ok := repo.subs["sub_1"]; !ok {
		t.Fatalf("expected subscription row after dispatch")
	}
	if provider.billingDetailUpdates != 0 {
		t.Fatalf("an update event must not trigger enrichment")
	}
}

func TestProcessEventSubscriptionCreatedEnriches(t *testing.T) {
	repo := newFakeRepo()
	repo.mapCustomer("cus_1", 7)
	provider := &fakeProvider{sub: providerSubscription("sub_1", "cus_1", "price_1", stripe.SubscriptionStatusActive)}
	svc := NewService(repo, provider, nil)

	event := testEvent("customer.subscription.created", `{"id":"sub_1","customer":"cus_1","status":"active"}`)
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if provider.billingDetailUpdates != 1 {
		t.Fatalf("expected a created event to enrich once, got %d", provider.billingDetailUpdates)
	}
}

func TestProcessEventSubscriptionMissingCustomer(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{}, nil)

	event := testEvent("customer.subscription.updated", `{"id":"sub_1"}`)
	if err := svc.ProcessEvent(context.Background(), event); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestProcessEventUndecodablePayload(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{}, nil)

	event := testEvent("price.created", `"not an object"`)
	if err := svc.ProcessEvent(context.Background(), event); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestProcessEventUnhandledType(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{}, nil)

	event := testEvent("invoice.paid", `{}`)
	if err := svc.ProcessEvent(context.Background(), event); !errors.Is(err, ErrUnhandledEvent) {
		t.Fatalf("expected ErrUnhandledEvent, got %v", err)
	}
}
