package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

func TestUpsertProductStoresNormalizedRow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeProvider{}, nil)

	p := &stripe.Product{
		ID:          "prod_1",
		Active:      true,
		Name:        "Pro Plan",
		Description: "Full access",
		Images:      []string{"https://img.example/pro.png"},
		Metadata:    map[string]string{"tier": "pro"},
	}
	if err := svc.UpsertProduct(context.Background(), p); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored, ok := repo.products["prod_1"]
	if !ok {
		t.Fatalf("expected product row")
	}
	if stored.Name != "Pro Plan" || !stored.Active {
		t.Fatalf("unexpected row: %+v", stored)
	}
	if stored.Image == nil || *stored.Image != "https://img.example/pro.png" {
		t.Fatalf("expected first image to be stored, got %v", stored.Image)
	}
	if stored.MetadataJSON != `{"tier":"pro"}` {
		t.Fatalf("unexpected metadata: %q", stored.MetadataJSON)
	}
}

func TestUpsertProductOverwritesPriorState(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeProvider{}, nil)

	if err := svc.UpsertProduct(context.Background(), &stripe.Product{ID: "prod_1", Active: true, Name: "Pro Plan"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := svc.UpsertProduct(context.Background(), &stripe.Product{ID: "prod_1", Active: false, Name: "Pro Plan (legacy)"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored := repo.products["prod_1"]
	if stored.Active || stored.Name != "Pro Plan (legacy)" {
		t.Fatalf("expected last write to win, got %+v", stored)
	}
	if len(repo.products) != 1 {
		t.Fatalf("expected a single row, got %d", len(repo.products))
	}
}

func TestUpsertProductMissingID(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{}, nil)
	if err := svc.UpsertProduct(context.Background(), &stripe.Product{}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestUpsertPriceRecurringFields(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeProvider{}, nil)

	if err := svc.UpsertProduct(context.Background(), &stripe.Product{ID: "prod_1", Active: true, Name: "Pro Plan"}); err != nil {
		t.Fatalf("product setup failed: %v", err)
	}

	p := &stripe.Price{
		ID:         "price_1",
		Product:    &stripe.Product{ID: "prod_1"},
		Active:     true,
		Currency:   stripe.CurrencyEUR,
		Type:       stripe.PriceTypeRecurring,
		UnitAmount: 990,
		Recurring: &stripe.PriceRecurring{
			Interval:        stripe.PriceRecurringIntervalMonth,
			IntervalCount:   1,
			TrialPeriodDays: 14,
		},
	}
	if err := svc.UpsertPrice(context.Background(), p); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored := repo.prices["price_1"]
	if stored.ProductID != "prod_1" || stored.UnitAmount != 990 || stored.Currency != "eur" {
		t.Fatalf("unexpected row: %+v", stored)
	}
	if stored.Interval == nil || *stored.Interval != "month" {
		t.Fatalf("expected month interval, got %v", stored.Interval)
	}
	if stored.TrialPeriodDays == nil || *stored.TrialPeriodDays != 14 {
		t.Fatalf("expected 14 trial days, got %v", stored.TrialPeriodDays)
	}
}

func TestUpsertPriceMissingProductFailsForRedelivery(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeProvider{}, nil)

	p := &stripe.Price{
		ID:       "price_orphan",
		Product:  &stripe.Product{ID: "prod_missing"},
		Active:   true,
		Currency: stripe.CurrencyEUR,
		Type:     stripe.PriceTypeOneTime,
	}
	err := svc.UpsertPrice(context.Background(), p)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(repo.prices) != 0 {
		t.Fatalf("orphan price must not be written")
	}
}

func TestUpsertPriceMissingProductReference(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{}, nil)
	err := svc.UpsertPrice(context.Background(), &stripe.Price{ID: "price_1"})
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
