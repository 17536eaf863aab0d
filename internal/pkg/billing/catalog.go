package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"

	"github.com/soundrift/billingsync/app/models"
)

// UpsertProduct writes the full provider-supplied product state, insert or
// overwrite. Stripe sends the complete current object on every product event,
// so last-write-wins is idempotent under redelivery.
func (s *Service) UpsertProduct(ctx context.Context, p *stripe.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: product missing id", ErrMalformedPayload)
	}
	if err := s.repo.UpsertProduct(productFromStripe(p)); err != nil {
		return fmt.Errorf("%w: upsert product %s: %v", ErrStorage, p.ID, err)
	}
	return nil
}

// UpsertPrice writes the full provider-supplied price state. The referenced
// product must already exist; a missing product fails the write so Stripe
// redelivers the price event after the product event lands.
func (s *Service) UpsertPrice(ctx context.Context, p *stripe.Price) error {
	_ = ctx
	price, err := priceFromStripe(p)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertPrice(price); err != nil {
		return fmt.Errorf("%w: upsert price %s: %v", ErrStorage, price.ID, err)
	}
	return nil
}

func productFromStripe(p *stripe.Product) *models.Product {
	m := &models.Product{
		ID:           p.ID,
		Active:       p.Active,
		Name:         p.Name,
		Description:  p.Description,
		MetadataJSON: metadataJSON(p.Metadata),
	}
	if len(p.Images) > 0 && p.Images[0] != "" {
		img := p.Images[0]
		m.Image = &img
	}
	return m
}

func priceFromStripe(p *stripe.Price) (*models.Price, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("%w: price missing id", ErrMalformedPayload)
	}
	if p.Product == nil || p.Product.ID == "" {
		return nil, fmt.Errorf("%w: price %s missing product reference", ErrMalformedPayload, p.ID)
	}

	m := &models.Price{
		ID:           p.ID,
		ProductID:    p.Product.ID,
		Active:       p.Active,
		Currency:     string(p.Currency),
		Type:         string(p.Type),
		UnitAmount:   p.UnitAmount,
		MetadataJSON: metadataJSON(p.Metadata),
	}
	if m.Type == "" {
		m.Type = models.PriceTypeOneTime
	}
	if r := p.Recurring; r != nil {
		m.Type = models.PriceTypeRecurring
		interval := string(r.Interval)
		m.Interval = &interval
		count := r.IntervalCount
		m.IntervalCount = &count
		if r.TrialPeriodDays > 0 {
			days := r.TrialPeriodDays
			m.TrialPeriodDays = &days
		}
	}
	return m, nil
}

func metadataJSON(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}
