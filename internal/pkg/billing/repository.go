package billing

import (
	"fmt"
	"time"

	"github.com/soundrift/billingsync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	UpsertProduct(p *models.Product) error
	UpsertPrice(p *models.Price) error
	// ResolveCustomer maps a provider customer ID to the local user ID.
	// Returns gorm.ErrRecordNotFound when no mapping exists.
	ResolveCustomer(providerCustomerID string) (uint, error)
	GetCustomerByUserID(userID uint) (*models.Customer, error)
	// UpsertSubscription reports whether the write inserted a new row.
	UpsertSubscription(sub *models.Subscription) (bool, error)
	GetSubscriptionByID(id string) (*models.Subscription, error)
	GetSubscriptionByUser(userID uint) (*models.Subscription, error)
	SaveUserBillingDetails(userID uint, billingAddressJSON, paymentMethodJSON string) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertProduct(p *models.Product) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active",
			"name",
			"description",
			"image",
			"metadata_json",
			"updated_at",
		}),
	}).Create(p).Error
}

func (r *gormRepository) UpsertPrice(p *models.Price) error {
	// Foreign-key discipline: a price event arriving before its product event
	// must fail so Stripe redelivers it once the product row lands.
	var count int64
	if err := r.db.Model(&models.Product{}).Where("id = ?", p.ProductID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("price %s references missing product %s", p.ID, p.ProductID)
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"active",
			"currency",
			"type",
			"interval",
			"interval_count",
			"unit_amount",
			"trial_period_days",
			"metadata_json",
			"updated_at",
		}),
	}).Create(p).Error
}

func (r *gormRepository) ResolveCustomer(providerCustomerID string) (uint, error) {
	var c models.Customer
	if err := r.db.Where("provider_customer_id = ?", providerCustomerID).First(&c).Error; err != nil {
		return 0, err
	}
	return c.UserID, nil
}

func (r *gormRepository) GetCustomerByUserID(userID uint) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) (bool, error) {
	// Existence is checked up front so the caller learns whether this was the
	// first reconciliation. Two concurrent first reconciliations may both see
	// "created"; the enrichment they trigger is an idempotent provider write.
	var count int64
	if err := r.db.Model(&models.Subscription{}).Where("id = ?", sub.ID).Count(&count).Error; err != nil {
		return false, err
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"status",
			"price_id",
			"quantity",
			"cancel_at_period_end",
			"created",
			"current_period_start",
			"current_period_end",
			"ended_at",
			"cancel_at",
			"canceled_at",
			"trial_start",
			"trial_end",
			"metadata_json",
			"updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *gormRepository) GetSubscriptionByID(id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByUser(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) SaveUserBillingDetails(userID uint, billingAddressJSON, paymentMethodJSON string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"billing_address_json": billingAddressJSON,
		"payment_method_json":  paymentMethodJSON,
	}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
