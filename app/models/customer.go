package models

import "time"

// Customer associates a local user with their Stripe customer ID. The mapping
// is created by the main application's checkout flow before any subscription
// event for that customer can arrive here.
type Customer struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ProviderCustomerID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_customer_id"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
