package models

import "time"

const (
	PriceTypeOneTime   = "one_time"
	PriceTypeRecurring = "recurring"
)

// Price mirrors a Stripe price. Every price belongs to exactly one product;
// the foreign key is enforced so a price event arriving before its product
// event fails and gets redelivered by Stripe.
type Price struct {
	ID              string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	ProductID       string    `gorm:"type:varchar(191);not null;index" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Active          bool      `gorm:"not null;default:true;index" json:"active"`
	Currency        string    `gorm:"type:varchar(8);not null" json:"currency"`
	Type            string    `gorm:"type:varchar(16);not null;default:'recurring'" json:"type"`
	Interval        *string   `gorm:"type:varchar(16);default:null" json:"interval,omitempty"`
	IntervalCount   *int64    `gorm:"default:null" json:"interval_count,omitempty"`
	UnitAmount      int64     `gorm:"not null;default:0" json:"unit_amount"`
	TrialPeriodDays *int64    `gorm:"default:null" json:"trial_period_days,omitempty"`
	MetadataJSON    string    `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
