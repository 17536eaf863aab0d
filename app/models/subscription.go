package models

import "time"

// Stripe subscription lifecycle statuses as delivered by the API.
const (
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusActive            = "active"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusPaused            = "paused"
)

// Subscription mirrors the latest known Stripe-side state of a customer
// subscription. Rows are upserted by the reconciler and never deleted; a
// canceled subscription transitions to a terminal status instead.
type Subscription struct {
	ID                 string     `gorm:"primaryKey;type:varchar(191)" json:"id"`
	UserID             uint       `gorm:"not null;index" json:"user_id"`
	Status             string     `gorm:"type:varchar(32);not null;index" json:"status"`
	PriceID            string     `gorm:"type:varchar(191);not null;index" json:"price_id"`
	Quantity           int64      `gorm:"not null;default:1" json:"quantity"`
	CancelAtPeriodEnd  bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	Created            time.Time  `gorm:"not null" json:"created"`
	CurrentPeriodStart time.Time  `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"not null" json:"current_period_end"`
	EndedAt            *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	CancelAt           *time.Time `gorm:"type:timestamp;default:null" json:"cancel_at,omitempty"`
	CanceledAt         *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	TrialStart         *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd           *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	MetadataJSON       string     `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the status ends the subscription's lifecycle.
func (s *Subscription) IsTerminal() bool {
	switch s.Status {
	case SubscriptionStatusCanceled, SubscriptionStatusIncompleteExpired:
		return true
	default:
		return false
	}
}
