package models

import "time"

// Product mirrors a Stripe product. Rows are only ever written by `product.*`
// webhook events; deactivation is represented via the active flag, never by
// deleting the row.
type Product struct {
	ID           string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Image        *string   `gorm:"type:varchar(2048);default:null" json:"image,omitempty"`
	MetadataJSON string    `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
