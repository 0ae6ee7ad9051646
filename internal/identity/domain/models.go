// Package domain contains the identity mapping between external billing
// customers and internal users.
package domain

import "time"

// CustomerMapping is the primary user <-> provider-customer association. It is
// written by the billing integration, possibly after the first subscription
// events arrive, so resolution must tolerate a missing row.
type CustomerMapping struct {
	UserID     string    `gorm:"primaryKey" json:"user_id"`
	CustomerID string    `gorm:"not null;uniqueIndex" json:"customer_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (CustomerMapping) TableName() string { return "customer_mappings" }
