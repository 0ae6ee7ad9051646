// Package domain contains persistence models for the subscription ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is the internal entitlement level derived from the provider's plan.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierElite   Tier = "elite"
)

// Status represents lifecycle states for a subscription record.
type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCanceled  Status = "canceled"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
	StatusExpired   Status = "expired"
)

// SubscriptionRecord is the single mutable "current slot" per user. Users who
// never touched billing implicitly hold {free, active}; the record is created
// on first reconciliation.
type SubscriptionRecord struct {
	UserID                 string     `gorm:"primaryKey" json:"user_id"`
	Tier                   Tier       `gorm:"type:text;not null" json:"tier"`
	Status                 Status     `gorm:"type:text;not null" json:"status"`
	ExternalSubscriptionID string     `gorm:"index" json:"external_subscription_id,omitempty"`
	ExternalCustomerID     string     `gorm:"index" json:"external_customer_id,omitempty"`
	PeriodStart            *time.Time `gorm:"" json:"period_start,omitempty"`
	PeriodEnd              *time.Time `gorm:"" json:"period_end,omitempty"`
	TrialEndsAt            *time.Time `gorm:"index" json:"trial_ends_at,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time `gorm:"" json:"canceled_at,omitempty"`
	UpdatedAt              time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (SubscriptionRecord) TableName() string { return "subscription_records" }

// Event types recorded on history entries.
const (
	EventSubscriptionChange  = "subscription_change"
	EventSubscriptionDeleted = "subscription_deleted"
)

// SubscriptionHistoryEntry is an immutable snapshot of the current slot taken
// at reconciliation time. Append-only; duplicate rows from redelivered events
// are accepted.
type SubscriptionHistoryEntry struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID                 string       `gorm:"not null;index" json:"user_id"`
	EventType              string       `gorm:"type:text;not null" json:"event_type"`
	Tier                   Tier         `gorm:"type:text;not null" json:"tier"`
	Status                 Status       `gorm:"type:text;not null" json:"status"`
	ExternalSubscriptionID string       `gorm:"" json:"external_subscription_id,omitempty"`
	ExternalCustomerID     string       `gorm:"" json:"external_customer_id,omitempty"`
	PeriodStart            *time.Time   `gorm:"" json:"period_start,omitempty"`
	PeriodEnd              *time.Time   `gorm:"" json:"period_end,omitempty"`
	TrialEndsAt            *time.Time   `gorm:"" json:"trial_ends_at,omitempty"`
	CancelAtPeriodEnd      bool         `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time   `gorm:"" json:"canceled_at,omitempty"`
	CreatedAt              time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (SubscriptionHistoryEntry) TableName() string { return "subscription_history" }

// Snapshot copies the current slot into a history entry.
func Snapshot(rec *SubscriptionRecord, id snowflake.ID, eventType string, now time.Time) *SubscriptionHistoryEntry {
	return &SubscriptionHistoryEntry{
		ID:                     id,
		UserID:                 rec.UserID,
		EventType:              eventType,
		Tier:                   rec.Tier,
		Status:                 rec.Status,
		ExternalSubscriptionID: rec.ExternalSubscriptionID,
		ExternalCustomerID:     rec.ExternalCustomerID,
		PeriodStart:            rec.PeriodStart,
		PeriodEnd:              rec.PeriodEnd,
		TrialEndsAt:            rec.TrialEndsAt,
		CancelAtPeriodEnd:      rec.CancelAtPeriodEnd,
		CanceledAt:             rec.CanceledAt,
		CreatedAt:              now,
	}
}

// PaymentStatus marks the outcome recorded on a payment row.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentRecord is the append-only payment log.
type PaymentRecord struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID         string        `gorm:"not null;index" json:"user_id"`
	InvoiceID      string        `gorm:"not null" json:"invoice_id"`
	SubscriptionID string        `gorm:"not null;index" json:"subscription_id"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Currency       string        `gorm:"type:text;not null" json:"currency"`
	Status         PaymentStatus `gorm:"type:text;not null" json:"status"`
	PaidAt         *time.Time    `gorm:"" json:"paid_at,omitempty"`
	FailureReason  string        `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentRecord) TableName() string { return "payment_records" }

// NotificationTypeTrialEnding is written by the trial sweep and by the
// provider's trial_will_end event.
const NotificationTypeTrialEnding = "trial_ending"

// NotificationRecord is a user-facing notification. Read is mutated by the
// app surface, never by this service.
type NotificationRecord struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         string       `gorm:"not null;index" json:"user_id"`
	Type           string       `gorm:"type:text;not null;index" json:"type"`
	Title          string       `gorm:"type:text" json:"title"`
	Body           string       `gorm:"type:text" json:"body"`
	SubscriptionID string       `gorm:"" json:"subscription_id,omitempty"`
	TrialEndsAt    *time.Time   `gorm:"" json:"trial_ends_at,omitempty"`
	Read           bool         `gorm:"not null;default:false" json:"read"`
	CreatedAt      time.Time    `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (NotificationRecord) TableName() string { return "notifications" }
