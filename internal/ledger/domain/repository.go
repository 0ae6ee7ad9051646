package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// GetCurrent returns the current slot, or nil when the user never
	// touched billing.
	GetCurrent(ctx context.Context, db *gorm.DB, userID string) (*SubscriptionRecord, error)

	// MergeCurrent applies mutate to the current slot inside a single
	// row-locked transaction, creating a default {free, active} record when
	// absent. UpdatedAt only moves forward.
	MergeCurrent(ctx context.Context, db *gorm.DB, userID string, now time.Time, mutate func(*SubscriptionRecord)) (*SubscriptionRecord, error)

	// FindUserByCustomerID scans current slots for a matching external
	// customer id. Empty string means no match.
	FindUserByCustomerID(ctx context.Context, db *gorm.DB, customerID string) (string, error)

	AppendHistory(ctx context.Context, db *gorm.DB, entry *SubscriptionHistoryEntry) error
	AppendPayment(ctx context.Context, db *gorm.DB, payment *PaymentRecord) error
	AppendNotification(ctx context.Context, db *gorm.DB, notification *NotificationRecord) error

	// ListActiveTrialsEnding returns active records whose trial ends inside
	// [from, to].
	ListActiveTrialsEnding(ctx context.Context, db *gorm.DB, from, to time.Time) ([]SubscriptionRecord, error)

	// HasRecentNotification reports whether a notification of the given type
	// was created for the user at or after since.
	HasRecentNotification(ctx context.Context, db *gorm.DB, userID, notifType string, since time.Time) (bool, error)
}
