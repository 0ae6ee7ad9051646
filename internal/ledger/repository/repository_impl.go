package repository

import (
	"context"
	"errors"
	"time"

	"github.com/agiletools/billingsync/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) GetCurrent(ctx context.Context, db *gorm.DB, userID string) (*domain.SubscriptionRecord, error) {
	var rec domain.SubscriptionRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) MergeCurrent(ctx context.Context, db *gorm.DB, userID string, now time.Time, mutate func(*domain.SubscriptionRecord)) (*domain.SubscriptionRecord, error) {
	var merged *domain.SubscriptionRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmt := tx
		// sqlite has no row locks; its writes are serialized anyway.
		if tx.Dialector.Name() != "sqlite" {
			stmt = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var rec domain.SubscriptionRecord
		err := stmt.Where("user_id = ?", userID).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = domain.SubscriptionRecord{
				UserID: userID,
				Tier:   domain.TierFree,
				Status: domain.StatusActive,
			}
		case err != nil:
			return err
		}

		mutate(&rec)
		if now.After(rec.UpdatedAt) {
			rec.UpdatedAt = now
		}

		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		merged = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *repo) FindUserByCustomerID(ctx context.Context, db *gorm.DB, customerID string) (string, error) {
	var rec domain.SubscriptionRecord
	err := db.WithContext(ctx).
		Where("external_customer_id = ?", customerID).
		Limit(1).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.UserID, nil
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, entry *domain.SubscriptionHistoryEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) AppendPayment(ctx context.Context, db *gorm.DB, payment *domain.PaymentRecord) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) AppendNotification(ctx context.Context, db *gorm.DB, notification *domain.NotificationRecord) error {
	return db.WithContext(ctx).Create(notification).Error
}

func (r *repo) ListActiveTrialsEnding(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.SubscriptionRecord, error) {
	var records []domain.SubscriptionRecord
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("trial_ends_at IS NOT NULL").
		Where("trial_ends_at >= ? AND trial_ends_at <= ?", from, to).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) HasRecentNotification(ctx context.Context, db *gorm.DB, userID, notifType string, since time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.NotificationRecord{}).
		Where("user_id = ? AND type = ?", userID, notifType).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
