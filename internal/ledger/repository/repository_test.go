package repository

import (
	"context"
	"testing"
	"time"

	"github.com/agiletools/billingsync/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&domain.SubscriptionRecord{},
		&domain.SubscriptionHistoryEntry{},
		&domain.PaymentRecord{},
		&domain.NotificationRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func TestMergeCurrentCreatesDefaultRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := repo.MergeCurrent(ctx, db, "user-1", now, func(r *domain.SubscriptionRecord) {
		r.Tier = domain.TierPremium
		r.Status = domain.StatusActive
		r.ExternalCustomerID = "cus_123"
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if rec.Tier != domain.TierPremium {
		t.Fatalf("expected premium tier, got %s", rec.Tier)
	}
	if !rec.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at %v, got %v", now, rec.UpdatedAt)
	}
}

func TestMergeCurrentPreservesUntouchedFields(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trialEnd := now.Add(72 * time.Hour)

	_, err := repo.MergeCurrent(ctx, db, "user-1", now, func(r *domain.SubscriptionRecord) {
		r.Tier = domain.TierPremium
		r.ExternalCustomerID = "cus_123"
		r.TrialEndsAt = &trialEnd
	})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	// A later merge that only touches status must leave the rest in place.
	rec, err := repo.MergeCurrent(ctx, db, "user-1", now.Add(time.Hour), func(r *domain.SubscriptionRecord) {
		r.Status = domain.StatusPastDue
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if rec.Tier != domain.TierPremium {
		t.Fatalf("tier was lost in merge: %s", rec.Tier)
	}
	if rec.ExternalCustomerID != "cus_123" {
		t.Fatalf("customer id was lost in merge: %s", rec.ExternalCustomerID)
	}
	if rec.TrialEndsAt == nil || !rec.TrialEndsAt.Equal(trialEnd) {
		t.Fatalf("trial end was lost in merge: %v", rec.TrialEndsAt)
	}
	if rec.Status != domain.StatusPastDue {
		t.Fatalf("status not applied: %s", rec.Status)
	}
}

func TestMergeCurrentUpdatedAtMonotonic(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repo.MergeCurrent(ctx, db, "user-1", now, func(r *domain.SubscriptionRecord) {}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	// An out-of-order apply with an earlier timestamp must not move
	// updated_at backwards.
	rec, err := repo.MergeCurrent(ctx, db, "user-1", now.Add(-time.Hour), func(r *domain.SubscriptionRecord) {})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !rec.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at moved backwards: %v", rec.UpdatedAt)
	}
}

func TestFindUserByCustomerID(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.MergeCurrent(ctx, db, "user-7", now, func(r *domain.SubscriptionRecord) {
		r.ExternalCustomerID = "cus_777"
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	userID, err := repo.FindUserByCustomerID(ctx, db, "cus_777")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if userID != "user-7" {
		t.Fatalf("expected user-7, got %q", userID)
	}

	userID, err = repo.FindUserByCustomerID(ctx, db, "cus_missing")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if userID != "" {
		t.Fatalf("expected empty user id, got %q", userID)
	}
}

func TestListActiveTrialsEnding(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := func(userID string, status domain.Status, trialEnd *time.Time) {
		t.Helper()
		_, err := repo.MergeCurrent(ctx, db, userID, now, func(r *domain.SubscriptionRecord) {
			r.Status = status
			r.TrialEndsAt = trialEnd
		})
		if err != nil {
			t.Fatalf("seed %s: %v", userID, err)
		}
	}

	inWindow := now.Add(48 * time.Hour)
	outside := now.Add(120 * time.Hour)
	seed("in-window", domain.StatusActive, &inWindow)
	seed("too-late", domain.StatusActive, &outside)
	seed("canceled", domain.StatusCanceled, &inWindow)
	seed("no-trial", domain.StatusActive, nil)

	records, err := repo.ListActiveTrialsEnding(ctx, db, now, now.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].UserID != "in-window" {
		t.Fatalf("expected in-window, got %s", records[0].UserID)
	}
}

func TestHasRecentNotification(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	node, _ := snowflake.NewNode(1)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := repo.AppendNotification(ctx, db, &domain.NotificationRecord{
		ID:        node.Generate(),
		UserID:    "user-1",
		Type:      domain.NotificationTypeTrialEnding,
		CreatedAt: now.Add(-12 * time.Hour),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := repo.HasRecentNotification(ctx, db, "user-1", domain.NotificationTypeTrialEnding, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("has recent: %v", err)
	}
	if !recent {
		t.Fatalf("expected a recent notification")
	}

	recent, err = repo.HasRecentNotification(ctx, db, "user-1", domain.NotificationTypeTrialEnding, now.Add(-6*time.Hour))
	if err != nil {
		t.Fatalf("has recent: %v", err)
	}
	if recent {
		t.Fatalf("notification is older than the window")
	}
}
