package service

import (
	"context"
	"testing"
	"time"

	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	ledgerrepo "github.com/agiletools/billingsync/internal/ledger/repository"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&identitydomain.CustomerMapping{},
		&ledgerdomain.SubscriptionRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newResolver(db *gorm.DB) identitydomain.Resolver {
	return NewResolver(Params{
		DB:         db,
		Log:        zap.NewNop(),
		LedgerRepo: ledgerrepo.Provide(),
	})
}

func TestResolveUserIDPrimaryMapping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Create(&identitydomain.CustomerMapping{
		UserID:     "user-1",
		CustomerID: "cus_abc",
		CreatedAt:  time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed mapping: %v", err)
	}

	resolver := newResolver(db)
	userID, err := resolver.ResolveUserID(ctx, "cus_abc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestResolveUserIDLedgerFallback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// No mapping row; only the subscription record carries the customer id.
	err := db.Create(&ledgerdomain.SubscriptionRecord{
		UserID:             "user-2",
		Tier:               ledgerdomain.TierPremium,
		Status:             ledgerdomain.StatusActive,
		ExternalCustomerID: "cus_lagging",
		UpdatedAt:          time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	resolver := newResolver(db)
	userID, err := resolver.ResolveUserID(ctx, "cus_lagging")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != "user-2" {
		t.Fatalf("expected fallback to resolve user-2, got %q", userID)
	}
}

func TestResolveUserIDMissIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	resolver := newResolver(db)

	userID, err := resolver.ResolveUserID(context.Background(), "cus_nobody")
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if userID != "" {
		t.Fatalf("expected empty user id, got %q", userID)
	}
}

func TestResolveCustomerID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Create(&identitydomain.CustomerMapping{
		UserID:     "user-1",
		CustomerID: "cus_primary",
		CreatedAt:  time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed mapping: %v", err)
	}
	err = db.Create(&ledgerdomain.SubscriptionRecord{
		UserID:             "user-2",
		Tier:               ledgerdomain.TierFree,
		Status:             ledgerdomain.StatusActive,
		ExternalCustomerID: "cus_from_record",
		UpdatedAt:          time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	resolver := newResolver(db)

	customerID, err := resolver.ResolveCustomerID(ctx, "user-1")
	if err != nil {
		t.Fatalf("resolve primary: %v", err)
	}
	if customerID != "cus_primary" {
		t.Fatalf("expected cus_primary, got %q", customerID)
	}

	customerID, err = resolver.ResolveCustomerID(ctx, "user-2")
	if err != nil {
		t.Fatalf("resolve fallback: %v", err)
	}
	if customerID != "cus_from_record" {
		t.Fatalf("expected cus_from_record, got %q", customerID)
	}

	customerID, err = resolver.ResolveCustomerID(ctx, "user-3")
	if err != nil {
		t.Fatalf("resolve miss: %v", err)
	}
	if customerID != "" {
		t.Fatalf("expected empty customer id, got %q", customerID)
	}
}
