package server

import (
	"context"
	"testing"
	"time"

	"github.com/agiletools/billingsync/internal/clock"
	"github.com/agiletools/billingsync/internal/config"
	entitlementservice "github.com/agiletools/billingsync/internal/entitlement/service"
	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	identityservice "github.com/agiletools/billingsync/internal/identity/service"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	ledgerrepository "github.com/agiletools/billingsync/internal/ledger/repository"
	"github.com/agiletools/billingsync/internal/observability"
	obsmetrics "github.com/agiletools/billingsync/internal/observability/metrics"
	"github.com/agiletools/billingsync/internal/provider"
	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
	"github.com/agiletools/billingsync/internal/provider/stripe"
	reconcilerservice "github.com/agiletools/billingsync/internal/reconciler/service"
	workspacedomain "github.com/agiletools/billingsync/internal/workspace/domain"
	workspacerepository "github.com/agiletools/billingsync/internal/workspace/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testWebhookSecret = "whsec_test"
	testJWTSecret     = "jwt-test-secret"
)

type stubBillingClient struct {
	subscription *providerdomain.Subscription
	portalURL    string
	err          error
}

func (f *stubBillingClient) FindActiveSubscription(ctx context.Context, customerID string) (*providerdomain.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subscription, nil
}

func (f *stubBillingClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.portalURL, nil
}

type testServer struct {
	*Server
	db      *gorm.DB
	clock   *clock.FakeClock
	billing *stubBillingClient
	ledger  ledgerdomain.Repository
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ledgerdomain.SubscriptionRecord{},
		&ledgerdomain.SubscriptionHistoryEntry{},
		&ledgerdomain.PaymentRecord{},
		&ledgerdomain.NotificationRecord{},
		&identitydomain.CustomerMapping{},
		&workspacedomain.Document{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	catalog := config.NewStaticCatalogHolder(config.DefaultCatalog())
	ledgerRepo := ledgerrepository.Provide()
	resolver := identityservice.NewResolver(identityservice.Params{
		DB:         db,
		Log:        log,
		LedgerRepo: ledgerRepo,
	})
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	billing := &stubBillingClient{}

	reconcilerSvc := reconcilerservice.New(reconcilerservice.Params{
		DB:       db,
		Log:      log,
		Clock:    fakeClock,
		GenID:    node,
		Catalog:  catalog,
		Ledger:   ledgerRepo,
		Identity: resolver,
		Provider: billing,
	})
	entitlementSvc := entitlementservice.New(entitlementservice.Params{
		DB:        db,
		Log:       log,
		Catalog:   catalog,
		Ledger:    ledgerRepo,
		Documents: workspacerepository.Provide(),
	})

	registry := obsmetrics.NewRegistry()
	metrics, err := obsmetrics.New(registry)
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, metrics, registry)
	srv := NewServer(ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		DB:             db,
		Log:            log,
		Identity:       resolver,
		ReconcilerSvc:  reconcilerSvc,
		EntitlementSvc: entitlementSvc,
		Providers:      provider.NewRegistry(stripe.NewAdapter(cfg.StripeWebhookSecret)),
		Billing:        billing,
		Metrics:        metrics,
	})

	return &testServer{
		Server:  srv,
		db:      db,
		clock:   fakeClock,
		billing: billing,
		ledger:  ledgerRepo,
	}
}

func testConfig() config.Config {
	return config.Config{
		AppName:             "billingsync",
		Environment:         "test",
		AuthJWTSecret:       testJWTSecret,
		StripeSecretKey:     "sk_test",
		StripeWebhookSecret: testWebhookSecret,
		PortalReturnURL:     "https://app.example.com/#/subscription",
	}
}
