package service

import (
	"context"
	"strings"
	"time"

	"github.com/agiletools/billingsync/internal/clock"
	"github.com/agiletools/billingsync/internal/config"
	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
	"github.com/agiletools/billingsync/internal/reconciler/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification copy shipped to the app surface. The product copy is Italian.
const (
	trialEndingTitle = "Il tuo periodo di prova sta per terminare"
	trialEndingBody  = "Il tuo periodo di prova terminerà tra 3 giorni. Aggiorna il metodo di pagamento per continuare."
)

const defaultFailureReason = "unknown"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Catalog  *config.CatalogHolder
	Ledger   ledgerdomain.Repository
	Identity identitydomain.Resolver
	Provider providerdomain.Client
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	catalog  *config.CatalogHolder
	ledger   ledgerdomain.Repository
	identity identitydomain.Resolver
	provider providerdomain.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reconciler.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		catalog:  p.Catalog,
		ledger:   p.Ledger,
		identity: p.Identity,
		provider: p.Provider,
	}
}

func (s *Service) ApplyEvent(ctx context.Context, event *providerdomain.Event) error {
	if event == nil {
		return domain.ErrUnsupportedEvent
	}

	switch event.Kind {
	case providerdomain.EventSubscriptionCreated, providerdomain.EventSubscriptionUpdated:
		return s.ApplySubscriptionChange(ctx, event.Subscription)
	case providerdomain.EventSubscriptionDeleted:
		return s.ApplySubscriptionDeleted(ctx, event.Subscription)
	case providerdomain.EventPaymentSucceeded:
		return s.ApplyPaymentSucceeded(ctx, event.Invoice)
	case providerdomain.EventPaymentFailed:
		return s.ApplyPaymentFailed(ctx, event.Invoice)
	case providerdomain.EventTrialWillEnd:
		return s.ApplyTrialWillEnd(ctx, event.Subscription)
	default:
		return domain.ErrUnsupportedEvent
	}
}

func (s *Service) ApplySubscriptionChange(ctx context.Context, sub *providerdomain.Subscription) error {
	if sub == nil {
		return domain.ErrUnsupportedEvent
	}

	userID, err := s.identity.ResolveUserID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warn("dropping subscription event for unresolved customer",
			zap.String("customer_id", sub.CustomerID),
			zap.String("subscription_id", sub.ID),
		)
		return nil
	}

	catalog := s.catalog.Get()
	tier := ledgerdomain.Tier(catalog.TierForPrice(sub.PriceID))
	status := ledgerdomain.Status(catalog.InternalStatus(sub.Status))

	now := s.clock.Now()
	rec, err := s.ledger.MergeCurrent(ctx, s.db, userID, now, func(rec *ledgerdomain.SubscriptionRecord) {
		rec.Tier = tier
		rec.Status = status
		rec.ExternalSubscriptionID = sub.ID
		rec.ExternalCustomerID = sub.CustomerID
		rec.PeriodStart = timePtr(sub.PeriodStart)
		rec.PeriodEnd = timePtr(sub.PeriodEnd)
		rec.TrialEndsAt = sub.TrialEnd
		rec.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		rec.CanceledAt = sub.CanceledAt
	})
	if err != nil {
		return err
	}

	if err := s.ledger.AppendHistory(ctx, s.db, ledgerdomain.Snapshot(rec, s.genID.Generate(), ledgerdomain.EventSubscriptionChange, now)); err != nil {
		return err
	}

	s.log.Info("subscription reconciled",
		zap.String("user_id", userID),
		zap.String("tier", string(tier)),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) ApplySubscriptionDeleted(ctx context.Context, sub *providerdomain.Subscription) error {
	if sub == nil {
		return domain.ErrUnsupportedEvent
	}

	userID, err := s.identity.ResolveUserID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warn("dropping cancellation for unresolved customer",
			zap.String("customer_id", sub.CustomerID),
		)
		return nil
	}

	now := s.clock.Now()
	rec, err := s.ledger.MergeCurrent(ctx, s.db, userID, now, func(rec *ledgerdomain.SubscriptionRecord) {
		rec.Tier = ledgerdomain.TierFree
		rec.Status = ledgerdomain.StatusCanceled
		rec.CanceledAt = &now
	})
	if err != nil {
		return err
	}

	if err := s.ledger.AppendHistory(ctx, s.db, ledgerdomain.Snapshot(rec, s.genID.Generate(), ledgerdomain.EventSubscriptionDeleted, now)); err != nil {
		return err
	}

	s.log.Info("subscription canceled", zap.String("user_id", userID))
	return nil
}

func (s *Service) ApplyPaymentSucceeded(ctx context.Context, invoice *providerdomain.Invoice) error {
	if invoice == nil {
		return domain.ErrUnsupportedEvent
	}
	if invoice.SubscriptionID == "" {
		s.log.Debug("ignoring invoice without subscription", zap.String("invoice_id", invoice.ID))
		return nil
	}

	userID, err := s.identity.ResolveUserID(ctx, invoice.CustomerID)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warn("dropping payment for unresolved customer",
			zap.String("customer_id", invoice.CustomerID),
		)
		return nil
	}

	now := s.clock.Now()
	paidAt := invoice.PaidAt
	if paidAt == nil {
		paidAt = &now
	}

	payment := &ledgerdomain.PaymentRecord{
		ID:             s.genID.Generate(),
		UserID:         userID,
		InvoiceID:      invoice.ID,
		SubscriptionID: invoice.SubscriptionID,
		Amount:         invoice.AmountPaid,
		Currency:       invoice.Currency,
		Status:         ledgerdomain.PaymentSucceeded,
		PaidAt:         paidAt,
		CreatedAt:      now,
	}
	if err := s.ledger.AppendPayment(ctx, s.db, payment); err != nil {
		return err
	}

	s.log.Info("payment recorded",
		zap.String("user_id", userID),
		zap.String("invoice_id", invoice.ID),
		zap.Int64("amount", invoice.AmountPaid),
	)
	return nil
}

func (s *Service) ApplyPaymentFailed(ctx context.Context, invoice *providerdomain.Invoice) error {
	if invoice == nil {
		return domain.ErrUnsupportedEvent
	}
	if invoice.SubscriptionID == "" {
		s.log.Debug("ignoring invoice without subscription", zap.String("invoice_id", invoice.ID))
		return nil
	}

	userID, err := s.identity.ResolveUserID(ctx, invoice.CustomerID)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warn("dropping failed payment for unresolved customer",
			zap.String("customer_id", invoice.CustomerID),
		)
		return nil
	}

	now := s.clock.Now()
	if _, err := s.ledger.MergeCurrent(ctx, s.db, userID, now, func(rec *ledgerdomain.SubscriptionRecord) {
		rec.Status = ledgerdomain.StatusPastDue
	}); err != nil {
		return err
	}

	reason := strings.TrimSpace(invoice.FailureMessage)
	if reason == "" {
		reason = defaultFailureReason
	}

	payment := &ledgerdomain.PaymentRecord{
		ID:             s.genID.Generate(),
		UserID:         userID,
		InvoiceID:      invoice.ID,
		SubscriptionID: invoice.SubscriptionID,
		Amount:         invoice.AmountDue,
		Currency:       invoice.Currency,
		Status:         ledgerdomain.PaymentFailed,
		FailureReason:  reason,
		CreatedAt:      now,
	}
	if err := s.ledger.AppendPayment(ctx, s.db, payment); err != nil {
		return err
	}

	s.log.Warn("payment failure recorded",
		zap.String("user_id", userID),
		zap.String("invoice_id", invoice.ID),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) ApplyTrialWillEnd(ctx context.Context, sub *providerdomain.Subscription) error {
	if sub == nil {
		return domain.ErrUnsupportedEvent
	}

	userID, err := s.identity.ResolveUserID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warn("dropping trial notice for unresolved customer",
			zap.String("customer_id", sub.CustomerID),
		)
		return nil
	}

	now := s.clock.Now()
	notification := &ledgerdomain.NotificationRecord{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Type:           ledgerdomain.NotificationTypeTrialEnding,
		Title:          trialEndingTitle,
		Body:           trialEndingBody,
		SubscriptionID: sub.ID,
		TrialEndsAt:    sub.TrialEnd,
		CreatedAt:      now,
	}
	if err := s.ledger.AppendNotification(ctx, s.db, notification); err != nil {
		return err
	}

	s.log.Info("trial ending notification created", zap.String("user_id", userID))
	return nil
}

func (s *Service) SyncUser(ctx context.Context, userID string) (domain.SyncResult, error) {
	customerID, err := s.identity.ResolveCustomerID(ctx, userID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if customerID == "" {
		return s.forceFree(ctx, userID)
	}

	sub, err := s.provider.FindActiveSubscription(ctx, customerID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if sub == nil {
		return s.forceFree(ctx, userID)
	}

	if err := s.ApplySubscriptionChange(ctx, sub); err != nil {
		return domain.SyncResult{}, err
	}

	catalog := s.catalog.Get()
	return domain.SyncResult{
		Tier:   ledgerdomain.Tier(catalog.TierForPrice(sub.PriceID)),
		Status: ledgerdomain.Status(catalog.InternalStatus(sub.Status)),
	}, nil
}

// forceFree pins the current slot back to the no-subscription baseline.
func (s *Service) forceFree(ctx context.Context, userID string) (domain.SyncResult, error) {
	now := s.clock.Now()
	if _, err := s.ledger.MergeCurrent(ctx, s.db, userID, now, func(rec *ledgerdomain.SubscriptionRecord) {
		rec.Tier = ledgerdomain.TierFree
		rec.Status = ledgerdomain.StatusActive
	}); err != nil {
		return domain.SyncResult{}, err
	}
	return domain.SyncResult{Tier: ledgerdomain.TierFree, Status: ledgerdomain.StatusActive}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
