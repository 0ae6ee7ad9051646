package service

import (
	"context"
	"errors"
	"strings"

	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// userLookup is one strategy for turning a customer id into a user id.
// Strategies are tried in order; an empty result moves on to the next.
type userLookup interface {
	Name() string
	UserID(ctx context.Context, customerID string) (string, error)
}

// customerLookup is the reverse direction.
type customerLookup interface {
	Name() string
	CustomerID(ctx context.Context, userID string) (string, error)
}

type Resolver struct {
	log             *zap.Logger
	userLookups     []userLookup
	customerLookups []customerLookup
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	LedgerRepo ledgerdomain.Repository
}

func NewResolver(p Params) identitydomain.Resolver {
	return &Resolver{
		log: p.Log.Named("identity.resolver"),
		userLookups: []userLookup{
			mappingUserLookup{db: p.DB},
			ledgerUserLookup{db: p.DB, repo: p.LedgerRepo},
		},
		customerLookups: []customerLookup{
			mappingCustomerLookup{db: p.DB},
			ledgerCustomerLookup{db: p.DB, repo: p.LedgerRepo},
		},
	}
}

// ResolveUserID implements domain.Resolver.
func (r *Resolver) ResolveUserID(ctx context.Context, customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", nil
	}
	for _, lookup := range r.userLookups {
		userID, err := lookup.UserID(ctx, customerID)
		if err != nil {
			return "", err
		}
		if userID != "" {
			r.log.Debug("customer resolved",
				zap.String("strategy", lookup.Name()),
				zap.String("customer_id", customerID),
			)
			return userID, nil
		}
	}
	return "", nil
}

// ResolveCustomerID implements domain.Resolver.
func (r *Resolver) ResolveCustomerID(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil
	}
	for _, lookup := range r.customerLookups {
		customerID, err := lookup.CustomerID(ctx, userID)
		if err != nil {
			return "", err
		}
		if customerID != "" {
			return customerID, nil
		}
	}
	return "", nil
}

// mappingUserLookup reads the dedicated mapping table.
type mappingUserLookup struct {
	db *gorm.DB
}

func (mappingUserLookup) Name() string { return "mapping_table" }

func (l mappingUserLookup) UserID(ctx context.Context, customerID string) (string, error) {
	var mapping identitydomain.CustomerMapping
	err := l.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return mapping.UserID, nil
}

// ledgerUserLookup scans current subscription records for the customer id.
// This covers the window where the mapping row has not been written yet.
type ledgerUserLookup struct {
	db   *gorm.DB
	repo ledgerdomain.Repository
}

func (ledgerUserLookup) Name() string { return "ledger_scan" }

func (l ledgerUserLookup) UserID(ctx context.Context, customerID string) (string, error) {
	return l.repo.FindUserByCustomerID(ctx, l.db, customerID)
}

// mappingCustomerLookup reads the dedicated mapping table by user id.
type mappingCustomerLookup struct {
	db *gorm.DB
}

func (mappingCustomerLookup) Name() string { return "mapping_table" }

func (l mappingCustomerLookup) CustomerID(ctx context.Context, userID string) (string, error) {
	var mapping identitydomain.CustomerMapping
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return mapping.CustomerID, nil
}

// ledgerCustomerLookup reads the customer id off the user's current slot.
type ledgerCustomerLookup struct {
	db   *gorm.DB
	repo ledgerdomain.Repository
}

func (ledgerCustomerLookup) Name() string { return "ledger_record" }

func (l ledgerCustomerLookup) CustomerID(ctx context.Context, userID string) (string, error) {
	rec, err := l.repo.GetCurrent(ctx, l.db, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.ExternalCustomerID, nil
}
