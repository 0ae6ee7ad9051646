// Package domain defines the state reconciler: provider lifecycle events in,
// deterministic ledger writes out.
package domain

import (
	"context"
	"errors"

	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
)

var ErrUnsupportedEvent = errors.New("unsupported_event")

// SyncResult is the state derived by a manual sync.
type SyncResult struct {
	Tier   ledgerdomain.Tier
	Status ledgerdomain.Status
}

// Service applies provider events to the ledger. Every operation is
// idempotent on the current slot; history, payment and notification rows are
// append-only and duplicates from redelivered events are accepted.
type Service interface {
	// ApplyEvent dispatches a verified event to the matching operation.
	ApplyEvent(ctx context.Context, event *providerdomain.Event) error

	ApplySubscriptionChange(ctx context.Context, sub *providerdomain.Subscription) error
	ApplySubscriptionDeleted(ctx context.Context, sub *providerdomain.Subscription) error
	ApplyPaymentSucceeded(ctx context.Context, invoice *providerdomain.Invoice) error
	ApplyPaymentFailed(ctx context.Context, invoice *providerdomain.Invoice) error
	ApplyTrialWillEnd(ctx context.Context, sub *providerdomain.Subscription) error

	// SyncUser re-derives the current slot straight from the provider,
	// repairing drift after missed webhook deliveries.
	SyncUser(ctx context.Context, userID string) (SyncResult, error)
}
