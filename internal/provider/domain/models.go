// Package domain defines the billing provider boundary: verified, typed
// lifecycle events and the outbound client surface.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// EventKind is the closed set of provider lifecycle events this service
// reacts to. Anything else is acknowledged and ignored.
type EventKind string

const (
	EventSubscriptionCreated EventKind = "subscription.created"
	EventSubscriptionUpdated EventKind = "subscription.updated"
	EventSubscriptionDeleted EventKind = "subscription.deleted"
	EventPaymentSucceeded    EventKind = "payment.succeeded"
	EventPaymentFailed       EventKind = "payment.failed"
	EventTrialWillEnd        EventKind = "trial.will_end"
)

// Subscription is the provider's subscription object reduced to the fields
// the reconciler consumes. Status keeps the provider's vocabulary; mapping to
// the internal one happens in the reconciler via the catalog.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
	CanceledAt        *time.Time
}

// Invoice is the provider's invoice object reduced to payment-log fields.
// SubscriptionID may be empty for one-off invoices, which the reconciler
// drops.
type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
	Currency       string
	PaidAt         *time.Time
	FailureMessage string
}

// Event is a verified, parsed provider event. Exactly one payload pointer is
// set, according to Kind.
type Event struct {
	ID           string
	Kind         EventKind
	Created      time.Time
	Subscription *Subscription
	Invoice      *Invoice
}

var (
	ErrNotConfigured    = errors.New("provider_not_configured")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrRequestFailed    = errors.New("provider_request_failed")
)

// Adapter verifies and parses inbound webhook payloads for one provider.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

// Client is the outbound surface used by manual sync and the billing portal.
// Calls are bounded by the client's HTTP timeout.
type Client interface {
	// FindActiveSubscription returns the customer's single active
	// subscription, or nil when none exists.
	FindActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	// CreatePortalSession returns the URL of a hosted billing portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
