package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
)

// Adapter verifies Stripe webhook signatures and parses lifecycle events.
type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string { return "stripe" }

// Verify checks the Stripe-Signature header against the raw payload.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return providerdomain.ErrNotConfigured
	}

	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return providerdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return providerdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return providerdomain.ErrInvalidSignature
}

// Parse maps a raw Stripe event onto the closed internal event set.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*providerdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, providerdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, providerdomain.ErrInvalidEvent
	}

	created := timestamp(event.Created, 0)

	switch strings.TrimSpace(event.Type) {
	case "customer.subscription.created":
		return a.parseSubscription(event, providerdomain.EventSubscriptionCreated, created)
	case "customer.subscription.updated":
		return a.parseSubscription(event, providerdomain.EventSubscriptionUpdated, created)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, providerdomain.EventSubscriptionDeleted, created)
	case "customer.subscription.trial_will_end":
		return a.parseSubscription(event, providerdomain.EventTrialWillEnd, created)
	case "invoice.payment_succeeded":
		return a.parseInvoice(event, providerdomain.EventPaymentSucceeded, created)
	case "invoice.payment_failed":
		return a.parseInvoice(event, providerdomain.EventPaymentFailed, created)
	default:
		return nil, providerdomain.ErrEventIgnored
	}
}

func (a *Adapter) parseSubscription(event stripeEvent, kind providerdomain.EventKind, created time.Time) (*providerdomain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, providerdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" || strings.TrimSpace(sub.Customer) == "" {
		return nil, providerdomain.ErrInvalidEvent
	}

	return &providerdomain.Event{
		ID:           event.ID,
		Kind:         kind,
		Created:      created,
		Subscription: sub.toDomain(),
	}, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, kind providerdomain.EventKind, created time.Time) (*providerdomain.Event, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, providerdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return nil, providerdomain.ErrInvalidEvent
	}

	return &providerdomain.Event{
		ID:      event.ID,
		Kind:    kind,
		Created: created,
		Invoice: invoice.toDomain(),
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeSubscription struct {
	ID                 string         `json:"id"`
	Customer           string         `json:"customer"`
	Status             string         `json:"status"`
	CurrentPeriodStart int64          `json:"current_period_start"`
	CurrentPeriodEnd   int64          `json:"current_period_end"`
	TrialEnd           *int64         `json:"trial_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	CanceledAt         *int64         `json:"canceled_at"`
	Items              stripeItemList `json:"items"`
}

type stripeItemList struct {
	Data []stripeItem `json:"data"`
}

type stripeItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	ID string `json:"id"`
}

func (s stripeSubscription) toDomain() *providerdomain.Subscription {
	priceID := ""
	if len(s.Items.Data) > 0 {
		priceID = s.Items.Data[0].Price.ID
	}
	return &providerdomain.Subscription{
		ID:                s.ID,
		CustomerID:        s.Customer,
		Status:            strings.TrimSpace(s.Status),
		PriceID:           priceID,
		PeriodStart:       timestamp(s.CurrentPeriodStart, 0),
		PeriodEnd:         timestamp(s.CurrentPeriodEnd, 0),
		TrialEnd:          optionalTimestamp(s.TrialEnd),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CanceledAt:        optionalTimestamp(s.CanceledAt),
	}
}

type stripeInvoice struct {
	ID                string                  `json:"id"`
	Customer          string                  `json:"customer"`
	Subscription      string                  `json:"subscription"`
	AmountPaid        int64                   `json:"amount_paid"`
	AmountDue         int64                   `json:"amount_due"`
	Currency          string                  `json:"currency"`
	StatusTransitions stripeStatusTransitions `json:"status_transitions"`
	LastError         *stripeInvoiceError     `json:"last_finalization_error"`
}

type stripeStatusTransitions struct {
	PaidAt *int64 `json:"paid_at"`
}

type stripeInvoiceError struct {
	Message string `json:"message"`
}

func (i stripeInvoice) toDomain() *providerdomain.Invoice {
	failureMessage := ""
	if i.LastError != nil {
		failureMessage = strings.TrimSpace(i.LastError.Message)
	}
	return &providerdomain.Invoice{
		ID:             i.ID,
		CustomerID:     i.Customer,
		SubscriptionID: strings.TrimSpace(i.Subscription),
		AmountPaid:     i.AmountPaid,
		AmountDue:      i.AmountDue,
		Currency:       strings.ToLower(strings.TrimSpace(i.Currency)),
		PaidAt:         optionalTimestamp(i.StatusTransitions.PaidAt),
		FailureMessage: failureMessage,
	}
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func optionalTimestamp(v *int64) *time.Time {
	if v == nil || *v == 0 {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
