package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signedHeader(t *testing.T, secret string, payload []byte, timestamp string) http.Header {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(timestamp + "." + string(payload)))
	require.NoError(t, err)
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{"id":"evt_1"}`)

	err := adapter.Verify(context.Background(), payload, signedHeader(t, testWebhookSecret, payload, "1700000000"))
	assert.NoError(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{"id":"evt_1"}`)

	err := adapter.Verify(context.Background(), payload, signedHeader(t, "whsec_other", payload, "1700000000"))
	assert.ErrorIs(t, err, providerdomain.ErrInvalidSignature)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{"id":"evt_1"}`)
	headers := signedHeader(t, testWebhookSecret, payload, "1700000000")

	err := adapter.Verify(context.Background(), []byte(`{"id":"evt_2"}`), headers)
	assert.ErrorIs(t, err, providerdomain.ErrInvalidSignature)
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)

	err := adapter.Verify(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, providerdomain.ErrInvalidSignature)
}

func TestVerifyRequiresSecret(t *testing.T) {
	adapter := NewAdapter("")

	err := adapter.Verify(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, providerdomain.ErrNotConfigured)
}

func TestParseSubscriptionUpdated(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"current_period_start": 1699000000,
				"current_period_end": 1701000000,
				"trial_end": null,
				"cancel_at_period_end": false,
				"items": {"data": [{"price": {"id": "price_premium_monthly"}}]}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, providerdomain.EventSubscriptionUpdated, event.Kind)
	require.NotNil(t, event.Subscription)
	assert.Equal(t, "sub_1", event.Subscription.ID)
	assert.Equal(t, "cus_1", event.Subscription.CustomerID)
	assert.Equal(t, "active", event.Subscription.Status)
	assert.Equal(t, "price_premium_monthly", event.Subscription.PriceID)
	assert.Nil(t, event.Subscription.TrialEnd)
	assert.Nil(t, event.Invoice)
}

func TestParseSubscriptionDeleted(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "canceled",
				"canceled_at": 1700000100,
				"items": {"data": []}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, providerdomain.EventSubscriptionDeleted, event.Kind)
	require.NotNil(t, event.Subscription)
	assert.Empty(t, event.Subscription.PriceID)
	require.NotNil(t, event.Subscription.CanceledAt)
	assert.Equal(t, int64(1700000100), event.Subscription.CanceledAt.Unix())
}

func TestParseTrialWillEnd(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.trial_will_end",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "trialing",
				"trial_end": 1700200000,
				"items": {"data": [{"price": {"id": "price_elite_monthly"}}]}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, providerdomain.EventTrialWillEnd, event.Kind)
	require.NotNil(t, event.Subscription.TrialEnd)
	assert.Equal(t, int64(1700200000), event.Subscription.TrialEnd.Unix())
}

func TestParsePaymentSucceeded(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{
		"id": "evt_4",
		"type": "invoice.payment_succeeded",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "in_1",
				"customer": "cus_1",
				"subscription": "sub_1",
				"amount_paid": 2900,
				"amount_due": 2900,
				"currency": "USD",
				"status_transitions": {"paid_at": 1700000050}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, providerdomain.EventPaymentSucceeded, event.Kind)
	require.NotNil(t, event.Invoice)
	assert.Equal(t, "in_1", event.Invoice.ID)
	assert.Equal(t, "sub_1", event.Invoice.SubscriptionID)
	assert.Equal(t, int64(2900), event.Invoice.AmountPaid)
	assert.Equal(t, "usd", event.Invoice.Currency)
	require.NotNil(t, event.Invoice.PaidAt)
	assert.Nil(t, event.Subscription)
}

func TestParsePaymentFailed(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{
		"id": "evt_5",
		"type": "invoice.payment_failed",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "in_2",
				"customer": "cus_1",
				"subscription": "sub_1",
				"amount_due": 2900,
				"currency": "usd",
				"status_transitions": {"paid_at": null},
				"last_finalization_error": {"message": "card_declined"}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, providerdomain.EventPaymentFailed, event.Kind)
	assert.Equal(t, "card_declined", event.Invoice.FailureMessage)
	assert.Nil(t, event.Invoice.PaidAt)
}

func TestParseIgnoresUnknownEventType(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)
	payload := []byte(`{"id":"evt_6","type":"charge.refunded","created":1700000000,"data":{"object":{}}}`)

	_, err := adapter.Parse(context.Background(), payload)
	assert.ErrorIs(t, err, providerdomain.ErrEventIgnored)
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)

	_, err := adapter.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, providerdomain.ErrInvalidPayload)
}

func TestParseRejectsEventWithoutID(t *testing.T) {
	adapter := NewAdapter(testWebhookSecret)

	_, err := adapter.Parse(context.Background(), []byte(`{"type":"customer.subscription.updated"}`))
	assert.ErrorIs(t, err, providerdomain.ErrInvalidEvent)
}
