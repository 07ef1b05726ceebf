package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(typ, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_123",
		"object": "event",
		"type": %q,
		"data": {"object": {
			"id": "pi_123",
			"object": "payment_intent",
			"metadata": {"orderId": %q},
			"last_payment_error": {"message": "card declined"}
		}}
	}`, typ, orderID))
}

func TestParseWebhookVerifiesSignature(t *testing.T) {
	s := NewStripe("sk_test", testSecret, nil)
	payload := eventPayload(EventPaymentSucceeded, "order-1")

	ev, err := s.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_123", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.ObjectID)
	assert.Equal(t, "order-1", ev.OrderID)
	assert.Equal(t, "card declined", ev.FailureMessage)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	s := NewStripe("sk_test", testSecret, nil)
	payload := eventPayload(EventPaymentSucceeded, "order-1")

	tests := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"wrong secret", sign(payload, "whsec_other", time.Now())},
		{"stale timestamp", sign(payload, testSecret, time.Now().Add(-time.Hour))},
		{"garbage", "t=abc,v1=zzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ParseWebhook(payload, tt.sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestParseWebhookRejectsTamperedPayload(t *testing.T) {
	s := NewStripe("sk_test", testSecret, nil)
	payload := eventPayload(EventPaymentSucceeded, "order-1")
	sig := sign(payload, testSecret, time.Now())

	_, err := s.ParseWebhook(eventPayload(EventPaymentSucceeded, "order-2"), sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.CreatePaymentIntent(context.Background(), 100, "huf", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = Unconfigured{}.ParseWebhook(nil, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
