// Package payment adapts the external payment gateway.
package payment

import (
	"context"
	"errors"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned when a webhook cannot be verified.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("payment: gateway not configured")

// Intent is a created payment intent. Reference is the gateway id.
type Intent struct {
	ClientSecret string
	Reference    string
}

// Event is a verified webhook event reduced to what the order lifecycle reads.
type Event struct {
	ID             string
	Type           string
	ObjectID       string
	OrderID        string
	FailureMessage string
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// Unconfigured rejects every call. It stands in when no gateway key is set so
// cash on delivery still works.
type Unconfigured struct{}

func (Unconfigured) CreatePaymentIntent(context.Context, int64, string, map[string]string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Unconfigured) ParseWebhook([]byte, string) (Event, error) {
	return Event{}, ErrInvalidSignature
}
