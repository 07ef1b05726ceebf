package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Stripe creates payment intents and verifies webhooks with stripe-go.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

// CreatePaymentIntent uses the orderId metadata as idempotency key so a
// retried checkout never creates a second intent for the same order.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if orderID := metadata["orderId"]; orderID != "" {
		params.SetIdempotencyKey("order-" + orderID)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Msg != "" {
			return Intent{}, fmt.Errorf("create payment intent: %s", serr.Msg)
		}
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ClientSecret: pi.ClientSecret, Reference: pi.ID}, nil
}

type intentObject struct {
	ID               string            `json:"id"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	var obj intentObject
	if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
		return Event{}, fmt.Errorf("decode event object: %w", err)
	}
	out.ObjectID = obj.ID
	out.OrderID = obj.Metadata["orderId"]
	if obj.LastPaymentError != nil {
		out.FailureMessage = obj.LastPaymentError.Message
	}
	return out, nil
}
