package service

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/payment"
	"github.com/Cheertaboi/nexu-webshop/internal/telemetry"
)

type PaymentServiceDeps struct {
	Orders      *OrderService
	Gateway     payment.Gateway
	Currency    string
	MinorFactor int64
}

// PaymentService sizes payment intents from stored order totals and applies
// gateway confirmations to the order lifecycle.
type PaymentService struct {
	orders      *OrderService
	gateway     payment.Gateway
	currency    string
	minorFactor int64
}

func NewPaymentService(deps PaymentServiceDeps) (*PaymentService, error) {
	if deps.Orders == nil || deps.Gateway == nil {
		return nil, errors.New("payment service: orders and gateway are required")
	}
	currency := deps.Currency
	if currency == "" {
		currency = "huf"
	}
	factor := deps.MinorFactor
	if factor <= 0 {
		factor = 100
	}
	return &PaymentService{
		orders:      deps.Orders,
		gateway:     deps.Gateway,
		currency:    currency,
		minorFactor: factor,
	}, nil
}

type CheckoutResult struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"clientSecret,omitempty"`
}

// Checkout creates the pending order and then the payment intent for its
// stored total. If the gateway refuses, the order is cancelled with reason
// payment_failed and PAYMENT_FAILED carries the gateway message.
func (s *PaymentService) Checkout(ctx context.Context, in CreateOrderInput) (res *CheckoutResult, err error) {
	ctx, span := telemetry.Start(ctx, "payments.Checkout")
	defer telemetry.End(span, &err)

	order, err := s.orders.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.total", order.TotalPrice))

	if order.PaymentMethod == models.PaymentCashOnDelivery {
		return &CheckoutResult{Order: order}, nil
	}

	intent, gwErr := s.gateway.CreatePaymentIntent(ctx, order.TotalPrice*s.minorFactor, s.currency, map[string]string{
		"orderId": order.ID,
	})
	if gwErr != nil {
		log.Printf("payments: intent failed order=%s err=%v", order.ID, gwErr)
		if _, err := s.orders.CancelForPaymentFailure(ctx, order.ID); err != nil {
			log.Printf("payments: cancel after intent failure order=%s err=%v", order.ID, err)
		}
		return nil, apperrors.Wrap(apperrors.CodePaymentFailed, gwErr.Error(), gwErr)
	}

	attached, err := s.orders.AttachPaymentReference(ctx, order.ID, intent.Reference)
	if err != nil {
		log.Printf("payments: intent created but reference not stored order=%s intent=%s err=%v",
			order.ID, intent.Reference, err)
		return nil, err
	}
	order = attached
	return &CheckoutResult{Order: order, ClientSecret: intent.ClientSecret}, nil
}

type WebhookResult struct {
	EventType string `json:"eventType"`
	OrderID   string `json:"orderId,omitempty"`
	Changed   bool   `json:"changed"`
}

// HandleWebhook verifies and applies a gateway event. Replays of a success
// event are no-ops. Unknown event types are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (res WebhookResult, err error) {
	ctx, span := telemetry.Start(ctx, "payments.HandleWebhook")
	defer telemetry.End(span, &err)

	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return WebhookResult{}, apperrors.Wrap(apperrors.CodeInvalidSignature, "webhook signature could not be verified", err)
		}
		return WebhookResult{}, apperrors.Wrap(apperrors.CodeValidation, "malformed webhook payload", err)
	}
	span.SetAttributes(attribute.String("event.type", ev.Type), attribute.String("order.id", ev.OrderID))

	res = WebhookResult{EventType: ev.Type, OrderID: ev.OrderID}
	switch ev.Type {
	case payment.EventPaymentSucceeded:
		if ev.OrderID == "" {
			return res, apperrors.New(apperrors.CodeNotFound, "event does not reference an order")
		}
		_, changed, err := s.orders.MarkPaid(ctx, ev.OrderID, ev.ObjectID)
		if err != nil {
			return res, err
		}
		res.Changed = changed
		if !changed {
			log.Printf("payments: duplicate confirmation event=%s order=%s", ev.ID, ev.OrderID)
		}
	case payment.EventPaymentFailed:
		log.Printf("payments: payment failed event=%s order=%s reason=%q", ev.ID, ev.OrderID, ev.FailureMessage)
	default:
		span.AddEvent("event ignored")
	}
	return res, nil
}
