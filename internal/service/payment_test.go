package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/payment"
)

func TestCheckoutCreatesIntentFromStoredTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "camera", 25_000, 3)

	res, err := env.payments.Checkout(ctx, orderInput(customer, line(p.ID, 1)))
	require.NoError(t, err)

	assert.Equal(t, []int64{25_000 * 100}, env.gateway.intents)
	assert.Equal(t, "secret_"+res.Order.ID, res.ClientSecret)
	require.NotNil(t, res.Order.PaymentReference)
	assert.Equal(t, "pi_"+res.Order.ID, *res.Order.PaymentReference)
	assert.Equal(t, models.OrderPending, res.Order.Status)
}

func TestCheckoutCashOnDeliverySkipsGateway(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "plant", 6_000, 3)
	in := orderInput(customer, line(p.ID, 1))
	in.PaymentMethod = models.PaymentCashOnDelivery

	res, err := env.payments.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, env.gateway.intents)
	assert.Empty(t, res.ClientSecret)
	assert.Nil(t, res.Order.PaymentReference)
}

func TestCheckoutGatewayFailureCancelsOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "watch", 80_000, 3)
	env.gateway.failWith = errors.New("card_declined: insufficient funds")

	_, err := env.payments.Checkout(ctx, orderInput(customer, line(p.ID, 1)))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePaymentFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "card_declined: insufficient funds")

	orders, err := env.orders.List(ctx, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderCancelled, orders[0].Status)
	assert.Equal(t, models.CancelReasonPaymentFailed, *orders[0].CancelReason)
}

func TestCheckoutLogsUnattachedIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "scooter", 120_000, 3)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	var orderID string
	env.gateway.afterIntent = func(id string) {
		orderID = id
		_, err := env.orders.Cancel(ctx, id, customer)
		require.NoError(t, err)
	}

	_, err := env.payments.Checkout(ctx, orderInput(customer, line(p.ID, 1)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	require.NotEmpty(t, orderID)
	assert.Contains(t, buf.String(), "order="+orderID)
	assert.Contains(t, buf.String(), "intent=pi_"+orderID)
}

func TestHandleWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "guitar", 70_000, 2)
	res, err := env.payments.Checkout(ctx, orderInput(customer, line(p.ID, 1)))
	require.NoError(t, err)
	orderID := res.Order.ID

	env.gateway.event = payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, ObjectID: "pi_" + orderID, OrderID: orderID,
	}
	first, err := env.payments.HandleWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	assert.True(t, first.Changed)

	replay, err := env.payments.HandleWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	assert.False(t, replay.Changed)

	logs, err := env.inventory.History(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	o, err := env.orders.Get(ctx, orderID, customer)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, o.Status)
}

func TestHandleWebhookErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.gateway.parseErr = fmt.Errorf("%w: no signatures found", payment.ErrInvalidSignature)
	_, err := env.payments.HandleWebhook(ctx, nil, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidSignature))

	env.gateway.parseErr = nil
	env.gateway.event = payment.Event{Type: payment.EventPaymentSucceeded, OrderID: "unknown"}
	_, err = env.payments.HandleWebhook(ctx, nil, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	env.gateway.event = payment.Event{Type: payment.EventPaymentSucceeded}
	_, err = env.payments.HandleWebhook(ctx, nil, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	env.gateway.event = payment.Event{Type: "charge.refunded", OrderID: "whatever"}
	res, err := env.payments.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	env.gateway.event = payment.Event{Type: payment.EventPaymentFailed, OrderID: "whatever", FailureMessage: "declined"}
	_, err = env.payments.HandleWebhook(ctx, nil, "")
	assert.NoError(t, err)
}
