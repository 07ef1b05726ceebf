package handlers

import (
	"io"
	"net/http"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Webhook handles POST /webhooks/stripe. The raw body is needed for the
// signature check, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(w, r, apperrors.Wrap(apperrors.CodeValidation, "could not read webhook body", err))
		return
	}
	res, err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
