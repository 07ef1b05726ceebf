package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/auth"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

type QuoteRequest struct {
	Items      []models.CartLineItem `json:"items" validate:"required,min=1,dive"`
	CouponCode string                `json:"couponCode,omitempty"`
}

type CheckoutRequest struct {
	Items           []models.CartLineItem `json:"items" validate:"required,min=1,dive"`
	CouponCode      string                `json:"couponCode,omitempty"`
	CustomerName    string                `json:"customerName" validate:"required,max=200"`
	CustomerEmail   string                `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string                `json:"customerPhone,omitempty" validate:"max=50"`
	ShippingAddress string                `json:"shippingAddress" validate:"required,max=500"`
	PaymentMethod   string                `json:"paymentMethod" validate:"required,oneof=card cash_on_delivery"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped completed"`
}

type MarkPaidRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type OrderHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
	pricing  *service.PricingService
	loyalty  *service.LoyaltyService
}

func NewOrderHandler(orders *service.OrderService, payments *service.PaymentService, pricing *service.PricingService, loyalty *service.LoyaltyService) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments, pricing: pricing, loyalty: loyalty}
}

// Quote handles POST /cart/quote.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	q, err := h.pricing.Quote(r.Context(), service.QuoteRequest{
		Items:      req.Items,
		UserID:     auth.IdentityFrom(r.Context()).UserID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, q)
}

// Checkout handles POST /checkout. Guests may check out; signed-in
// customers get their loyalty tier and the order on their account.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	res, err := h.payments.Checkout(r.Context(), service.CreateOrderInput{
		Actor:           auth.IdentityFrom(r.Context()),
		Items:           req.Items,
		CouponCode:      req.CouponCode,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// GetOrder handles GET /orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"), auth.IdentityFrom(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// CancelOrder handles POST /orders/{id}/cancel.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), auth.IdentityFrom(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// Loyalty handles GET /account/loyalty.
func (h *OrderHandler) Loyalty(w http.ResponseWriter, r *http.Request) {
	st, err := h.loyalty.Status(r.Context(), auth.IdentityFrom(r.Context()).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

// ListOrders handles GET /admin/orders?status=&from=&to=&limit=.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	list, err := h.orders.List(r.Context(), f)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

// ExportCSV handles GET /admin/orders/export with the same filters as ListOrders.
func (h *OrderHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.orders.ExportCSV(r.Context(), f, &buf); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("orders: csv write failed: %v", err)
	}
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	o, err := h.orders.Advance(r.Context(), chi.URLParam(r, "id"), models.OrderStatus(req.Status))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// MarkPaid handles POST /admin/orders/{id}/mark-paid, used for cash on
// delivery and manual reconciliation.
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req MarkPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	o, changed, err := h.orders.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.Reference)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"order": o, "changed": changed})
}

// Cleanup handles POST /admin/orders/cleanup.
func (h *OrderHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.ExpireStale(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func orderFilter(r *http.Request) (models.OrderFilter, error) {
	var f models.OrderFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st := models.OrderStatus(raw)
		switch st {
		case models.OrderPending, models.OrderPaid, models.OrderShipped, models.OrderCompleted, models.OrderCancelled:
		default:
			return f, apperrors.WithMetadata(apperrors.CodeValidation, fmt.Sprintf("unknown status %q", raw), map[string]string{"field": "status"})
		}
		f.Status = &st
	}
	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}
