package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/concurrency"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/telemetry"
)

const staleBatchSize = 100

// OrderServiceDeps bundles the collaborators of the order lifecycle.
type OrderServiceDeps struct {
	Tx         TxManager
	Orders     OrderRepo
	Customers  CustomerRepo
	Pricing    *PricingService
	Inventory  *InventoryService
	Coupons    *CouponService
	Clock      Clock
	NewID      IDGenerator
	StaleAfter time.Duration
	Workers    int
}

type OrderService struct {
	tx         TxManager
	orders     OrderRepo
	customers  CustomerRepo
	pricing    *PricingService
	inventory  *InventoryService
	coupons    *CouponService
	clock      Clock
	newID      IDGenerator
	staleAfter time.Duration
	workers    int
}

func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Tx == nil || deps.Orders == nil {
		return nil, errors.New("order service: tx manager and order repository are required")
	}
	if deps.Pricing == nil || deps.Inventory == nil || deps.Coupons == nil || deps.Customers == nil {
		return nil, errors.New("order service: pricing, inventory, coupons and customers are required")
	}
	staleAfter := deps.StaleAfter
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 4
	}
	return &OrderService{
		tx:         deps.Tx,
		orders:     deps.Orders,
		customers:  deps.Customers,
		pricing:    deps.Pricing,
		inventory:  deps.Inventory,
		coupons:    deps.Coupons,
		clock:      deps.Clock,
		newID:      deps.NewID,
		staleAfter: staleAfter,
		workers:    workers,
	}, nil
}

type CreateOrderInput struct {
	Actor           models.Identity
	Items           []models.CartLineItem
	CouponCode      string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	PaymentMethod   models.PaymentMethod
}

// Create prices the cart and stores a pending order with the totals fixed.
// Pending orders hold no stock; postings happen when the order is paid.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	q, err := s.pricing.Quote(ctx, QuoteRequest{Items: in.Items, UserID: in.Actor.UserID, CouponCode: in.CouponCode})
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	o := &models.Order{
		ID:              s.newID.next(),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Subtotal:        q.Subtotal,
		CouponDiscount:  q.CouponDiscount,
		LoyaltyDiscount: q.LoyaltyDiscount,
		ShippingCost:    q.ShippingCost,
		TotalPrice:      q.Total,
		Status:          models.OrderPending,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Actor.Authenticated() {
		uid := in.Actor.UserID
		o.UserID = &uid
	}
	if q.CouponCode != "" {
		code := q.CouponCode
		o.CouponCode = &code
	}
	for _, l := range q.Lines {
		o.Items = append(o.Items, models.OrderItem{
			ProductID:       l.ProductID,
			VariantID:       l.VariantID,
			Name:            l.Name,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			SelectedOptions: l.SelectedOptions,
		})
	}

	if err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.orders.Create(ctx, o)
	}); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	log.Printf("orders: created id=%s total=%d method=%s", o.ID, o.TotalPrice, o.PaymentMethod)
	return o, nil
}

func validateOrderInput(in CreateOrderInput) error {
	field := func(name, msg string) error {
		return apperrors.WithMetadata(apperrors.CodeValidation, msg, map[string]string{"field": name})
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return field("customerName", "customer name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.CustomerEmail)); err != nil {
		return field("customerEmail", "customer email is invalid")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return field("shippingAddress", "shipping address is required")
	}
	if in.PaymentMethod != models.PaymentCard && in.PaymentMethod != models.PaymentCashOnDelivery {
		return field("paymentMethod", "payment method must be card or cash_on_delivery")
	}
	return nil
}

// MarkPaid moves a pending order to paid. The order row is locked and the
// guard re-checked inside the transaction, so replays and races are safe:
// an order that already reached paid is returned unchanged with changed=false.
// reference, when non-empty, must match a stored payment reference.
func (s *OrderService) MarkPaid(ctx context.Context, orderID, reference string) (order *models.Order, changed bool, err error) {
	ctx, span := telemetry.Start(ctx, "orders.MarkPaid", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer telemetry.End(span, &err)

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, apperrors.CodeNotFound, "order not found")
		}
		order = o

		if o.Status.Reached(models.OrderPaid) {
			return nil
		}
		if o.Status != models.OrderPending {
			return apperrors.WithMetadata(apperrors.CodeInvalidTransition, "order cannot be paid",
				map[string]string{"status": string(o.Status)})
		}
		if reference != "" && o.PaymentReference != nil && *o.PaymentReference != reference {
			return apperrors.New(apperrors.CodeInvalidTransition, "payment reference does not match order")
		}

		for _, it := range o.Items {
			if err := s.inventory.Post(ctx, &models.InventoryLog{
				ProductID:   it.ProductID,
				VariantID:   it.VariantID,
				Change:      -it.Quantity,
				Reason:      models.ReasonOrderPlaced,
				ReferenceID: &o.ID,
				UserID:      o.UserID,
			}); err != nil {
				return fmt.Errorf("post inventory for %s: %w", it.ProductID, err)
			}
		}
		if o.CouponCode != nil {
			if err := s.coupons.Consume(ctx, *o.CouponCode); err != nil {
				return err
			}
		}
		if o.UserID != nil {
			if err := s.customers.AddSpent(ctx, *o.UserID, o.CustomerEmail, o.TotalPrice); err != nil {
				return fmt.Errorf("add customer spend: %w", err)
			}
		}

		now := s.clock.now()
		o.Status = models.OrderPaid
		o.PaidAt = &now
		o.UpdatedAt = now
		if reference != "" && o.PaymentReference == nil {
			o.PaymentReference = &reference
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		log.Printf("orders: paid id=%s total=%d", order.ID, order.TotalPrice)
	}
	return order, changed, nil
}

// AttachPaymentReference stores the gateway reference on a pending order.
func (s *OrderService) AttachPaymentReference(ctx context.Context, orderID, reference string) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, apperrors.CodeNotFound, "order not found")
		}
		if o.Status != models.OrderPending {
			return apperrors.New(apperrors.CodeInvalidTransition, "order is not pending")
		}
		o.PaymentReference = &reference
		o.UpdatedAt = s.clock.now()
		out = o
		return s.orders.Update(ctx, o)
	})
	return out, err
}

// Cancel is the customer or admin cancellation. Only pending orders can be
// cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID string, actor models.Identity) (*models.Order, error) {
	return s.cancel(ctx, orderID, models.CancelReasonUser, func(o *models.Order) error {
		if actor.IsAdmin() || o.OwnedBy(actor.UserID) {
			return nil
		}
		return apperrors.New(apperrors.CodeForbidden, "not allowed to cancel this order")
	})
}

// CancelForPaymentFailure is used by checkout when the gateway rejects the intent.
func (s *OrderService) CancelForPaymentFailure(ctx context.Context, orderID string) (*models.Order, error) {
	return s.cancel(ctx, orderID, models.CancelReasonPaymentFailed, nil)
}

func (s *OrderService) cancel(ctx context.Context, orderID, reason string, authorize func(*models.Order) error) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, apperrors.CodeNotFound, "order not found")
		}
		if authorize != nil {
			if err := authorize(o); err != nil {
				return err
			}
		}
		if o.Status != models.OrderPending {
			return apperrors.WithMetadata(apperrors.CodeInvalidTransition, "only pending orders can be cancelled",
				map[string]string{"status": string(o.Status)})
		}
		if err := s.releaseStock(ctx, o); err != nil {
			return err
		}

		o.Status = models.OrderCancelled
		o.CancelReason = &reason
		o.UpdatedAt = s.clock.now()
		if err := s.orders.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("orders: cancelled id=%s reason=%s", out.ID, reason)
	return out, nil
}

type stockKey struct {
	productID string
	variantID string
}

// releaseStock posts ORDER_CANCELLED entries that bring the net change under
// the order back to zero. An order that never had postings releases nothing.
func (s *OrderService) releaseStock(ctx context.Context, o *models.Order) error {
	entries, err := s.inventory.History(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("load inventory history: %w", err)
	}
	net := make(map[stockKey]int)
	var order []stockKey
	variants := make(map[stockKey]*string)
	for _, e := range entries {
		k := stockKey{productID: e.ProductID}
		if e.VariantID != nil {
			k.variantID = *e.VariantID
		}
		if _, seen := net[k]; !seen {
			order = append(order, k)
			variants[k] = e.VariantID
		}
		net[k] += e.Change
	}
	for _, k := range order {
		if net[k] >= 0 {
			continue
		}
		if err := s.inventory.Post(ctx, &models.InventoryLog{
			ProductID:   k.productID,
			VariantID:   variants[k],
			Change:      -net[k],
			Reason:      models.ReasonOrderCancelled,
			ReferenceID: &o.ID,
			UserID:      o.UserID,
		}); err != nil {
			return fmt.Errorf("release stock for %s: %w", k.productID, err)
		}
	}
	return nil
}

var forwardTransitions = map[models.OrderStatus]models.OrderStatus{
	models.OrderPaid:    models.OrderShipped,
	models.OrderShipped: models.OrderCompleted,
}

// Advance moves a paid order forward to shipped and then completed.
// Requesting the current status is a no-op.
func (s *OrderService) Advance(ctx context.Context, orderID string, target models.OrderStatus) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, apperrors.CodeNotFound, "order not found")
		}
		out = o
		if o.Status == target {
			return nil
		}
		if next, ok := forwardTransitions[o.Status]; !ok || next != target {
			return apperrors.WithMetadata(apperrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move order from %s to %s", o.Status, target),
				map[string]string{"status": string(o.Status), "target": string(target)})
		}
		o.Status = target
		o.UpdatedAt = s.clock.now()
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, orderID string, actor models.Identity) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, apperrors.CodeNotFound, "order not found")
	}
	if !actor.IsAdmin() && !o.OwnedBy(actor.UserID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view this order")
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	return s.orders.List(ctx, f)
}

type CleanupResult struct {
	Scanned   int `json:"scanned"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ExpireStale cancels pending orders older than the staleness window, each
// in its own transaction. A failing order is logged and left pending for the
// next run; it never blocks the rest of the batch. Orders that moved on
// between listing and locking are counted as skipped.
func (s *OrderService) ExpireStale(ctx context.Context) (CleanupResult, error) {
	cutoff := s.clock.now().Add(-s.staleAfter)
	stale, err := s.orders.ListStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("list stale orders: %w", err)
	}

	res := CleanupResult{Scanned: len(stale)}
	errs := concurrency.Run(ctx, s.workers, stale, func(ctx context.Context, o models.Order) error {
		_, err := s.cancel(ctx, o.ID, models.CancelReasonExpired, nil)
		return err
	})
	for i, err := range errs {
		switch {
		case err == nil:
			res.Cancelled++
		case apperrors.HasCode(err, apperrors.CodeInvalidTransition):
			res.Skipped++
		default:
			res.Failed++
			log.Printf("orders: expire failed id=%s err=%v", stale[i].ID, err)
		}
	}
	if res.Scanned > 0 {
		log.Printf("orders: cleanup scanned=%d cancelled=%d skipped=%d failed=%d",
			res.Scanned, res.Cancelled, res.Skipped, res.Failed)
	}
	return res, nil
}

var csvHeader = []string{
	"id", "created_at", "status", "customer_name", "customer_email", "payment_method", "coupon_code",
	"subtotal", "coupon_discount", "loyalty_discount", "shipping_cost", "total_price", "items",
}

// ExportCSV writes the filtered orders as CSV, one row per order.
func (s *OrderService) ExportCSV(ctx context.Context, f models.OrderFilter, w io.Writer) error {
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range orders {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
		}
		coupon := ""
		if o.CouponCode != nil {
			coupon = *o.CouponCode
		}
		row := []string{
			o.ID,
			o.CreatedAt.Format(time.RFC3339),
			string(o.Status),
			o.CustomerName,
			o.CustomerEmail,
			string(o.PaymentMethod),
			coupon,
			strconv.FormatInt(o.Subtotal, 10),
			strconv.FormatInt(o.CouponDiscount, 10),
			strconv.FormatInt(o.LoyaltyDiscount, 10),
			strconv.FormatInt(o.ShippingCost, 10),
			strconv.FormatInt(o.TotalPrice, 10),
			strings.Join(items, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
