package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `id, user_id, customer_name, customer_email, customer_phone, shipping_address,
	subtotal, coupon_discount, loyalty_discount, shipping_cost, total_price, status, payment_method,
	payment_reference, coupon_code, cancel_reason, paid_at, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o        models.Order
		userID   sql.NullString
		status   string
		method   string
		payRef   sql.NullString
		coupon   sql.NullString
		cancelBy sql.NullString
		paidAt   sql.NullTime
	)
	err := row.Scan(
		&o.ID,
		&userID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.ShippingAddress,
		&o.Subtotal,
		&o.CouponDiscount,
		&o.LoyaltyDiscount,
		&o.ShippingCost,
		&o.TotalPrice,
		&status,
		&method,
		&payRef,
		&coupon,
		&cancelBy,
		&paidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.UserID = stringPtr(userID)
	o.Status = models.OrderStatus(status)
	o.PaymentMethod = models.PaymentMethod(method)
	o.PaymentReference = stringPtr(payRef)
	o.CouponCode = stringPtr(coupon)
	o.CancelReason = stringPtr(cancelBy)
	o.PaidAt = timePtr(paidAt)
	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) error {
	q := conn(ctx, r.db)
	insertOrder := `
		INSERT INTO orders
		(` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err := q.ExecContext(ctx, insertOrder,
		o.ID,
		o.UserID,
		o.CustomerName,
		o.CustomerEmail,
		o.CustomerPhone,
		o.ShippingAddress,
		o.Subtotal,
		o.CouponDiscount,
		o.LoyaltyDiscount,
		o.ShippingCost,
		o.TotalPrice,
		string(o.Status),
		string(o.PaymentMethod),
		o.PaymentReference,
		o.CouponCode,
		o.CancelReason,
		o.PaidAt,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr(err)
	}

	insertItem := `
		INSERT INTO order_items
		(order_id, position, product_id, variant_id, name, unit_price, quantity, selected_options)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	for i, it := range o.Items {
		options, err := json.Marshal(optionsOrEmpty(it.SelectedOptions))
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if _, err := q.ExecContext(ctx, insertItem,
			o.ID, i, it.ProductID, it.VariantID, it.Name, it.UnitPrice, it.Quantity, options,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.find(ctx, id, false)
}

// FindByIDForUpdate locks the order row until the surrounding transaction ends.
func (r *OrderRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.find(ctx, id, true)
}

func (r *OrderRepo) find(ctx context.Context, id string, lock bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepo) items(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := `
		SELECT product_id, variant_id, name, unit_price, quantity, selected_options
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			it        models.OrderItem
			variantID sql.NullString
			options   []byte
		)
		if err := rows.Scan(&it.ProductID, &variantID, &it.Name, &it.UnitPrice, &it.Quantity, &options); err != nil {
			return nil, err
		}
		it.VariantID = stringPtr(variantID)
		if len(options) > 0 {
			if err := json.Unmarshal(options, &it.SelectedOptions); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Update persists lifecycle fields. Totals and items are immutable after creation.
func (r *OrderRepo) Update(ctx context.Context, o *models.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_reference = $3, cancel_reason = $4, paid_at = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		o.ID,
		string(o.Status),
		o.PaymentReference,
		o.CancelReason,
		o.PaidAt,
		o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *OrderRepo) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.list(ctx, query, args...)
}

// ListStalePending returns pending orders created before the cutoff, oldest first.
func (r *OrderRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'pending' AND created_at < $1 ORDER BY created_at LIMIT $2`
	return r.list(ctx, query, before, limit)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range orders {
		items, err := r.items(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func optionsOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
