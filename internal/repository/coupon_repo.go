package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

const couponColumns = `id, code, discount_type, value, minimum_cart_total, max_discount, expires_at,
	usage_limit, usage_count, is_active, product_ids, category_ids, created_at, updated_at`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		c          models.Coupon
		discount   string
		minimum    sql.NullInt64
		maxOff     sql.NullInt64
		expiresAt  sql.NullTime
		usageLimit sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&discount,
		&c.Value,
		&minimum,
		&maxOff,
		&expiresAt,
		&usageLimit,
		&c.UsageCount,
		&c.IsActive,
		pq.Array(&c.ProductIDs),
		pq.Array(&c.CategoryIDs),
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DiscountType = models.DiscountType(discount)
	c.MinimumCartTotal = int64Ptr(minimum)
	c.MaxDiscount = int64Ptr(maxOff)
	c.ExpiresAt = timePtr(expiresAt)
	if usageLimit.Valid {
		n := int(usageLimit.Int64)
		c.UsageLimit = &n
	}
	return &c, nil
}

func (r *CouponRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	c, err := scanCoupon(conn(ctx, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return c, nil
}

func (r *CouponRepo) List(ctx context.Context) ([]models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons
		(id, code, discount_type, value, minimum_cart_total, max_discount, expires_at,
		 usage_limit, usage_count, is_active, product_ids, category_ids, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.ID,
		c.Code,
		string(c.DiscountType),
		c.Value,
		c.MinimumCartTotal,
		c.MaxDiscount,
		c.ExpiresAt,
		c.UsageLimit,
		c.UsageCount,
		c.IsActive,
		pq.Array(nonNil(c.ProductIDs)),
		pq.Array(nonNil(c.CategoryIDs)),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapWriteErr(err)
}

// Update writes every editable field except usage_count.
func (r *CouponRepo) Update(ctx context.Context, c *models.Coupon) error {
	query := `
		UPDATE coupons
		SET discount_type = $2, value = $3, minimum_cart_total = $4, max_discount = $5,
		    expires_at = $6, usage_limit = $7, is_active = $8, product_ids = $9,
		    category_ids = $10, updated_at = $11
		WHERE code = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.Code,
		string(c.DiscountType),
		c.Value,
		c.MinimumCartTotal,
		c.MaxDiscount,
		c.ExpiresAt,
		c.UsageLimit,
		c.IsActive,
		pq.Array(nonNil(c.ProductIDs)),
		pq.Array(nonNil(c.CategoryIDs)),
		c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IncrementUsage consumes one use of the coupon.
func (r *CouponRepo) IncrementUsage(ctx context.Context, code string) error {
	query := `
		UPDATE coupons
		SET usage_count = usage_count + 1,
		    updated_at = NOW()
		WHERE code = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, code)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
