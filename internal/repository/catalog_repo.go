package repository

import (
	"context"
	"database/sql"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const productColumns = `id, slug, name, category_id, price, sale_price, sale_start_date, sale_end_date,
	stock, is_archived, rating, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p         models.Product
		salePrice sql.NullInt64
		saleStart sql.NullTime
		saleEnd   sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Name,
		&p.CategoryID,
		&p.Price,
		&salePrice,
		&saleStart,
		&saleEnd,
		&p.Stock,
		&p.IsArchived,
		&p.Rating,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SalePrice = int64Ptr(salePrice)
	p.SaleStartDate = timePtr(saleStart)
	p.SaleEndDate = timePtr(saleEnd)
	return &p, nil
}

func (r *CatalogRepo) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return p, nil
}

func (r *CatalogRepo) ListProducts(ctx context.Context, includeArchived bool) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ($1 OR NOT is_archived) ORDER BY created_at DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products
		(id, slug, name, category_id, price, sale_price, sale_start_date, sale_end_date,
		 stock, is_archived, rating, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID,
		p.Slug,
		p.Name,
		p.CategoryID,
		p.Price,
		p.SalePrice,
		p.SaleStartDate,
		p.SaleEndDate,
		p.Stock,
		p.IsArchived,
		p.Rating,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return mapWriteErr(err)
}

// UpdateProduct writes the editable fields. Stock is only changed through AddStock.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET slug = $2, name = $3, category_id = $4, price = $5, sale_price = $6,
		    sale_start_date = $7, sale_end_date = $8, is_archived = $9, rating = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID,
		p.Slug,
		p.Name,
		p.CategoryID,
		p.Price,
		p.SalePrice,
		p.SaleStartDate,
		p.SaleEndDate,
		p.IsArchived,
		p.Rating,
		p.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return requireAffected(res)
}

func (r *CatalogRepo) FindVariant(ctx context.Context, id string) (*models.ProductVariant, error) {
	query := `SELECT id, product_id, name, price, stock, created_at FROM product_variants WHERE id = $1`
	v, err := scanVariant(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return v, nil
}

func (r *CatalogRepo) ListVariants(ctx context.Context, productID string) ([]models.ProductVariant, error) {
	query := `SELECT id, product_id, name, price, stock, created_at FROM product_variants WHERE product_id = $1 ORDER BY created_at`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []models.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

func scanVariant(row rowScanner) (*models.ProductVariant, error) {
	var (
		v     models.ProductVariant
		price sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.Stock, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Price = int64Ptr(price)
	return &v, nil
}

func (r *CatalogRepo) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	query := `INSERT INTO product_variants (id, product_id, name, price, stock, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, v.ID, v.ProductID, v.Name, v.Price, v.Stock, v.CreatedAt)
	return mapWriteErr(err)
}

// AddStock applies a signed delta to the denormalized counter of a product or variant.
func (r *CatalogRepo) AddStock(ctx context.Context, productID string, variantID *string, delta int) error {
	var (
		res sql.Result
		err error
	)
	if variantID != nil {
		res, err = conn(ctx, r.db).ExecContext(ctx,
			`UPDATE product_variants SET stock = stock + $3 WHERE id = $2 AND product_id = $1`,
			productID, *variantID, delta)
	} else {
		res, err = conn(ctx, r.db).ExecContext(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
			productID, delta)
	}
	if err != nil {
		return err
	}
	return requireAffected(res)
}
