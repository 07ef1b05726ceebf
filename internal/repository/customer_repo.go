package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{db: db}
}

func (r *CustomerRepo) FindByUserID(ctx context.Context, userID string) (*models.Customer, error) {
	var c models.Customer
	query := `SELECT user_id, email, total_spent, updated_at FROM customers WHERE user_id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.Email, &c.TotalSpent, &c.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &c, nil
}

// AddSpent creates the customer row on first purchase and increments total_spent.
func (r *CustomerRepo) AddSpent(ctx context.Context, userID, email string, amount int64) error {
	query := `
		INSERT INTO customers (user_id, email, total_spent, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET total_spent = customers.total_spent + EXCLUDED.total_spent,
		    email = CASE WHEN EXCLUDED.email = '' THEN customers.email ELSE EXCLUDED.email END,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, userID, email, amount, time.Now().UTC())
	return err
}
