package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type PriceAlertRepo struct {
	db *sql.DB
}

func NewPriceAlertRepo(db *sql.DB) *PriceAlertRepo {
	return &PriceAlertRepo{db: db}
}

// Upsert inserts or re-arms the alert for (email, product). The stored id is written back to a.
func (r *PriceAlertRepo) Upsert(ctx context.Context, a *models.PriceAlert) error {
	query := `
		INSERT INTO price_alerts (id, email, product_id, target_price, current_price, triggered, notified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)
		ON CONFLICT (email, product_id) DO UPDATE
		SET target_price = EXCLUDED.target_price,
		    current_price = EXCLUDED.current_price,
		    triggered = FALSE,
		    notified_at = NULL
		RETURNING id, created_at
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		a.ID, a.Email, a.ProductID, a.TargetPrice, a.CurrentPrice, a.CreatedAt,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return err
	}
	a.Triggered = false
	a.NotifiedAt = nil
	return nil
}

func (r *PriceAlertRepo) ListUntriggered(ctx context.Context, productID string) ([]models.PriceAlert, error) {
	query := `
		SELECT id, email, product_id, target_price, current_price, triggered, notified_at, created_at
		FROM price_alerts
		WHERE product_id = $1 AND NOT triggered
		ORDER BY created_at
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.PriceAlert
	for rows.Next() {
		var (
			a          models.PriceAlert
			notifiedAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.ProductID, &a.TargetPrice, &a.CurrentPrice, &a.Triggered, &notifiedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.NotifiedAt = timePtr(notifiedAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *PriceAlertRepo) MarkTriggered(ctx context.Context, id string, currentPrice int64, at time.Time) error {
	query := `UPDATE price_alerts SET triggered = TRUE, current_price = $2, notified_at = $3 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, currentPrice, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type NewsletterRepo struct {
	db *sql.DB
}

func NewNewsletterRepo(db *sql.DB) *NewsletterRepo {
	return &NewsletterRepo{db: db}
}

// SetSubscribed upserts the subscriber and reports whether the flag changed
// (a new row counts as a change).
func (r *NewsletterRepo) SetSubscribed(ctx context.Context, email string, subscribed bool, at time.Time) (bool, error) {
	var previous sql.NullBool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT subscribed FROM newsletter_subscribers WHERE email = $1`, email,
	).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	query := `
		INSERT INTO newsletter_subscribers (email, subscribed, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (email) DO UPDATE
		SET subscribed = EXCLUDED.subscribed, updated_at = EXCLUDED.updated_at
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, email, subscribed, at); err != nil {
		return false, err
	}
	return !previous.Valid || previous.Bool != subscribed, nil
}

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT key, value FROM site_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *SettingsRepo) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO site_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, key, value)
	return err
}
