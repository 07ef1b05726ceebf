package repository

import (
	"context"
	"database/sql"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type GiftCardRepo struct {
	db *sql.DB
}

func NewGiftCardRepo(db *sql.DB) *GiftCardRepo {
	return &GiftCardRepo{db: db}
}

const giftCardColumns = `id, code, amount, balance, status, expires_at, created_at, updated_at`

func scanGiftCard(row rowScanner) (*models.GiftCard, error) {
	var (
		g      models.GiftCard
		status string
	)
	if err := row.Scan(&g.ID, &g.Code, &g.Amount, &g.Balance, &status, &g.ExpiresAt, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Status = models.GiftCardStatus(status)
	return &g, nil
}

func (r *GiftCardRepo) Create(ctx context.Context, g *models.GiftCard) error {
	query := `
		INSERT INTO gift_cards (` + giftCardColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		g.ID, g.Code, g.Amount, g.Balance, string(g.Status), g.ExpiresAt, g.CreatedAt, g.UpdatedAt)
	return mapWriteErr(err)
}

func (r *GiftCardRepo) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE code = $1`
	g, err := scanGiftCard(conn(ctx, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return g, nil
}

// FindByCodeForUpdate locks the card row so balance checks and the debit see the same value.
func (r *GiftCardRepo) FindByCodeForUpdate(ctx context.Context, code string) (*models.GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE code = $1 FOR UPDATE`
	g, err := scanGiftCard(conn(ctx, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return g, nil
}

func (r *GiftCardRepo) Update(ctx context.Context, g *models.GiftCard) error {
	query := `UPDATE gift_cards SET balance = $2, status = $3, updated_at = $4 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, g.ID, g.Balance, string(g.Status), g.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *GiftCardRepo) AppendRedemption(ctx context.Context, red *models.GiftCardRedemption) error {
	query := `INSERT INTO gift_card_redemptions (id, gift_card_id, order_id, amount, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, red.ID, red.GiftCardID, red.OrderID, red.Amount, red.CreatedAt)
	return err
}

func (r *GiftCardRepo) ListRedemptions(ctx context.Context, giftCardID string) ([]models.GiftCardRedemption, error) {
	query := `
		SELECT id, gift_card_id, order_id, amount, created_at
		FROM gift_card_redemptions
		WHERE gift_card_id = $1
		ORDER BY created_at
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, giftCardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GiftCardRedemption
	for rows.Next() {
		var (
			red     models.GiftCardRedemption
			orderID sql.NullString
		)
		if err := rows.Scan(&red.ID, &red.GiftCardID, &orderID, &red.Amount, &red.CreatedAt); err != nil {
			return nil, err
		}
		red.OrderID = stringPtr(orderID)
		out = append(out, red)
	}
	return out, rows.Err()
}
