package models

import "time"

// Product is a catalog entry. Prices are whole currency units.
type Product struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Name          string     `json:"name"`
	CategoryID    string     `json:"categoryId"`
	Price         int64      `json:"price"`
	SalePrice     *int64     `json:"salePrice,omitempty"`
	SaleStartDate *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time `json:"saleEndDate,omitempty"`
	Stock         int        `json:"stock"`
	IsArchived    bool       `json:"isArchived"`
	Rating        float64    `json:"rating"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SaleActive reports whether the sale price applies at now. Missing bounds are open.
func (p Product) SaleActive(now time.Time) bool {
	if p.SalePrice == nil {
		return false
	}
	if p.SaleStartDate != nil && now.Before(*p.SaleStartDate) {
		return false
	}
	if p.SaleEndDate != nil && now.After(*p.SaleEndDate) {
		return false
	}
	return true
}

// EffectivePrice is the sale price when active, else the base price.
func (p Product) EffectivePrice(now time.Time) int64 {
	if p.SaleActive(now) {
		return *p.SalePrice
	}
	return p.Price
}

// ProductVariant belongs to exactly one product.
type ProductVariant struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Price     *int64    `json:"price,omitempty"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
}
