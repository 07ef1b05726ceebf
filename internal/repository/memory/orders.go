package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

type Orders struct{ s *Store }

func (o *Orders) Create(ctx context.Context, order *models.Order) error {
	o.s.wlock(ctx)
	defer o.s.wunlock(ctx)
	if _, ok := o.s.st.orders[order.ID]; ok {
		return fmt.Errorf("%w: orders_pkey", repository.ErrConflict)
	}
	o.s.st.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (o *Orders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	o.s.rlock(ctx)
	defer o.s.runlock(ctx)
	order, ok := o.s.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneOrder(order)
	return &cp, nil
}

// FindByIDForUpdate is FindByID: the transaction already holds the store lock.
func (o *Orders) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return o.FindByID(ctx, id)
}

func (o *Orders) Update(ctx context.Context, order *models.Order) error {
	o.s.wlock(ctx)
	defer o.s.wunlock(ctx)
	current, ok := o.s.st.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Status = order.Status
	current.PaymentReference = order.PaymentReference
	current.CancelReason = order.CancelReason
	current.PaidAt = order.PaidAt
	current.UpdatedAt = order.UpdatedAt
	o.s.st.orders[order.ID] = current
	return nil
}

func (o *Orders) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	o.s.rlock(ctx)
	defer o.s.runlock(ctx)
	var out []models.Order
	for _, order := range o.s.st.orders {
		if f.Status != nil && order.Status != *f.Status {
			continue
		}
		if f.From != nil && order.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !order.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (o *Orders) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	o.s.rlock(ctx)
	defer o.s.runlock(ctx)
	var out []models.Order
	for _, order := range o.s.st.orders {
		if order.Status == models.OrderPending && order.CreatedAt.Before(before) {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Customers struct{ s *Store }

func (c *Customers) FindByUserID(ctx context.Context, userID string) (*models.Customer, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	cust, ok := c.s.st.customers[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cust, nil
}

func (c *Customers) AddSpent(ctx context.Context, userID, email string, amount int64) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	cust, ok := c.s.st.customers[userID]
	if !ok {
		cust = models.Customer{UserID: userID}
	}
	if email != "" {
		cust.Email = email
	}
	cust.TotalSpent += amount
	cust.UpdatedAt = time.Now().UTC()
	c.s.st.customers[userID] = cust
	return nil
}
