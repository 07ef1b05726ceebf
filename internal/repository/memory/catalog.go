package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

type Catalog struct{ s *Store }

func (c *Catalog) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	p, ok := c.s.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) ListProducts(ctx context.Context, includeArchived bool) ([]models.Product, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	out := make([]models.Product, 0, len(c.s.st.products))
	for _, p := range c.s.st.products {
		if p.IsArchived && !includeArchived {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Catalog) CreateProduct(ctx context.Context, p *models.Product) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	if _, ok := c.s.st.products[p.ID]; ok {
		return fmt.Errorf("%w: products_pkey", repository.ErrConflict)
	}
	for _, existing := range c.s.st.products {
		if existing.Slug == p.Slug {
			return fmt.Errorf("%w: products_slug_key", repository.ErrConflict)
		}
	}
	c.s.st.products[p.ID] = *p
	return nil
}

func (c *Catalog) UpdateProduct(ctx context.Context, p *models.Product) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	current, ok := c.s.st.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range c.s.st.products {
		if id != p.ID && existing.Slug == p.Slug {
			return fmt.Errorf("%w: products_slug_key", repository.ErrConflict)
		}
	}
	updated := *p
	updated.Stock = current.Stock
	updated.CreatedAt = current.CreatedAt
	c.s.st.products[p.ID] = updated
	return nil
}

func (c *Catalog) FindVariant(ctx context.Context, id string) (*models.ProductVariant, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	v, ok := c.s.st.variants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (c *Catalog) ListVariants(ctx context.Context, productID string) ([]models.ProductVariant, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	var out []models.ProductVariant
	for _, v := range c.s.st.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *Catalog) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	if _, ok := c.s.st.products[v.ProductID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := c.s.st.variants[v.ID]; ok {
		return fmt.Errorf("%w: product_variants_pkey", repository.ErrConflict)
	}
	c.s.st.variants[v.ID] = *v
	return nil
}

func (c *Catalog) AddStock(ctx context.Context, productID string, variantID *string, delta int) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	if variantID != nil {
		v, ok := c.s.st.variants[*variantID]
		if !ok || v.ProductID != productID {
			return repository.ErrNotFound
		}
		v.Stock += delta
		c.s.st.variants[v.ID] = v
		return nil
	}
	p, ok := c.s.st.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += delta
	c.s.st.products[productID] = p
	return nil
}

type Inventory struct{ s *Store }

func (i *Inventory) Append(ctx context.Context, entry *models.InventoryLog) error {
	i.s.wlock(ctx)
	defer i.s.wunlock(ctx)
	entry.ID = i.s.st.nextLogID
	i.s.st.nextLogID++
	i.s.st.logs = append(i.s.st.logs, *entry)
	return nil
}

func (i *Inventory) ListByReference(ctx context.Context, referenceID string) ([]models.InventoryLog, error) {
	i.s.rlock(ctx)
	defer i.s.runlock(ctx)
	var out []models.InventoryLog
	for _, e := range i.s.st.logs {
		if e.ReferenceID != nil && *e.ReferenceID == referenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (i *Inventory) SumChanges(ctx context.Context, productID string, variantID *string) (int, error) {
	i.s.rlock(ctx)
	defer i.s.runlock(ctx)
	total := 0
	for _, e := range i.s.st.logs {
		if e.ProductID != productID || !sameVariant(e.VariantID, variantID) {
			continue
		}
		total += e.Change
	}
	return total, nil
}

func sameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
