package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/auth"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

type CreateProductRequest struct {
	Slug          string     `json:"slug" validate:"required,max=200"`
	Name          string     `json:"name" validate:"required,max=300"`
	CategoryID    string     `json:"categoryId"`
	Price         int64      `json:"price" validate:"gt=0"`
	SalePrice     *int64     `json:"salePrice,omitempty" validate:"omitempty,gt=0"`
	SaleStartDate *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time `json:"saleEndDate,omitempty"`
	Stock         int        `json:"stock" validate:"gte=0"`
	Rating        float64    `json:"rating" validate:"gte=0,lte=5"`
}

type UpdateProductRequest struct {
	Name          *string    `json:"name,omitempty" validate:"omitempty,min=1,max=300"`
	CategoryID    *string    `json:"categoryId,omitempty"`
	Price         *int64     `json:"price,omitempty" validate:"omitempty,gt=0"`
	SalePrice     *int64     `json:"salePrice,omitempty" validate:"omitempty,gt=0"`
	SaleStartDate *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time `json:"saleEndDate,omitempty"`
	ClearSale     bool       `json:"clearSale,omitempty"`
}

type CreateVariantRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Price *int64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Stock int    `json:"stock" validate:"gte=0"`
}

type AdjustInventoryRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	VariantID *string `json:"variantId,omitempty"`
	Change    int     `json:"change" validate:"ne=0"`
	Reason    string  `json:"reason" validate:"required,oneof=MANUAL_ADJUSTMENT RESTOCK"`
}

type CatalogHandler struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
}

func NewCatalogHandler(catalog *service.CatalogService, inventory *service.InventoryService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, inventory: inventory}
}

// ListProducts handles GET /products. Admins may pass ?archived=true.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true" && auth.IdentityFrom(r.Context()).IsAdmin()
	products, err := h.catalog.ListProducts(r.Context(), includeArchived)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"products": products})
}

// GetProduct handles GET /products/{id}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	variants, err := h.catalog.ListVariants(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if variants == nil {
		variants = []models.ProductVariant{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"product": p, "variants": variants})
}

// CreateProduct handles POST /admin/products.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), service.ProductInput{
		Slug:          req.Slug,
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		SaleStartDate: req.SaleStartDate,
		SaleEndDate:   req.SaleEndDate,
		Stock:         req.Stock,
		Rating:        req.Rating,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PATCH /admin/products/{id}.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), service.ProductUpdate{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		SaleStartDate: req.SaleStartDate,
		SaleEndDate:   req.SaleEndDate,
		ClearSale:     req.ClearSale,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// ArchiveProduct handles POST /admin/products/{id}/archive.
func (h *CatalogHandler) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ArchiveProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateVariant handles POST /admin/products/{id}/variants.
func (h *CatalogHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req CreateVariantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	v, err := h.catalog.CreateVariant(r.Context(), chi.URLParam(r, "id"), service.VariantInput{
		Name: req.Name, Price: req.Price, Stock: req.Stock,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, v)
}

// AdjustInventory handles POST /admin/inventory/adjust.
func (h *CatalogHandler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req AdjustInventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	actor := auth.IdentityFrom(r.Context()).UserID
	entry, err := h.inventory.Adjust(r.Context(), service.AdjustInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Change:    req.Change,
		Reason:    models.InventoryReason(req.Reason),
		UserID:    &actor,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, entry)
}

// Reconcile handles GET /admin/inventory/{productId}/reconcile?variantId=.
func (h *CatalogHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var variantID *string
	if v := strings.TrimSpace(r.URL.Query().Get("variantId")); v != "" {
		variantID = &v
	}
	rec, err := h.inventory.Reconcile(r.Context(), chi.URLParam(r, "productId"), variantID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}
