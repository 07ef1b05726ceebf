package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

// --- Request DTOs ---

type CouponRequest struct {
	Code             string          `json:"code" validate:"required,max=64"`
	DiscountType     string          `json:"discountType" validate:"required,oneof=percentage fixed"`
	Value            decimal.Decimal `json:"value"`
	MinimumCartTotal *int64          `json:"minimumCartTotal,omitempty" validate:"omitempty,gte=0"`
	MaxDiscount      *int64          `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty"`
	UsageLimit       *int            `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	IsActive         *bool           `json:"isActive,omitempty"`
	ProductIDs       []string        `json:"productIds,omitempty"`
	CategoryIDs      []string        `json:"categoryIds,omitempty"`
}

func (req CouponRequest) input() service.CouponInput {
	return service.CouponInput{
		Code:             req.Code,
		DiscountType:     models.DiscountType(req.DiscountType),
		Value:            req.Value,
		MinimumCartTotal: req.MinimumCartTotal,
		MaxDiscount:      req.MaxDiscount,
		ExpiresAt:        req.ExpiresAt,
		UsageLimit:       req.UsageLimit,
		IsActive:         req.IsActive,
		ProductIDs:       req.ProductIDs,
		CategoryIDs:      req.CategoryIDs,
	}
}

type ValidateCouponRequest struct {
	Code  string                `json:"code" validate:"required"`
	Items []models.CartLineItem `json:"items" validate:"required,min=1,dive"`
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	coupons *service.CouponService
	pricing *service.PricingService
}

func NewCouponHandler(coupons *service.CouponService, pricing *service.PricingService) *CouponHandler {
	return &CouponHandler{coupons: coupons, pricing: pricing}
}

// --- Handlers ---

// ValidateCoupon handles POST /coupons/validate.
// A rejected code is a 200 with isValid=false and the rejection code as reason.
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	res, err := h.pricing.CheckCoupon(r.Context(), req.Code, req.Items)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// CreateCoupon handles POST /admin/coupons.
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.coupons.Create(r.Context(), req.input())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

// UpdateCoupon handles PUT /admin/coupons/{code}. The path code wins over the body.
func (h *CouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	in := req.input()
	in.Code = code
	c, err := h.coupons.Update(r.Context(), code, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// DeactivateCoupon handles DELETE /admin/coupons/{code}.
func (h *CouponHandler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []models.Coupon{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"coupons": list})
}
