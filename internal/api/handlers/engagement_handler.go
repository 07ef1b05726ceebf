package handlers

import (
	"net/http"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

type PriceAlertRequest struct {
	Email       string `json:"email" validate:"required,email"`
	ProductID   string `json:"productId" validate:"required"`
	TargetPrice int64  `json:"targetPrice" validate:"gt=0"`
}

type NewsletterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SettingsRequest struct {
	ShippingFee           *int64 `json:"shippingFee,omitempty" validate:"omitempty,gte=0"`
	FreeShippingThreshold *int64 `json:"freeShippingThreshold,omitempty" validate:"omitempty,gte=0"`
}

// EngagementHandler serves price alerts, the newsletter and site settings.
type EngagementHandler struct {
	alerts     *service.PriceAlertService
	newsletter *service.NewsletterService
	settings   *service.SettingsService
}

func NewEngagementHandler(alerts *service.PriceAlertService, newsletter *service.NewsletterService, settings *service.SettingsService) *EngagementHandler {
	return &EngagementHandler{alerts: alerts, newsletter: newsletter, settings: settings}
}

// SubscribePriceAlert handles POST /price-alerts.
func (h *EngagementHandler) SubscribePriceAlert(w http.ResponseWriter, r *http.Request) {
	var req PriceAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	alert, err := h.alerts.Subscribe(r.Context(), req.Email, req.ProductID, req.TargetPrice)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, alert)
}

// Subscribe handles POST /newsletter/subscribe.
func (h *EngagementHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.newsletter.Subscribe(r.Context(), req.Email); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"subscribed": true})
}

// Unsubscribe handles POST /newsletter/unsubscribe.
func (h *EngagementHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.newsletter.Unsubscribe(r.Context(), req.Email); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"subscribed": false})
}

func (h *EngagementHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Current(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

func (h *EngagementHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	s, err := h.settings.Update(r.Context(), service.SettingsUpdate{
		ShippingFee:           req.ShippingFee,
		FreeShippingThreshold: req.FreeShippingThreshold,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, s)
}
