package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

type GiftCardCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemGiftCardRequest struct {
	Code    string  `json:"code" validate:"required"`
	Amount  int64   `json:"amount" validate:"gt=0"`
	OrderID *string `json:"orderId,omitempty"`
}

type IssueGiftCardRequest struct {
	Amount    int64      `json:"amount" validate:"gt=0"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Activate  bool       `json:"activate"`
}

type GiftCardHandler struct {
	cards *service.GiftCardService
}

func NewGiftCardHandler(cards *service.GiftCardService) *GiftCardHandler {
	return &GiftCardHandler{cards: cards}
}

// Balance handles POST /giftcards/balance. The code travels in the body so
// it stays out of access logs.
func (h *GiftCardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	var req GiftCardCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	card, err := h.cards.Balance(r.Context(), req.Code)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"code":      card.Code,
		"balance":   card.Balance,
		"status":    card.Status,
		"expiresAt": card.ExpiresAt,
	})
}

// Redeem handles POST /giftcards/redeem.
func (h *GiftCardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemGiftCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	res, err := h.cards.Redeem(r.Context(), req.Code, req.Amount, req.OrderID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Issue handles POST /admin/giftcards.
func (h *GiftCardHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueGiftCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	card, err := h.cards.Issue(r.Context(), service.IssueGiftCardInput{
		Amount: req.Amount, ExpiresAt: req.ExpiresAt, Activate: req.Activate,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, card)
}

// Activate handles POST /admin/giftcards/{code}/activate.
func (h *GiftCardHandler) Activate(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Activate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, card)
}

// Redemptions handles GET /admin/giftcards/{code}/redemptions.
func (h *GiftCardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.cards.Redemptions(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []models.GiftCardRedemption{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"redemptions": list})
}
