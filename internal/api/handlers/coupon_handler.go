package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/service"
)

// --- Request / Response DTOs ---

type RedeemRequestBody struct {
	UserID     string          `json:"user_id"`
	Coupon     string          `json:"coupon_code"`
	OrderTotal decimal.Decimal `json:"order_total"`
	Timestamp  string          `json:"timestamp,omitempty"` // accepted for compatibility, not used
}

type CouponView struct {
	Code           string           `json:"coupon_code"`
	DiscountType   string           `json:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discount_value"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	MaxUses        *int             `json:"max_uses,omitempty"`
	UsedCount      int              `json:"used_count"`
	MaxUsesPerUser int              `json:"max_usage_per_user"`
	StartDate      time.Time        `json:"valid_from"`
	EndDate        time.Time        `json:"valid_to"`
	IsActive       bool             `json:"is_active"`
}

type UserCouponsResponse struct {
	Coupons []CouponView `json:"coupons"`
}

func newCouponView(c models.Coupon) CouponView {
	return CouponView{
		Code:           c.Code,
		DiscountType:   string(c.Type),
		DiscountValue:  c.Value,
		MaxDiscount:    c.MaxDiscount,
		MaxUses:        c.MaxUses,
		UsedCount:      c.UsedCount,
		MaxUsesPerUser: c.MaxUsesPerUser,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		IsActive:       c.IsActive,
	}
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	service *service.CouponService
	clock   func() time.Time
}

func NewCouponHandler(svc *service.CouponService, clock func() time.Time) *CouponHandler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &CouponHandler{service: svc, clock: clock}
}

// --- Handlers ---

// Redeem handles POST /coupons/redeem
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequestBody
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	// validity is checked against the server clock only
	if strings.TrimSpace(req.Timestamp) != "" {
		if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timestamp; use RFC3339"})
			return
		}
	}

	resp, err := h.service.Redeem(r.Context(), models.RedeemRequest{
		UserID:     req.UserID,
		CouponCode: req.Coupon,
		OrderTotal: req.OrderTotal,
	}, h.clock())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListUserCoupons handles GET /users/{id}/coupons
func (h *CouponHandler) ListUserCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.ListUserCoupons(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := UserCouponsResponse{Coupons: make([]CouponView, 0, len(coupons))}
	for _, c := range coupons {
		out.Coupons = append(out.Coupons, newCouponView(c))
	}
	writeJSON(w, http.StatusOK, out)
}
