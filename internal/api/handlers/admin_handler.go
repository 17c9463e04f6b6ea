package handlers

import (
	"net/http"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/service"
)

type AdminHandler struct {
	settings *service.SettingsService
}

func NewAdminHandler(settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{settings: settings}
}

// GetSettings handles GET /admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings handles PUT /admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	saved, err := h.settings.Update(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListRewardRules handles GET /admin/reward-rules
func (h *AdminHandler) ListRewardRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.settings.ListSpendRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rules == nil {
		rules = []models.SpendRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// SaveRewardRule handles POST /admin/reward-rules
func (h *AdminHandler) SaveRewardRule(w http.ResponseWriter, r *http.Request) {
	var req models.SpendRule
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	rule, err := h.settings.SaveSpendRule(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}
