package handlers

import (
	"net/http"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/service"
)

type ShopHandler struct {
	gate     *service.OrderGate
	settings *service.SettingsService
	clock    func() time.Time
}

func NewShopHandler(gate *service.OrderGate, settings *service.SettingsService, clock func() time.Time) *ShopHandler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ShopHandler{gate: gate, settings: settings, clock: clock}
}

// Status handles GET /shop/status
func (h *ShopHandler) Status(w http.ResponseWriter, r *http.Request) {
	d := h.gate.Decide(h.settings.ScheduleConfig(r.Context()), h.clock())
	writeJSON(w, http.StatusOK, d)
}
