package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/api/handlers"
	"github.com/Cheertaboi/restaurant-order-service/internal/api/middleware"
	"github.com/Cheertaboi/restaurant-order-service/internal/service"
)

type Deps struct {
	Gate     *service.OrderGate
	Orders   *service.OrderService
	Settings *service.SettingsService
	Coupons  *service.CouponService
	Wallets  *service.WalletService
	Clock    func() time.Time
	Logger   *zap.Logger
}

// NewRouter builds the HTTP router for the order-service
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(deps.Logger))

	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	shopHandler := handlers.NewShopHandler(deps.Gate, deps.Settings, clock)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	walletHandler := handlers.NewWalletHandler(deps.Wallets)
	couponHandler := handlers.NewCouponHandler(deps.Coupons, clock)
	adminHandler := handlers.NewAdminHandler(deps.Settings)

	r.Get("/shop/status", shopHandler.Status)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderHandler.PlaceOrder)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Patch("/{id}/status", orderHandler.UpdateStatus)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/wallet", walletHandler.GetWallet)
		r.Get("/coupons", couponHandler.ListUserCoupons)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/redeem", couponHandler.Redeem)
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Get("/settings", adminHandler.GetSettings)
		r.Put("/settings", adminHandler.UpdateSettings)
		r.Get("/reward-rules", adminHandler.ListRewardRules)
		r.Post("/reward-rules", adminHandler.SaveRewardRule)
	})

	r.Handle("/metrics", promhttp.Handler())

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
