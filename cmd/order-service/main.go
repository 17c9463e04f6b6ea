package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/api"
	"github.com/Cheertaboi/restaurant-order-service/internal/config"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository/memory"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository/postgres"
	"github.com/Cheertaboi/restaurant-order-service/internal/reward"
	"github.com/Cheertaboi/restaurant-order-service/internal/scheduler"
	"github.com/Cheertaboi/restaurant-order-service/internal/service"
	"github.com/Cheertaboi/restaurant-order-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("resolve shop timezone", zap.Error(err))
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	settings := service.NewSettingsService(store, cfg.Shop.SettingsTTL, logger.Named("settings"))
	engine := reward.NewEngine(store, settings, logger.Named("reward"))
	dispatcher := scheduler.NewOutboxDispatcher(store, engine, scheduler.OutboxConfig{
		Schedule:    cfg.Outbox.Schedule,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Workers:     cfg.Outbox.Workers,
	}, logger.Named("outbox"))
	clock := func() time.Time { return time.Now().UTC() }
	gate := service.NewOrderGate(loc, logger.Named("gate"))
	orders := service.NewOrderService(store, gate, settings, logger.Named("orders"),
		service.WithClock(clock),
		service.WithPublisher(dispatcher),
	)

	handler := api.NewRouter(api.Deps{
		Gate:     gate,
		Orders:   orders,
		Settings: settings,
		Coupons:  service.NewCouponService(store, logger.Named("coupons")),
		Wallets:  service.NewWalletService(store),
		Clock:    clock,
		Logger:   logger.Named("http"),
	})

	if err := dispatcher.Start(); err != nil {
		logger.Fatal("start outbox dispatcher", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}
		dispatcher.Stop()
		close(idleConnsClosed)
	}()

	logger.Info("starting order-service",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("timezone", loc.String()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}
	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}

func openStore(cfg config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
		return nil, nil, err
	}

	conn, err := db.NewPostgresConnection(context.Background(), cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close db", zap.Error(err))
		}
	}
	return postgres.NewStore(conn), closeFn, nil
}
