package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/config"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository/memory"
)

func TestNewLogger(t *testing.T) {
	var cfg config.Config
	cfg.App.Env = "production"
	cfg.Log.Level = "warn"
	cfg.Log.Encoding = "console"

	logger, err := newLogger(cfg)
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.InfoLevel))
	require.True(t, logger.Core().Enabled(zap.WarnLevel))

	cfg.Log.Level = "loud"
	_, err = newLogger(cfg)
	require.Error(t, err)
}

func TestOpenStore_Memory(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Driver = config.DriverMemory

	store, closeFn, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, store)
	closeFn()
}
