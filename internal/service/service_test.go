package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository/memory"
	"github.com/Cheertaboi/restaurant-order-service/internal/reward"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

const mondayOnly = `{"monday":{"isOpen":true,"open":"09:00","close":"17:00"}}`

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []reward.OrderEvent
}

func (p *recordingPublisher) Publish(ev reward.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []reward.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reward.OrderEvent(nil), p.events...)
}

type fixture struct {
	store     *memory.Store
	settings  *SettingsService
	orders    *OrderService
	publisher *recordingPublisher
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memory.NewStore()
	settings := NewSettingsService(store, time.Minute, nil)
	settings.clock = func() time.Time { return now }
	pub := &recordingPublisher{}
	orders := NewOrderService(store, NewOrderGate(time.UTC, nil), settings, nil,
		WithClock(func() time.Time { return now }),
		WithPublisher(pub),
	)
	return &fixture{store: store, settings: settings, orders: orders, publisher: pub}
}

func outbox(t *testing.T, store repository.Store) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		events, err = tx.ListPendingEvents(ctx, 100, 100)
		return err
	})
	require.NoError(t, err)
	return events
}
