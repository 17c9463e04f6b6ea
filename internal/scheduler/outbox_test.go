package scheduler

import (
	"context"
	"errors"
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

var at = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type staticRules models.RewardRuleSet

func (r staticRules) RewardRules(context.Context) (models.RewardRuleSet, error) {
	return models.RewardRuleSet(r), nil
}

type fakeProcessor struct {
	mu    sync.Mutex
	err   error
	calls []reward.OrderEvent
}

func (p *fakeProcessor) Process(_ context.Context, ev reward.OrderEvent) (reward.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ev)
	return reward.Result{}, p.err
}

func (p *fakeProcessor) OnOrderCompleted(ctx context.Context, ev reward.OrderEvent) reward.Result {
	res, _ := p.Process(ctx, ev)
	return res
}

func (p *fakeProcessor) Calls() []reward.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reward.OrderEvent(nil), p.calls...)
}

func seed(t *testing.T, store repository.Store, order models.Order, ev models.OutboxEvent) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, &ev)
	})
	require.NoError(t, err)
}

func completedOrder(id, userID, total string) (models.Order, models.OutboxEvent) {
	done := at
	order := models.Order{
		ID:          id,
		UserID:      userID,
		Total:       decimal.RequireFromString(total),
		Status:      models.OrderCompleted,
		CreatedAt:   at.Add(-time.Hour),
		CompletedAt: &done,
	}
	ev := models.OutboxEvent{
		ID:          "evt-" + id,
		Type:        models.EventOrderStatusChanged,
		OrderID:     id,
		UserID:      userID,
		Status:      models.OrderCompleted,
		PriorStatus: models.OrderDelivering,
		State:       models.OutboxPending,
		CreatedAt:   at,
	}
	return order, ev
}

func pending(t *testing.T, store repository.Store, maxAttempts int) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		events, err = tx.ListPendingEvents(ctx, 100, maxAttempts)
		return err
	})
	require.NoError(t, err)
	return events
}

func TestDrain_CreditsPendingEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	engine := reward.NewEngine(store, staticRules{EarnRatePer100: decimal.NewFromInt(10)}, nil)
	d := NewOutboxDispatcher(store, engine, OutboxConfig{Workers: 2}, nil)

	for _, id := range []string{"o1", "o2", "o3"} {
		order, ev := completedOrder(id, "user-"+id, "250")
		seed(t, store, order, ev)
	}

	n, err := d.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Empty(t, pending(t, store, 5))

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		w, err := tx.GetWallet(ctx, "user-o2")
		if err != nil {
			return err
		}
		require.Equal(t, int64(25), w.Balance)
		return nil
	})
	require.NoError(t, err)

	n, err = d.Drain(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDrain_RecordsFailuresUntilMaxAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	proc := &fakeProcessor{err: errors.New("db down")}
	d := NewOutboxDispatcher(store, proc, OutboxConfig{MaxAttempts: 2}, nil)

	order, ev := completedOrder("o1", "u1", "100")
	seed(t, store, order, ev)

	for i := 0; i < 3; i++ {
		n, err := d.Drain(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	}
	require.Len(t, proc.Calls(), 2)
	require.Equal(t, "evt-o1", proc.Calls()[0].EventID)

	left := pending(t, store, 10)
	require.Len(t, left, 1)
	require.Equal(t, models.OutboxFailed, left[0].State)
	require.Equal(t, 2, left[0].Attempts)
	require.Equal(t, "db down", left[0].LastError)
}

func TestDrain_RetriesAfterFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	proc := &fakeProcessor{err: errors.New("transient")}
	d := NewOutboxDispatcher(store, proc, OutboxConfig{}, nil)

	order, ev := completedOrder("o1", "u1", "100")
	seed(t, store, order, ev)

	_, err := d.Drain(ctx)
	require.NoError(t, err)

	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	n, err := d.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, proc.Calls(), 2)
}

func TestPublish_RunsInBackground(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	d := NewOutboxDispatcher(memory.NewStore(), proc, OutboxConfig{}, nil)

	d.Publish(reward.OrderEvent{EventID: "e1", OrderID: "o1", Status: models.OrderPaid})
	d.Publish(reward.OrderEvent{EventID: "e2", OrderID: "o2", Status: models.OrderCompleted})
	d.Wait()

	require.Len(t, proc.Calls(), 2)
}

func TestStart_InvalidSchedule(t *testing.T) {
	t.Parallel()

	d := NewOutboxDispatcher(memory.NewStore(), &fakeProcessor{}, OutboxConfig{Schedule: "every now and then"}, nil)
	require.Error(t, d.Start())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	d := NewOutboxDispatcher(memory.NewStore(), &fakeProcessor{}, OutboxConfig{Schedule: "@every 1h"}, nil)
	require.NoError(t, d.Start())
	d.Stop()
}
