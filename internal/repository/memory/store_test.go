package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

var now = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func credit(orderID string) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:        "t-" + orderID,
		WalletID:  "w1",
		Amount:    10,
		Type:      models.TransactionCredit,
		OrderID:   &orderID,
		CreatedAt: now,
	}
}

func TestAppendWalletTransaction_DuplicateCredit(t *testing.T) {
	store := NewStore()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.AppendWalletTransaction(ctx, credit("o1")))
		return tx.AppendWalletTransaction(ctx, credit("o1"))
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestAppendWalletTransaction_PropagatesLookupError(t *testing.T) {
	store := NewStore()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		return tx.AppendWalletTransaction(cctx, credit("o1"))
	})
	require.ErrorIs(t, err, context.Canceled)

	err = store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		w, err := tx.GetWallet(ctx, "u1")
		require.ErrorIs(t, err, repository.ErrNotFound)
		require.Nil(t, w)
		credited, err := tx.HasOrderCredit(ctx, "o1")
		require.NoError(t, err)
		require.False(t, credited)
		return nil
	})
	require.NoError(t, err)
}

func TestCountUserOrders_PlacedUpTo(t *testing.T) {
	store := NewStore()
	statuses := []models.OrderStatus{models.OrderPaid, models.OrderCompleted}

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for i, o := range []models.Order{
			{ID: "a", UserID: "u1", Status: models.OrderCompleted, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "b", UserID: "u1", Status: models.OrderPaid, CreatedAt: now},
			{ID: "c", UserID: "u1", Status: models.OrderCancelled, CreatedAt: now.Add(-time.Hour)},
			{ID: "d", UserID: "u2", Status: models.OrderPaid, CreatedAt: now.Add(-time.Hour)},
		} {
			o.Total = decimal.NewFromInt(int64(i + 1))
			if err := tx.CreateOrder(ctx, &o); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		n, err := tx.CountUserOrders(ctx, "u1", statuses, now.Add(-time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = tx.CountUserOrders(ctx, "u1", statuses, now)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		return nil
	})
	require.NoError(t, err)
}
