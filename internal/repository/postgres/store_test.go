package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

var now = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(db), mock
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("reward:u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.LockUser(ctx, "u1")
	})
	require.NoError(t, err)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(context.Context, repository.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestGetOrder_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "status", "created_at", "completed_at"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.GetOrderForUpdate(ctx, "missing")
		return err
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetOrder_ScansRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \$1`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "status", "created_at", "completed_at"}).
			AddRow("o1", "u1", "250.00", "COMPLETED", now, now))
	mock.ExpectCommit()

	var order *models.Order
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, "o1")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderCompleted, order.Status)
	require.True(t, order.Total.Equal(decimal.NewFromInt(250)))
	require.NotNil(t, order.CompletedAt)
}

func TestUpdateOrderStatus_NoRows(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders`).
		WithArgs("o1", "PAID", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.UpdateOrderStatus(ctx, "o1", models.OrderPaid, nil)
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateOrder_DuplicateMapsToErrDuplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateOrder(ctx, &models.Order{ID: "o1", UserID: "u1", Total: decimal.NewFromInt(1), Status: models.OrderPending, CreatedAt: now})
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetAndLockUsage_CreatesMissingRow(t *testing.T) {
	store, mock := newMock(t)
	lock := regexp.QuoteMeta(`FROM coupon_usage`) + `(.|\n)*FOR UPDATE`

	mock.ExpectBegin()
	mock.ExpectQuery(lock).
		WithArgs("R2ND-U1-ABC", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}))
	mock.ExpectExec(`INSERT INTO coupon_usage`).
		WithArgs("R2ND-U1-ABC", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lock).
		WithArgs("R2ND-U1-ABC", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(0))
	mock.ExpectCommit()

	var used int
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		used, err = tx.GetAndLockUsage(ctx, "R2ND-U1-ABC", "u1")
		return err
	})
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestGetAndLockUsage_ExistingRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM coupon_usage`).
		WithArgs("CODE", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(2))
	mock.ExpectCommit()

	var used int
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		used, err = tx.GetAndLockUsage(ctx, "CODE", "u1")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 2, used)
}

func TestFindGrant(t *testing.T) {
	store, mock := newMock(t)
	since := now.AddDate(0, 0, -30)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reward_grants`).
		WithArgs("spend:r1", "u1", since).
		WillReturnRows(sqlmock.NewRows([]string{"reward_key", "user_id", "period_start", "coupon_code", "order_id", "granted_at"}))
	mock.ExpectQuery(`FROM reward_grants`).
		WithArgs("spend:r1", "u1", since).
		WillReturnRows(sqlmock.NewRows([]string{"reward_key", "user_id", "period_start", "coupon_code", "order_id", "granted_at"}).
			AddRow("spend:r1", "u1", since, "SPEND-R1-U1-ABCD", "o9", now))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.FindGrant(ctx, "spend:r1", "u1", since)
		require.ErrorIs(t, err, repository.ErrNotFound)

		g, err := tx.FindGrant(ctx, "spend:r1", "u1", since)
		require.NoError(t, err)
		require.Equal(t, "SPEND-R1-U1-ABCD", g.CouponCode)
		return nil
	})
	require.NoError(t, err)
}

func TestWalletCredit(t *testing.T) {
	store, mock := newMock(t)
	orderID := "o1"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}).
			AddRow("w1", "u1", 40, now, now))
	mock.ExpectExec(`UPDATE wallets`).
		WithArgs("w1", int64(25), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WithArgs("t1", "w1", int64(25), "CREDIT", orderID, "Earned 25 points", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		credited, err := tx.HasOrderCredit(ctx, orderID)
		if err != nil || credited {
			return errors.New("unexpected credit state")
		}
		w, err := tx.GetWalletForUpdate(ctx, "u1")
		if err != nil {
			return err
		}
		if err := tx.AddWalletBalance(ctx, w.ID, 25, now); err != nil {
			return err
		}
		return tx.AppendWalletTransaction(ctx, &models.WalletTransaction{
			ID:          "t1",
			WalletID:    w.ID,
			Amount:      25,
			Type:        models.TransactionCredit,
			OrderID:     &orderID,
			Description: "Earned 25 points",
			CreatedAt:   now,
		})
	})
	require.NoError(t, err)
}

func TestListPendingEvents(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(10, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "order_id", "user_id", "status", "prior_status", "state",
			"attempts", "last_error", "created_at", "processed_at",
		}).AddRow("e1", models.EventOrderStatusChanged, "o1", "u1", "COMPLETED", "DELIVERING", "FAILED", 2, "timeout", now, nil))
	mock.ExpectCommit()

	var events []models.OutboxEvent
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		events, err = tx.ListPendingEvents(ctx, 10, 5)
		return err
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.OutboxFailed, events[0].State)
	require.Equal(t, models.OrderDelivering, events[0].PriorStatus)
	require.Nil(t, events[0].ProcessedAt)
}

func TestCountUserOrders_BoundsByPlacement(t *testing.T) {
	store, mock := newMock(t)
	statuses := []models.OrderStatus{models.OrderPaid, models.OrderCompleted}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = ANY($2) AND created_at <= $3`)).
		WithArgs("u1", pq.Array([]string{"PAID", "COMPLETED"}), now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	var n int
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		n, err = tx.CountUserOrders(ctx, "u1", statuses, now)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
