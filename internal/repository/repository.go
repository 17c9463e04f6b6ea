// Package repository declares the storage contracts shared by the Postgres
// and in-memory stores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, completedAt *time.Time) error
	CountUserOrders(ctx context.Context, userID string, statuses []models.OrderStatus, placedUpTo time.Time) (int, error)
	SumUserOrderTotals(ctx context.Context, userID string, statuses []models.OrderStatus, from, to time.Time) (decimal.Decimal, error)
}

type SettingsRepo interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
	ListSpendRules(ctx context.Context, activeOnly bool) ([]models.SpendRule, error)
	SaveSpendRule(ctx context.Context, r *models.SpendRule) error
}

type CouponRepo interface {
	InsertCoupon(ctx context.Context, c *models.Coupon) error
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	GetCouponForUpdate(ctx context.Context, code string) (*models.Coupon, error)
	ListUserCoupons(ctx context.Context, userID string) ([]models.Coupon, error)
	IncrementCouponUses(ctx context.Context, code string) error
}

// UsageRepo tracks per-user coupon redemptions.
type UsageRepo interface {
	GetAndLockUsage(ctx context.Context, code, userID string) (int, error)
	IncrementUsage(ctx context.Context, code, userID string, at time.Time) error
}

type WalletRepo interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	GetWalletForUpdate(ctx context.Context, userID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, w *models.Wallet) error
	AddWalletBalance(ctx context.Context, walletID string, delta int64, at time.Time) error
	AppendWalletTransaction(ctx context.Context, t *models.WalletTransaction) error
	ListWalletTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error)
	HasOrderCredit(ctx context.Context, orderID string) (bool, error)
}

type GrantRepo interface {
	// LockUser serializes reward processing for one user until the transaction ends.
	LockUser(ctx context.Context, userID string) error
	// FindGrant returns the most recent grant of rewardKey to userID on or after since.
	FindGrant(ctx context.Context, rewardKey, userID string, since time.Time) (*models.RewardGrant, error)
	InsertGrant(ctx context.Context, g *models.RewardGrant) error
}

type OutboxRepo interface {
	EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error
	ListPendingEvents(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id string, at time.Time) error
	MarkEventFailed(ctx context.Context, id string, reason string) error
}

// Tx is the set of repositories bound to one transaction.
type Tx interface {
	OrderRepo
	SettingsRepo
	CouponRepo
	UsageRepo
	WalletRepo
	GrantRepo
	OutboxRepo
}

// Store runs units of work. fn's writes commit together when it returns nil
// and are discarded otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
