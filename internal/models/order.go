package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderPaid       OrderStatus = "PAID"
	OrderPreparing  OrderStatus = "PREPARING"
	OrderDelivering OrderStatus = "DELIVERING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderPreparing, OrderDelivering, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Rewarding reports whether entering this status should notify the reward engine.
func (s OrderStatus) Rewarding() bool {
	return s == OrderPaid || s == OrderCompleted
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
