package service

import (
	"errors"

	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrShopClosed        = errors.New("shop closed")
)

// ClosedError carries the human-readable reason the shop refused an order.
type ClosedError struct {
	Message string
}

func (e *ClosedError) Error() string { return "shop closed: " + e.Message }

func (e *ClosedError) Is(target error) bool { return target == ErrShopClosed }
