package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
	"github.com/Cheertaboi/restaurant-order-service/internal/reward"
)

// ScheduleSource supplies the operating schedule for the gate.
type ScheduleSource interface {
	ScheduleConfig(ctx context.Context) models.ScheduleConfig
}

// EventPublisher receives committed status events for asynchronous reward processing.
type EventPublisher interface {
	Publish(ev reward.OrderEvent)
}

type OrderService struct {
	store     repository.Store
	gate      *OrderGate
	schedule  ScheduleSource
	publisher EventPublisher
	logger    *zap.Logger
	clock     func() time.Time
}

type OrderOption func(*OrderService)

func WithClock(clock func() time.Time) OrderOption {
	return func(s *OrderService) { s.clock = clock }
}

func WithPublisher(p EventPublisher) OrderOption {
	return func(s *OrderService) { s.publisher = p }
}

func NewOrderService(store repository.Store, gate *OrderGate, schedule ScheduleSource, logger *zap.Logger, opts ...OrderOption) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OrderService{
		store:    store,
		gate:     gate,
		schedule: schedule,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PlaceOrderRequest struct {
	UserID string          `json:"user_id"`
	Total  decimal.Decimal `json:"total"`
}

// PlaceOrder checks operating hours and creates a PENDING order.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	if req.Total.IsNegative() {
		return nil, fmt.Errorf("%w: total must not be negative", ErrInvalidInput)
	}

	now := s.clock()
	if err := s.gate.Check(s.schedule.ScheduleConfig(ctx), now); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Total:     req.Total.Round(2),
		Status:    models.OrderPending,
		CreatedAt: now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.String()),
	)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves an order to status. Entering PAID or COMPLETED writes an
// outbox event in the same transaction; once committed the event is handed
// to the publisher.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := s.clock()
	var (
		order *models.Order
		event *models.OutboxEvent
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		event = nil

		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		order = current
		if current.Status == status {
			return nil
		}
		if current.Status == models.OrderCancelled {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
		}

		completedAt := current.CompletedAt
		if status == models.OrderCompleted && completedAt == nil {
			at := now
			completedAt = &at
		}
		if err := tx.UpdateOrderStatus(ctx, id, status, completedAt); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		prior := current.Status
		order.Status = status
		order.CompletedAt = completedAt

		if !status.Rewarding() {
			return nil
		}
		event = &models.OutboxEvent{
			ID:          uuid.NewString(),
			Type:        models.EventOrderStatusChanged,
			OrderID:     id,
			UserID:      current.UserID,
			Status:      status,
			PriorStatus: prior,
			State:       models.OutboxPending,
			CreatedAt:   now,
		}
		if err := tx.EnqueueEvent(ctx, event); err != nil {
			return fmt.Errorf("enqueue event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		s.logger.Info("order status changed",
			zap.String("order_id", id),
			zap.String("from", string(event.PriorStatus)),
			zap.String("to", string(event.Status)),
		)
		if s.publisher != nil {
			s.publisher.Publish(reward.OrderEvent{
				EventID:     event.ID,
				OrderID:     event.OrderID,
				Status:      event.Status,
				PriorStatus: event.PriorStatus,
				At:          now,
			})
		}
	}
	return order, nil
}
