package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/hours"
	"github.com/Cheertaboi/restaurant-order-service/internal/metrics"
	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

// OrderGate refuses new orders outside operating hours.
type OrderGate struct {
	loc    *time.Location
	logger *zap.Logger
}

func NewOrderGate(loc *time.Location, logger *zap.Logger) *OrderGate {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderGate{loc: loc, logger: logger}
}

// Decide evaluates the schedule at now in the shop's location.
func (g *OrderGate) Decide(cfg models.ScheduleConfig, now time.Time) hours.Decision {
	return hours.Evaluate(cfg, now.In(g.loc))
}

// Check returns a *ClosedError when the shop does not accept orders at now.
func (g *OrderGate) Check(cfg models.ScheduleConfig, now time.Time) error {
	d := g.Decide(cfg, now)
	if d.IsOpen {
		return nil
	}
	metrics.IncOrderGateRejection()
	g.logger.Info("order rejected outside operating hours", zap.String("reason", d.Message))
	return &ClosedError{Message: d.Message}
}
