package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/concurrency"
	"github.com/Cheertaboi/restaurant-order-service/internal/metrics"
	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
	"github.com/Cheertaboi/restaurant-order-service/internal/reward"
)

const (
	defaultOutboxSchedule = "@every 30s"
	defaultBatchSize      = 100
	defaultMaxAttempts    = 5
	defaultWorkers        = 4
	drainTimeout          = 2 * time.Minute
)

// Processor is the reward engine as seen by the dispatcher.
type Processor interface {
	Process(ctx context.Context, ev reward.OrderEvent) (reward.Result, error)
	OnOrderCompleted(ctx context.Context, ev reward.OrderEvent) reward.Result
}

type OutboxConfig struct {
	Schedule    string
	BatchSize   int
	MaxAttempts int
	Workers     int
}

// OutboxDispatcher delivers order status events to the reward engine: right
// after commit through Publish, and periodically for anything left pending.
type OutboxDispatcher struct {
	store     repository.Store
	processor Processor
	cfg       OutboxConfig
	cron      *cron.Cron
	logger    *zap.Logger

	inflight sync.WaitGroup
}

func NewOutboxDispatcher(store repository.Store, processor Processor, cfg OutboxConfig, logger *zap.Logger) *OutboxDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = defaultOutboxSchedule
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &OutboxDispatcher{
		store:     store,
		processor: processor,
		cfg:       cfg,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		logger:    logger,
	}
}

// Publish runs the engine for ev in the background. The caller never waits
// and never sees a failure; the event stays pending for Drain if the run fails.
func (d *OutboxDispatcher) Publish(ev reward.OrderEvent) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		d.processor.OnOrderCompleted(ctx, ev)
	}()
}

// Drain processes one batch of pending or failed events and returns how many succeeded.
func (d *OutboxDispatcher) Drain(ctx context.Context) (int, error) {
	var events []models.OutboxEvent
	err := d.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		events, err = tx.ListPendingEvents(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var (
		mu        sync.Mutex
		processed int
	)
	concurrency.SimpleWorkerPool(ctx, d.cfg.Workers, len(events), func(ctx context.Context, i int) {
		ev := events[i]
		if d.deliver(ctx, ev) {
			mu.Lock()
			processed++
			mu.Unlock()
		}
	})

	d.logger.Debug("outbox drained",
		zap.Int("listed", len(events)),
		zap.Int("processed", processed),
	)
	return processed, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, ev models.OutboxEvent) bool {
	_, err := d.processor.Process(ctx, reward.OrderEvent{
		EventID:     ev.ID,
		OrderID:     ev.OrderID,
		Status:      ev.Status,
		PriorStatus: ev.PriorStatus,
		At:          ev.CreatedAt,
	})
	if err == nil {
		metrics.IncOutboxEvent("processed")
		return true
	}

	metrics.IncOutboxEvent("failed")
	d.logger.Warn("outbox event failed",
		zap.String("event_id", ev.ID),
		zap.String("order_id", ev.OrderID),
		zap.Int("attempt", ev.Attempts+1),
		zap.Error(err),
	)
	markErr := d.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.MarkEventFailed(ctx, ev.ID, err.Error())
	})
	if markErr != nil {
		d.logger.Error("mark outbox event failed", zap.String("event_id", ev.ID), zap.Error(markErr))
	}
	return false
}

// Start schedules Drain on the configured cron spec.
func (d *OutboxDispatcher) Start() error {
	if _, err := d.cron.AddFunc(d.cfg.Schedule, func() {
		defer recoverJobPanic("outbox.drain", d.logger)

		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		start := time.Now()
		if _, err := d.Drain(ctx); err != nil {
			d.logger.Warn("outbox drain failed", zap.Error(err))
		}
		d.logger.Debug("scheduler job finished", zap.String("job", "outbox.drain"), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		return fmt.Errorf("register outbox job %q: %w", d.cfg.Schedule, err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the cron and waits briefly for running jobs and published events.
func (d *OutboxDispatcher) Stop() {
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
	}
	d.Wait()
}

// Wait blocks until every published event has finished.
func (d *OutboxDispatcher) Wait() {
	d.inflight.Wait()
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
