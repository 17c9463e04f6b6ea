package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

type OutboxRepo struct {
	q querier
}

func NewOutboxRepo(q querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

func (r *OutboxRepo) EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, type, order_id, user_id, status, prior_status, state, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.Type,
		e.OrderID,
		e.UserID,
		string(e.Status),
		string(e.PriorStatus),
		string(e.State),
		e.Attempts,
		e.LastError,
		e.CreatedAt,
	)
	return err
}

// ListPendingEvents returns up to limit events still awaiting processing,
// skipping rows another transaction holds.
func (r *OutboxRepo) ListPendingEvents(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	query := `
		SELECT id, type, order_id, user_id, status, prior_status, state, attempts, last_error, created_at, processed_at
		FROM outbox_events
		WHERE state IN ('PENDING', 'FAILED') AND attempts < $2
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.q.QueryContext(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutboxEvent
	for rows.Next() {
		var (
			e                    models.OutboxEvent
			status, prior, state string
			processedAt          sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.OrderID, &e.UserID, &status, &prior, &state,
			&e.Attempts, &e.LastError, &e.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		e.Status = models.OrderStatus(status)
		e.PriorStatus = models.OrderStatus(prior)
		e.State = models.OutboxStatus(state)
		if processedAt.Valid {
			t := processedAt.Time
			e.ProcessedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkEventProcessed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE outbox_events SET state = 'PROCESSED', processed_at = $2 WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id, at)
	return err
}

func (r *OutboxRepo) MarkEventFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE outbox_events
		SET state = 'FAILED', attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query, id, reason)
	return err
}
