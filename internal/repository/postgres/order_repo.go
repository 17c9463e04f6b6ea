package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type OrderRepo struct {
	q querier
}

func NewOrderRepo(q querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, user_id, total, status, created_at, completed_at`

func (r *OrderRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, total, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query, o.ID, o.UserID, o.Total, string(o.Status), o.CreatedAt, o.CompletedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *OrderRepo) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepo) GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) getOrder(ctx context.Context, query, id string) (*models.Order, error) {
	var (
		o           models.Order
		status      string
		completedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt, &completedAt)
	if err != nil {
		if noRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	return &o, nil
}

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, completedAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $2,
		    completed_at = COALESCE($3, completed_at)
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, query, id, string(status), completedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) CountUserOrders(ctx context.Context, userID string, statuses []models.OrderStatus, placedUpTo time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = ANY($2) AND created_at <= $3`
	var n int
	err := r.q.QueryRowContext(ctx, query, userID, pq.Array(statusStrings(statuses)), placedUpTo).Scan(&n)
	return n, err
}

func (r *OrderRepo) SumUserOrderTotals(ctx context.Context, userID string, statuses []models.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(total), 0)
		FROM orders
		WHERE user_id = $1
		  AND status = ANY($2)
		  AND created_at >= $3
		  AND created_at <= $4
	`
	var sum decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, userID, pq.Array(statusStrings(statuses)), from, to).Scan(&sum)
	return sum, err
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
