package postgres

import (
	"context"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type GrantRepo struct {
	q querier
}

func NewGrantRepo(q querier) *GrantRepo {
	return &GrantRepo{q: q}
}

func (r *GrantRepo) LockUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "reward:"+userID)
	return err
}

func (r *GrantRepo) FindGrant(ctx context.Context, rewardKey, userID string, since time.Time) (*models.RewardGrant, error) {
	query := `
		SELECT reward_key, user_id, period_start, coupon_code, order_id, granted_at
		FROM reward_grants
		WHERE reward_key = $1 AND user_id = $2 AND granted_at >= $3
		ORDER BY granted_at DESC
		LIMIT 1
	`
	var g models.RewardGrant
	err := r.q.QueryRowContext(ctx, query, rewardKey, userID, since).Scan(
		&g.RewardKey,
		&g.UserID,
		&g.PeriodStart,
		&g.CouponCode,
		&g.OrderID,
		&g.GrantedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GrantRepo) InsertGrant(ctx context.Context, g *models.RewardGrant) error {
	query := `
		INSERT INTO reward_grants (reward_key, user_id, period_start, coupon_code, order_id, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query, g.RewardKey, g.UserID, g.PeriodStart, g.CouponCode, g.OrderID, g.GrantedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}
