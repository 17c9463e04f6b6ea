package postgres

import (
	"context"
	"time"
)

type UsageRepo struct {
	q querier
}

func NewUsageRepo(q querier) *UsageRepo {
	return &UsageRepo{q: q}
}

// Get or create usage row AND lock it for update
func (r *UsageRepo) GetAndLockUsage(ctx context.Context, code, userID string) (int, error) {
	var usageCount int

	query := `
		SELECT usage_count
		FROM coupon_usage
		WHERE coupon_code = $1 AND user_id = $2
		FOR UPDATE
	`

	err := r.q.QueryRowContext(ctx, query, code, userID).Scan(&usageCount)
	if err == nil {
		return usageCount, nil
	}
	if !noRows(err) {
		return 0, err
	}

	// a concurrent redeemer may insert the same row; the conflict clause
	// makes us wait on it and then re-read under lock
	insert := `
		INSERT INTO coupon_usage (coupon_code, user_id, usage_count, last_used)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (coupon_code, user_id) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, insert, code, userID); err != nil {
		return 0, err
	}

	if err := r.q.QueryRowContext(ctx, query, code, userID).Scan(&usageCount); err != nil {
		return 0, err
	}
	return usageCount, nil
}

// Increment usage safely inside transaction
func (r *UsageRepo) IncrementUsage(ctx context.Context, code, userID string, at time.Time) error {
	query := `
		UPDATE coupon_usage
		SET usage_count = usage_count + 1,
		    last_used = $3
		WHERE coupon_code = $1 AND user_id = $2
	`

	_, err := r.q.ExecContext(ctx, query, code, userID, at)
	return err
}
