package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type SettingsRepo struct {
	q querier
}

func NewSettingsRepo(q querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

func (r *SettingsRepo) GetSettings(ctx context.Context) (*models.Settings, error) {
	query := `
		SELECT schedule_enabled, operating_schedule, loyalty_earn_rate,
		       second_order, third_order, updated_at
		FROM settings
		WHERE id = 1
	`
	var (
		s             models.Settings
		second, third []byte
	)
	err := r.q.QueryRowContext(ctx, query).Scan(
		&s.ScheduleEnabled,
		&s.OperatingSchedule,
		&s.LoyaltyEarnRate,
		&second,
		&third,
		&s.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(second, &s.SecondOrder); err != nil {
		return nil, fmt.Errorf("decode second_order: %w", err)
	}
	if err := json.Unmarshal(third, &s.ThirdOrder); err != nil {
		return nil, fmt.Errorf("decode third_order: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) SaveSettings(ctx context.Context, s *models.Settings) error {
	second, err := json.Marshal(s.SecondOrder)
	if err != nil {
		return err
	}
	third, err := json.Marshal(s.ThirdOrder)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO settings (id, schedule_enabled, operating_schedule, loyalty_earn_rate,
		                      second_order, third_order, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET schedule_enabled = EXCLUDED.schedule_enabled,
		    operating_schedule = EXCLUDED.operating_schedule,
		    loyalty_earn_rate = EXCLUDED.loyalty_earn_rate,
		    second_order = EXCLUDED.second_order,
		    third_order = EXCLUDED.third_order,
		    updated_at = EXCLUDED.updated_at
	`
	_, err = r.q.ExecContext(ctx, query,
		s.ScheduleEnabled,
		s.OperatingSchedule,
		s.LoyaltyEarnRate,
		second,
		third,
		s.UpdatedAt,
	)
	return err
}

const spendRuleColumns = `
	id, spend_threshold_amount, period_days, discount_type, discount_value,
	max_discount, coupon_valid_days, is_active, created_at
`

func (r *SettingsRepo) ListSpendRules(ctx context.Context, activeOnly bool) ([]models.SpendRule, error) {
	query := `SELECT ` + spendRuleColumns + ` FROM spend_rules`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.SpendRule
	for rows.Next() {
		var (
			rule         models.SpendRule
			discountType string
			maxDiscount  decimal.NullDecimal
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.SpendThresholdAmount,
			&rule.PeriodDays,
			&discountType,
			&rule.DiscountValue,
			&maxDiscount,
			&rule.CouponValidDays,
			&rule.IsActive,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rule.DiscountType = models.DiscountType(discountType)
		if maxDiscount.Valid {
			d := maxDiscount.Decimal
			rule.MaxDiscount = &d
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SettingsRepo) SaveSpendRule(ctx context.Context, rule *models.SpendRule) error {
	query := `
		INSERT INTO spend_rules (` + spendRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET spend_threshold_amount = EXCLUDED.spend_threshold_amount,
		    period_days = EXCLUDED.period_days,
		    discount_type = EXCLUDED.discount_type,
		    discount_value = EXCLUDED.discount_value,
		    max_discount = EXCLUDED.max_discount,
		    coupon_valid_days = EXCLUDED.coupon_valid_days,
		    is_active = EXCLUDED.is_active
	`
	_, err := r.q.ExecContext(ctx, query,
		rule.ID,
		rule.SpendThresholdAmount,
		rule.PeriodDays,
		string(rule.DiscountType),
		rule.DiscountValue,
		nullDecimal(rule.MaxDiscount),
		rule.CouponValidDays,
		rule.IsActive,
		rule.CreatedAt,
	)
	return err
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
