package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type CouponRepo struct {
	q querier
}

func NewCouponRepo(q querier) *CouponRepo {
	return &CouponRepo{q: q}
}

const couponColumns = `
	code, type, value, max_discount, max_uses, used_count, max_uses_per_user,
	start_date, end_date, is_active, allowed_users, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		c           models.Coupon
		couponType  string
		maxDiscount decimal.NullDecimal
		maxUses     sql.NullInt64
		allowed     []string
	)

	err := row.Scan(
		&c.Code,
		&couponType,
		&c.Value,
		&maxDiscount,
		&maxUses,
		&c.UsedCount,
		&c.MaxUsesPerUser,
		&c.StartDate,
		&c.EndDate,
		&c.IsActive,
		pq.Array(&allowed),
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = models.DiscountType(couponType)
	if maxDiscount.Valid {
		d := maxDiscount.Decimal
		c.MaxDiscount = &d
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	c.AllowedUsers = allowed
	return &c, nil
}

func (r *CouponRepo) InsertCoupon(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var maxUses sql.NullInt64
	if c.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*c.MaxUses), Valid: true}
	}
	allowed := c.AllowedUsers
	if allowed == nil {
		allowed = []string{}
	}

	_, err := r.q.ExecContext(ctx, query,
		c.Code,
		string(c.Type),
		c.Value,
		nullDecimal(c.MaxDiscount),
		maxUses,
		c.UsedCount,
		c.MaxUsesPerUser,
		c.StartDate,
		c.EndDate,
		c.IsActive,
		pq.Array(allowed),
		c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *CouponRepo) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return r.getCoupon(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
}

func (r *CouponRepo) GetCouponForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	return r.getCoupon(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
}

func (r *CouponRepo) getCoupon(ctx context.Context, query, code string) (*models.Coupon, error) {
	c, err := scanCoupon(r.q.QueryRowContext(ctx, query, code))
	if err != nil {
		if noRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CouponRepo) ListUserCoupons(ctx context.Context, userID string) ([]models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE $1 = ANY(allowed_users)
		ORDER BY created_at DESC, code
	`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepo) IncrementCouponUses(ctx context.Context, code string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE code = $1`, code)
	return err
}
