// Package reward credits loyalty points and issues one-time reward coupons
// when orders reach a paid or completed state.
package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/metrics"
	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

const defaultCouponValidDays = 30

var (
	// orders counted toward the 2nd/3rd order milestones
	milestoneStatuses = []models.OrderStatus{
		models.OrderPaid, models.OrderPreparing, models.OrderCompleted, models.OrderDelivering,
	}
	// orders whose totals count toward spend thresholds
	spendStatuses = []models.OrderStatus{
		models.OrderPaid, models.OrderPreparing, models.OrderCompleted,
	}

	milestoneEpoch = time.Unix(0, 0).UTC()
)

// OrderEvent describes one status transition the engine reacts to.
type OrderEvent struct {
	// EventID, when set, is the outbox event marked processed in the same transaction.
	EventID     string
	OrderID     string
	Status      models.OrderStatus
	PriorStatus models.OrderStatus
	At          time.Time
}

// RulesProvider supplies the reward configuration for one run.
type RulesProvider interface {
	RewardRules(ctx context.Context) (models.RewardRuleSet, error)
}

// Result summarizes what a run granted.
type Result struct {
	UserID         string
	PointsCredited int64
	Coupons        []string
}

type Engine struct {
	store   repository.Store
	rules   RulesProvider
	logger  *zap.Logger
	clock   func() time.Time
	newCode func(prefix string) string
}

func NewEngine(store repository.Store, rules RulesProvider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		rules:   rules,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
		newCode: randomCode,
	}
}

// OnOrderCompleted runs the engine for ev and never fails: errors and panics
// are logged and the run is rolled back as a whole.
func (e *Engine) OnOrderCompleted(ctx context.Context, ev OrderEvent) (res Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			metrics.IncRewardFailure()
			e.logger.Error("reward engine panic recovered",
				zap.String("order_id", ev.OrderID),
				zap.Any("panic", recovered),
			)
			res = Result{}
		}
	}()

	res, err := e.Process(ctx, ev)
	if err != nil {
		metrics.IncRewardFailure()
		e.logger.Error("reward processing failed",
			zap.String("order_id", ev.OrderID),
			zap.String("status", string(ev.Status)),
			zap.Error(err),
		)
		return Result{}
	}
	return res
}

// Process evaluates milestones, spend rules and point crediting for ev in a
// single transaction and returns the error, if any, so callers can retry.
func (e *Engine) Process(ctx context.Context, ev OrderEvent) (Result, error) {
	if !ev.Status.Rewarding() {
		if ev.EventID == "" {
			return Result{}, nil
		}
		return Result{}, e.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.MarkEventProcessed(ctx, ev.EventID, e.clock())
		})
	}

	start := time.Now()
	defer func() { metrics.ObserveRewardDuration(time.Since(start)) }()

	rules, err := e.rules.RewardRules(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load reward rules: %w", err)
	}

	now := ev.At
	if now.IsZero() {
		now = e.clock()
	}

	var (
		res    Result
		issued []string
	)
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		res = Result{}
		issued = issued[:0]

		order, err := tx.GetOrder(ctx, ev.OrderID)
		if err != nil {
			return fmt.Errorf("load order %s: %w", ev.OrderID, err)
		}
		res.UserID = order.UserID

		if err := tx.LockUser(ctx, order.UserID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		if ev.Status == models.OrderCompleted {
			code, err := e.issueMilestone(ctx, tx, order, rules, now)
			if err != nil {
				return err
			}
			if code != "" {
				res.Coupons = append(res.Coupons, code)
				issued = append(issued, "milestone")
			}
		}

		codes, err := e.issueSpendRewards(ctx, tx, order, rules.SpendRules, now)
		if err != nil {
			return err
		}
		for _, code := range codes {
			res.Coupons = append(res.Coupons, code)
			issued = append(issued, "spend")
		}

		if ev.Status == models.OrderCompleted && ev.PriorStatus != models.OrderCompleted {
			points, err := e.creditPoints(ctx, tx, order, rules.EarnRatePer100, now)
			if err != nil {
				return err
			}
			res.PointsCredited = points
		}

		if ev.EventID != "" {
			if err := tx.MarkEventProcessed(ctx, ev.EventID, e.clock()); err != nil {
				return fmt.Errorf("mark event processed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for _, kind := range issued {
		metrics.IncCouponIssued(kind)
	}
	metrics.AddPointsCredited(res.PointsCredited)

	if res.PointsCredited > 0 || len(res.Coupons) > 0 {
		e.logger.Info("rewards granted",
			zap.String("order_id", ev.OrderID),
			zap.String("user_id", res.UserID),
			zap.Int64("points", res.PointsCredited),
			zap.Strings("coupons", res.Coupons),
		)
	}
	return res, nil
}

func (e *Engine) issueMilestone(ctx context.Context, tx repository.Tx, order *models.Order, rules models.RewardRuleSet, now time.Time) (string, error) {
	// counted as of this order's placement; later orders do not move its milestone
	count, err := tx.CountUserOrders(ctx, order.UserID, milestoneStatuses, order.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("count orders: %w", err)
	}

	var (
		tag    string
		prefix string
		cfg    models.MilestoneConfig
	)
	switch count {
	case 1:
		tag, prefix, cfg = tagSecondOrder, "R2ND", rules.SecondOrder
	case 2:
		tag, prefix, cfg = tagThirdOrder, "R3RD", rules.ThirdOrder
	default:
		return "", nil
	}
	if !cfg.Enabled {
		return "", nil
	}

	return e.issueOnce(ctx, tx, grantSpec{
		key:         milestoneKey(tag),
		periodStart: milestoneEpoch,
		codePrefix:  codePrefix(prefix, order.UserID),
		coupon: models.Coupon{
			Type:  cfg.DiscountType,
			Value: cfg.Value,
		},
		validDays: cfg.ValidDays,
	}, order, now)
}

func (e *Engine) issueSpendRewards(ctx context.Context, tx repository.Tx, order *models.Order, rules []models.SpendRule, now time.Time) ([]string, error) {
	var codes []string
	for _, rule := range rules {
		if !rule.IsActive || rule.PeriodDays <= 0 {
			continue
		}

		periodStart := now.AddDate(0, 0, -rule.PeriodDays)
		spent, err := tx.SumUserOrderTotals(ctx, order.UserID, spendStatuses, periodStart, now)
		if err != nil {
			return nil, fmt.Errorf("sum orders for rule %s: %w", rule.ID, err)
		}
		if spent.LessThan(rule.SpendThresholdAmount) {
			continue
		}

		code, err := e.issueOnce(ctx, tx, grantSpec{
			key:         spendKey(rule.ID),
			periodStart: periodStart,
			codePrefix:  codePrefix("SPEND", rule.ID, order.UserID),
			coupon: models.Coupon{
				Type:        rule.DiscountType,
				Value:       rule.DiscountValue,
				MaxDiscount: rule.MaxDiscount,
			},
			validDays: rule.CouponValidDays,
		}, order, now)
		if err != nil {
			return nil, err
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

type grantSpec struct {
	key         string
	periodStart time.Time
	codePrefix  string
	coupon      models.Coupon
	validDays   int
}

// issueOnce creates the coupon and its grant unless a grant for the same
// reward and user exists on or after periodStart. Returns "" when skipped.
func (e *Engine) issueOnce(ctx context.Context, tx repository.Tx, spec grantSpec, order *models.Order, now time.Time) (string, error) {
	_, err := tx.FindGrant(ctx, spec.key, order.UserID, spec.periodStart)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("find grant %s: %w", spec.key, err)
	}

	validDays := spec.validDays
	if validDays <= 0 {
		validDays = defaultCouponValidDays
	}
	one := 1

	coupon := spec.coupon
	coupon.Code = e.newCode(spec.codePrefix)
	coupon.MaxUses = &one
	coupon.MaxUsesPerUser = 1
	coupon.StartDate = now
	coupon.EndDate = now.AddDate(0, 0, validDays)
	coupon.IsActive = true
	coupon.AllowedUsers = []string{order.UserID}
	coupon.CreatedAt = now
	if !coupon.Type.Valid() {
		coupon.Type = models.DiscountPercentage
	}

	if err := tx.InsertCoupon(ctx, &coupon); err != nil {
		return "", fmt.Errorf("insert coupon %s: %w", coupon.Code, err)
	}

	if err := tx.InsertGrant(ctx, &models.RewardGrant{
		RewardKey:   spec.key,
		UserID:      order.UserID,
		PeriodStart: spec.periodStart,
		CouponCode:  coupon.Code,
		OrderID:     order.ID,
		GrantedAt:   now,
	}); err != nil {
		return "", fmt.Errorf("insert grant %s: %w", spec.key, err)
	}
	return coupon.Code, nil
}

// EarnedPoints is floor(total / 100 * ratePer100), never negative.
func EarnedPoints(total, ratePer100 decimal.Decimal) int64 {
	points := total.Mul(ratePer100).Div(decimal.NewFromInt(100)).Floor()
	if points.IsNegative() {
		return 0
	}
	return points.IntPart()
}

func (e *Engine) creditPoints(ctx context.Context, tx repository.Tx, order *models.Order, rate decimal.Decimal, now time.Time) (int64, error) {
	credited, err := tx.HasOrderCredit(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("check order credit: %w", err)
	}
	if credited {
		return 0, nil
	}

	points := EarnedPoints(order.Total, rate)
	if points <= 0 {
		return 0, nil
	}

	wallet, err := tx.GetWalletForUpdate(ctx, order.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		wallet = &models.Wallet{
			ID:        newID(),
			UserID:    order.UserID,
			Balance:   points,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateWallet(ctx, wallet); err != nil {
			return 0, fmt.Errorf("create wallet: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("load wallet: %w", err)
	default:
		if err := tx.AddWalletBalance(ctx, wallet.ID, points, now); err != nil {
			return 0, fmt.Errorf("credit wallet: %w", err)
		}
	}

	orderID := order.ID
	if err := tx.AppendWalletTransaction(ctx, &models.WalletTransaction{
		ID:          newID(),
		WalletID:    wallet.ID,
		Amount:      points,
		Type:        models.TransactionCredit,
		OrderID:     &orderID,
		Description: fmt.Sprintf("Earned %d points for order %s", points, order.ID),
		CreatedAt:   now,
	}); err != nil {
		return 0, fmt.Errorf("append ledger entry: %w", err)
	}
	return points, nil
}
