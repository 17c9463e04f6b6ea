package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

const (
	MsgCouponApplied     = "coupon_applied"
	MsgCouponNotFound    = "coupon_not_found"
	MsgCouponInactive    = "coupon_inactive"
	MsgNotInValidWindow  = "not_in_valid_window"
	MsgCouponExpired     = "coupon_expired"
	MsgCouponNotAllowed  = "coupon_not_allowed"
	MsgUsageLimitReached = "usage_limit_reached"
	MsgAlreadyUsed       = "coupon_already_used"
	MsgInvalidOrderTotal = "invalid_order_total"
)

type CouponService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCouponService(store repository.Store, logger *zap.Logger) *CouponService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouponService{store: store, logger: logger}
}

func rejected(msg string) models.ValidationResponse {
	return models.ValidationResponse{IsValid: false, Discount: decimal.Zero, Message: msg}
}

// Redeem validates the coupon for the user at now and, if valid, consumes
// one use atomically.
func (s *CouponService) Redeem(ctx context.Context, req models.RedeemRequest, now time.Time) (models.ValidationResponse, error) {
	// short request-scoped deadline to avoid long-running ops
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	code := strings.TrimSpace(req.CouponCode)
	if code == "" || req.UserID == "" {
		return rejected(MsgCouponNotFound), nil
	}
	if req.OrderTotal.IsNegative() {
		return rejected(MsgInvalidOrderTotal), nil
	}

	resp := rejected(MsgCouponNotFound)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// 1) load and lock the coupon row
		coupon, err := tx.GetCouponForUpdate(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			resp = rejected(MsgCouponNotFound)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get coupon: %w", err)
		}

		// 2) basic validations
		switch {
		case !coupon.IsActive:
			resp = rejected(MsgCouponInactive)
			return nil
		case now.Before(coupon.StartDate):
			resp = rejected(MsgNotInValidWindow)
			return nil
		case now.After(coupon.EndDate):
			resp = rejected(MsgCouponExpired)
			return nil
		case !coupon.AllowsUser(req.UserID):
			resp = rejected(MsgCouponNotAllowed)
			return nil
		case coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses:
			resp = rejected(MsgUsageLimitReached)
			return nil
		}

		// 3) per-user usage under the usage row lock
		used, err := tx.GetAndLockUsage(ctx, coupon.Code, req.UserID)
		if err != nil {
			return fmt.Errorf("get lock: %w", err)
		}
		if coupon.MaxUsesPerUser > 0 && used >= coupon.MaxUsesPerUser {
			resp = rejected(MsgAlreadyUsed)
			return nil
		}

		// 4) consume
		if err := tx.IncrementUsage(ctx, coupon.Code, req.UserID, now); err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		if err := tx.IncrementCouponUses(ctx, coupon.Code); err != nil {
			return fmt.Errorf("increment coupon uses: %w", err)
		}

		resp = models.ValidationResponse{
			IsValid:  true,
			Discount: coupon.Discount(req.OrderTotal),
			Message:  MsgCouponApplied,
		}
		return nil
	})
	if err != nil {
		return models.ValidationResponse{IsValid: false, Message: "internal_error"}, err
	}

	if resp.IsValid {
		s.logger.Info("coupon redeemed",
			zap.String("code", code),
			zap.String("user_id", req.UserID),
			zap.String("discount", resp.Discount.String()),
		)
	}
	return resp, nil
}

// ListUserCoupons returns coupons issued to userID, newest first.
func (s *CouponService) ListUserCoupons(ctx context.Context, userID string) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		coupons, err = tx.ListUserCoupons(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
