package models

import "github.com/shopspring/decimal"

type RedeemRequest struct {
	UserID     string          `json:"user_id"`
	CouponCode string          `json:"coupon_code"`
	OrderTotal decimal.Decimal `json:"order_total"`
}

type ValidationResponse struct {
	IsValid  bool            `json:"is_valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}
