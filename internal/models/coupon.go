package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	Code           string
	Type           DiscountType
	Value          decimal.Decimal
	MaxDiscount    *decimal.Decimal
	MaxUses        *int
	UsedCount      int
	MaxUsesPerUser int
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	AllowedUsers   []string
	CreatedAt      time.Time
}

// AllowsUser reports whether userID may redeem the coupon. An empty list means anyone.
func (c *Coupon) AllowsUser(userID string) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, u := range c.AllowedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// Discount computes the discount for an order total, capped by MaxDiscount and the total itself.
func (c *Coupon) Discount(orderTotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		d = orderTotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	default:
		d = c.Value
	}
	if c.MaxDiscount != nil && d.GreaterThan(*c.MaxDiscount) {
		d = *c.MaxDiscount
	}
	if d.GreaterThan(orderTotal) {
		d = orderTotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}
