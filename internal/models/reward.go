package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MilestoneConfig struct {
	Enabled      bool            `json:"enabled"`
	DiscountType DiscountType    `json:"discountType"`
	Value        decimal.Decimal `json:"value"`
	ValidDays    int             `json:"validDays"`
}

type SpendRule struct {
	ID                   string           `json:"id"`
	SpendThresholdAmount decimal.Decimal  `json:"spendThresholdAmount"`
	PeriodDays           int              `json:"periodDays"`
	DiscountType         DiscountType     `json:"discountType"`
	DiscountValue        decimal.Decimal  `json:"discountValue"`
	MaxDiscount          *decimal.Decimal `json:"maxDiscount"`
	CouponValidDays      int              `json:"couponValidDays"`
	IsActive             bool             `json:"isActive"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// RewardRuleSet is the configuration snapshot the reward engine evaluates against.
type RewardRuleSet struct {
	SecondOrder    MilestoneConfig
	ThirdOrder     MilestoneConfig
	SpendRules     []SpendRule
	EarnRatePer100 decimal.Decimal
}

// RewardGrant records that a reward was issued. (RewardKey, UserID, PeriodStart) is unique.
type RewardGrant struct {
	RewardKey   string
	UserID      string
	PeriodStart time.Time
	CouponCode  string
	OrderID     string
	GrantedAt   time.Time
}

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxProcessed OutboxStatus = "PROCESSED"
	OutboxFailed    OutboxStatus = "FAILED"
)

const EventOrderStatusChanged = "order.status_changed"

type OutboxEvent struct {
	ID          string
	Type        string
	OrderID     string
	UserID      string
	Status      OrderStatus
	PriorStatus OrderStatus
	State       OutboxStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
