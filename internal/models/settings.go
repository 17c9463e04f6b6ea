package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultEarnRatePer100 = 10

// Settings is the single persisted settings record the core reads on every call.
type Settings struct {
	ScheduleEnabled   bool            `json:"scheduleEnabled"`
	OperatingSchedule string          `json:"operatingSchedule"`
	LoyaltyEarnRate   decimal.Decimal `json:"loyalty_earn_rate"`
	SecondOrder       MilestoneConfig `json:"secondOrder"`
	ThirdOrder        MilestoneConfig `json:"thirdOrder"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		OperatingSchedule: "{}",
		LoyaltyEarnRate:   decimal.NewFromInt(DefaultEarnRatePer100),
		SecondOrder:       MilestoneConfig{DiscountType: DiscountPercentage},
		ThirdOrder:        MilestoneConfig{DiscountType: DiscountPercentage},
	}
}

// RuleSet builds the reward configuration from settings and the spend rules.
func (s Settings) RuleSet(rules []SpendRule) RewardRuleSet {
	return RewardRuleSet{
		SecondOrder:    s.SecondOrder,
		ThirdOrder:     s.ThirdOrder,
		SpendRules:     rules,
		EarnRatePer100: s.LoyaltyEarnRate,
	}
}
