package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cheertaboi/restaurant-order-service/internal/cache"
	"github.com/Cheertaboi/restaurant-order-service/internal/hours"
	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

const defaultSettingsTTL = 5 * time.Second

// SettingsService reads and writes the shop settings and spend rules.
type SettingsService struct {
	store  repository.Store
	cache  *cache.SettingsCache
	logger *zap.Logger
	clock  func() time.Time
}

func NewSettingsService(store repository.Store, ttl time.Duration, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl == 0 {
		ttl = defaultSettingsTTL
	}
	return &SettingsService{
		store:  store,
		cache:  cache.NewSettingsCache(ttl),
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *SettingsService) load(ctx context.Context) (models.Settings, []models.SpendRule, error) {
	now := s.clock()
	if settings, rules, ok := s.cache.Get(now); ok {
		return settings, rules, nil
	}

	var (
		settings models.Settings
		rules    []models.SpendRule
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		settings = *got
		rules, err = tx.ListSpendRules(ctx, true)
		if err != nil {
			return fmt.Errorf("list spend rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Settings{}, nil, err
	}
	s.cache.Set(settings, rules, now)
	return settings, rules, nil
}

func (s *SettingsService) Get(ctx context.Context) (models.Settings, error) {
	settings, _, err := s.load(ctx)
	return settings, err
}

// Update validates the schedule blob and persists settings.
func (s *SettingsService) Update(ctx context.Context, in models.Settings) (models.Settings, error) {
	if strings.TrimSpace(in.OperatingSchedule) == "" {
		in.OperatingSchedule = "{}"
	}
	schedule, err := hours.ParseSchedule(in.OperatingSchedule)
	if err != nil {
		return models.Settings{}, err
	}
	if err := hours.Validate(schedule); err != nil {
		return models.Settings{}, err
	}
	if in.LoyaltyEarnRate.IsNegative() {
		return models.Settings{}, fmt.Errorf("%w: loyalty earn rate must not be negative", ErrInvalidInput)
	}
	for name, m := range map[string]*models.MilestoneConfig{"secondOrder": &in.SecondOrder, "thirdOrder": &in.ThirdOrder} {
		if m.DiscountType == "" {
			m.DiscountType = models.DiscountPercentage
		}
		if !m.DiscountType.Valid() {
			return models.Settings{}, fmt.Errorf("%w: %s discount type %q", ErrInvalidInput, name, m.DiscountType)
		}
		if m.Value.IsNegative() {
			return models.Settings{}, fmt.Errorf("%w: %s value must not be negative", ErrInvalidInput, name)
		}
	}
	in.UpdatedAt = s.clock()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.SaveSettings(ctx, &in)
	})
	if err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.cache.Invalidate()
	s.logger.Info("settings updated", zap.Bool("schedule_enabled", in.ScheduleEnabled))
	return in, nil
}

// ScheduleConfig returns the evaluator input. Load failures leave the shop open.
func (s *SettingsService) ScheduleConfig(ctx context.Context) models.ScheduleConfig {
	settings, _, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("settings unavailable, treating shop as open", zap.Error(err))
		return models.ScheduleConfig{}
	}
	return hours.ConfigFromSettings(settings.ScheduleEnabled, settings.OperatingSchedule)
}

// RewardRules satisfies reward.RulesProvider.
func (s *SettingsService) RewardRules(ctx context.Context) (models.RewardRuleSet, error) {
	settings, rules, err := s.load(ctx)
	if err != nil {
		return models.RewardRuleSet{}, err
	}
	return settings.RuleSet(rules), nil
}

func (s *SettingsService) ListSpendRules(ctx context.Context) ([]models.SpendRule, error) {
	var rules []models.SpendRule
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rules, err = tx.ListSpendRules(ctx, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list spend rules: %w", err)
	}
	return rules, nil
}

// SaveSpendRule creates a rule, or replaces it when ID is set.
func (s *SettingsService) SaveSpendRule(ctx context.Context, r models.SpendRule) (models.SpendRule, error) {
	if err := validateSpendRule(&r); err != nil {
		return models.SpendRule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock()
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.SaveSpendRule(ctx, &r)
	})
	if err != nil {
		return models.SpendRule{}, fmt.Errorf("save spend rule: %w", err)
	}
	s.cache.Invalidate()
	return r, nil
}

func validateSpendRule(r *models.SpendRule) error {
	if r.DiscountType == "" {
		r.DiscountType = models.DiscountPercentage
	}
	switch {
	case !r.DiscountType.Valid():
		return fmt.Errorf("%w: discount type %q", ErrInvalidInput, r.DiscountType)
	case r.PeriodDays <= 0:
		return fmt.Errorf("%w: periodDays must be positive", ErrInvalidInput)
	case !r.SpendThresholdAmount.IsPositive():
		return fmt.Errorf("%w: spendThresholdAmount must be positive", ErrInvalidInput)
	case !r.DiscountValue.IsPositive():
		return fmt.Errorf("%w: discountValue must be positive", ErrInvalidInput)
	case r.MaxDiscount != nil && r.MaxDiscount.IsNegative():
		return fmt.Errorf("%w: maxDiscount must not be negative", ErrInvalidInput)
	case r.CouponValidDays < 0:
		return fmt.Errorf("%w: couponValidDays must not be negative", ErrInvalidInput)
	}
	return nil
}
