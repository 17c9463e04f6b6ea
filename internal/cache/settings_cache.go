package cache

import (
	"sync"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

// SettingsCache holds the last loaded settings and active spend rules for a short TTL.
type SettingsCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	settings *models.Settings
	rules    []models.SpendRule
	loadedAt time.Time
}

func NewSettingsCache(ttl time.Duration) *SettingsCache {
	return &SettingsCache{ttl: ttl}
}

func (c *SettingsCache) Get(now time.Time) (models.Settings, []models.SpendRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.settings == nil || c.ttl <= 0 || now.Sub(c.loadedAt) >= c.ttl {
		return models.Settings{}, nil, false
	}
	return *c.settings, append([]models.SpendRule(nil), c.rules...), true
}

func (c *SettingsCache) Set(s models.Settings, rules []models.SpendRule, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = &s
	c.rules = append([]models.SpendRule(nil), rules...)
	c.loadedAt = now
}

func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = nil
	c.rules = nil
}
