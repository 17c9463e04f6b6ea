package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

func TestSettingsCache_ExpiresAndInvalidates(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewSettingsCache(time.Minute)

	_, _, ok := c.Get(now)
	require.False(t, ok)

	s := models.DefaultSettings()
	s.ScheduleEnabled = true
	c.Set(s, []models.SpendRule{{ID: "r1"}}, now)

	got, rules, ok := c.Get(now.Add(30 * time.Second))
	require.True(t, ok)
	require.True(t, got.ScheduleEnabled)
	require.Len(t, rules, 1)

	_, _, ok = c.Get(now.Add(time.Minute))
	require.False(t, ok)

	c.Set(s, nil, now)
	c.Invalidate()
	_, _, ok = c.Get(now)
	require.False(t, ok)
}

func TestSettingsCache_ZeroTTLDisablesCaching(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := NewSettingsCache(0)
	c.Set(models.DefaultSettings(), nil, now)
	_, _, ok := c.Get(now)
	require.False(t, ok)
}
