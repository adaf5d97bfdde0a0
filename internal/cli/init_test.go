package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards/internal/core"
	"rewards/internal/services"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REWARDS_WINDOW_MONTHS", "6")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 6, cfg.Rewards.WindowMonths)
}

func TestLoadAndValidateConfig_Invalid(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sheets")

	_, err := LoadAndValidateConfig()
	assert.Error(t, err)
}

func TestNewRewardsService_UsesConfiguredRewards(t *testing.T) {
	t.Setenv("REWARDS_TIER_TWO_THRESHOLD", "200")
	t.Setenv("REWARDS_WINDOW_MONTHS", "1")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)

	res, err := OpenBackend(context.Background(), cfg, nil)
	require.NoError(t, err)

	today := core.NewDate(2026, time.October, 19)
	svc, err := NewRewardsService(cfg, res, services.WithClock(func() time.Time { return today.Time }))
	require.NoError(t, err)

	assert.Equal(t, int64(100), svc.PointsFor(decimal.NewFromInt(150)))
	assert.Equal(t, core.NewDate(2026, time.September, 19), svc.Window().Start)
}

func TestSetupLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := SetupLogger("test")
	assert.Equal(t, "test", logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
