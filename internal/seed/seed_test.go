package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards/internal/core"
	"rewards/internal/services"
	"rewards/internal/store/memory"
)

func TestSeed_EveryPurchaseFallsInTheWindow(t *testing.T) {
	for _, today := range []core.Date{
		core.NewDate(2026, time.October, 19),
		core.NewDate(2026, time.March, 31),
		core.NewDate(2028, time.February, 29),
		core.NewDate(2027, time.January, 1),
	} {
		t.Run(today.String(), func(t *testing.T) {
			ctx := context.Background()
			st := memory.New()

			res, err := Seed(ctx, st, today)
			require.NoError(t, err)
			assert.Equal(t, Result{Customers: 3, Transactions: 15}, res)

			all, err := st.FindAllTransactions(ctx, core.TrailingWindow(today, 3))
			require.NoError(t, err)
			assert.Len(t, all, 15)
		})
	}
}

func TestSeed_ProducesRewards(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	today := core.NewDate(2026, time.October, 19)
	_, err := Seed(ctx, st, today)
	require.NoError(t, err)

	svc := services.NewRewardsService(st, core.NewAggregator(core.DefaultSchedule(), core.DefaultMonthFormat()),
		services.WithClock(func() time.Time { return today.Time }))

	r, err := svc.GetRewardsForCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", r.CustomerName)
	// 120.00 -> 90, 75.50 -> 25, 150.00 -> 150, 45.00 -> 0, 200.00 -> 250
	assert.Equal(t, int64(515), r.TotalPoints)
	assert.Equal(t, 3, r.MonthlyPoints.Len())
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	today := core.NewDate(2026, time.October, 19)

	st := memory.NewWithCustomers("Existing")
	seeded, err := SeedIfEmpty(ctx, st, today)
	require.NoError(t, err)
	assert.False(t, seeded)

	st = memory.New()
	seeded, err = SeedIfEmpty(ctx, st, today)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = SeedIfEmpty(ctx, st, today)
	require.NoError(t, err)
	assert.False(t, seeded, "second run finds the seeded customers")
}
