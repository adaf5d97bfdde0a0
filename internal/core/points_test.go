package core

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSchedulePoints(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"120.00", 90},
		{"100.00", 50},
		{"75.00", 25},
		{"50.00", 0},
		{"49.99", 0},
		{"150.00", 150},
		{"200.00", 250},
		{"50.01", 0},
		{"100.01", 50},
		{"25.00", 0},
		{"120.99", 90},
		{"101.00", 52},
		{"9999999999.99", 19999999848},
		{"4611686018427387999.00", math.MaxInt64},
		{"1e40", math.MaxInt64},
	}
	s := DefaultSchedule()
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Points(dec(tt.amount)), "Points(%s)", tt.amount)
	}
}

func TestSchedulePointsNonPositive(t *testing.T) {
	s := DefaultSchedule()
	assert.Zero(t, s.Points(decimal.Zero))
	assert.Zero(t, s.Points(dec("-10.00")))
	assert.Zero(t, s.Points(dec("-250.00")))
	assert.Zero(t, s.PointsFor(decimal.NullDecimal{}))
	assert.Equal(t, int64(90), s.PointsFor(decimal.NewNullDecimal(dec("120.00"))))
}

func TestSchedulePointsMonotonic(t *testing.T) {
	s := DefaultSchedule()
	prev := int64(0)
	for cents := int64(-500); cents <= 30000; cents += 37 {
		got := s.Points(decimal.New(cents, -2))
		require.GreaterOrEqual(t, got, prev, "points dropped at %d cents", cents)
		prev = got
	}
}

func TestSchedulePointsSaturatesAboveInt64(t *testing.T) {
	s := DefaultSchedule()
	prev := int64(0)
	for _, amount := range []string{"1000000", "4611686018427387900", "4611686018427387999", "9223372036854775807", "1e30"} {
		got := s.Points(dec(amount))
		require.GreaterOrEqual(t, got, prev, "points dropped at %s", amount)
		prev = got
	}
	assert.Equal(t, int64(math.MaxInt64), prev)

	day := NewDate(2026, 9, 1)
	monthly := NewAggregator(s, DefaultMonthFormat()).Aggregate([]Transaction{
		{CustomerID: 1, Amount: decimal.NewNullDecimal(dec("1e30")), OccurredOn: day},
		{CustomerID: 1, Amount: decimal.NewNullDecimal(dec("1e30")), OccurredOn: day},
	})
	assert.Equal(t, int64(math.MaxInt64), monthly.Total())
}

func TestScheduleCustomTiers(t *testing.T) {
	s := Schedule{
		TierOneThreshold:  dec("20"),
		TierTwoThreshold:  dec("80.50"),
		TierOneMultiplier: 3,
		TierTwoMultiplier: 5,
	}
	// tier two: floor(100 - 80.50) = 19 * 5; tier one: floor(80.50 - 20) = 60 * 3
	assert.Equal(t, int64(19*5+60*3), s.Points(dec("100")))
	assert.Equal(t, int64(0), s.Points(dec("20.99")))
	assert.Equal(t, int64(3), s.Points(dec("21.00")))
}

func TestScheduleValidate(t *testing.T) {
	require.NoError(t, DefaultSchedule().Validate())

	bad := Schedule{
		TierOneThreshold:  dec("-1"),
		TierTwoThreshold:  dec("-5"),
		TierOneMultiplier: -1,
		TierTwoMultiplier: -2,
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier one threshold")
	assert.Contains(t, err.Error(), "tier two threshold")
	assert.Contains(t, err.Error(), "tier one multiplier")
	assert.Contains(t, err.Error(), "tier two multiplier")
}
