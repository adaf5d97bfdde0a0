package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Schedule is a two-tier progressive points schedule. Every dollar above
// TierTwoThreshold earns TierTwoMultiplier points and every dollar between the
// two thresholds earns TierOneMultiplier points. It is a plain value so different
// schedules can be used side by side.
type Schedule struct {
	TierOneThreshold  decimal.Decimal
	TierTwoThreshold  decimal.Decimal
	TierOneMultiplier int64
	TierTwoMultiplier int64
}

// DefaultSchedule returns 1 point per dollar over 50 and 2 points per dollar over 100.
func DefaultSchedule() Schedule {
	return Schedule{
		TierOneThreshold:  decimal.NewFromInt(50),
		TierTwoThreshold:  decimal.NewFromInt(100),
		TierOneMultiplier: 1,
		TierTwoMultiplier: 2,
	}
}

func (s Schedule) Validate() error {
	var errs []error
	if s.TierOneThreshold.IsNegative() {
		errs = append(errs, fmt.Errorf("tier one threshold %s must not be negative", s.TierOneThreshold))
	}
	if s.TierTwoThreshold.LessThan(s.TierOneThreshold) {
		errs = append(errs, fmt.Errorf("tier two threshold %s must not be below tier one threshold %s",
			s.TierTwoThreshold, s.TierOneThreshold))
	}
	if s.TierOneMultiplier < 0 {
		errs = append(errs, fmt.Errorf("tier one multiplier %d must not be negative", s.TierOneMultiplier))
	}
	if s.TierTwoMultiplier < 0 {
		errs = append(errs, fmt.Errorf("tier two multiplier %d must not be negative", s.TierTwoMultiplier))
	}
	return errors.Join(errs...)
}

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// Points returns the reward points earned by a single purchase.
//
// Zero and negative amounts earn nothing. Each bracket's dollar amount is
// truncated toward zero before its multiplier is applied, so 100.01 earns 50
// and 120.99 earns 90. Results beyond math.MaxInt64 saturate.
func (s Schedule) Points(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}

	points := decimal.Zero
	if amount.GreaterThan(s.TierTwoThreshold) {
		dollars := amount.Sub(s.TierTwoThreshold).Truncate(0)
		points = points.Add(dollars.Mul(decimal.NewFromInt(s.TierTwoMultiplier)))
	}
	if amount.GreaterThan(s.TierOneThreshold) {
		dollars := decimal.Min(amount, s.TierTwoThreshold).Sub(s.TierOneThreshold).Truncate(0)
		points = points.Add(dollars.Mul(decimal.NewFromInt(s.TierOneMultiplier)))
	}
	if points.GreaterThan(maxPoints) {
		return math.MaxInt64
	}
	return points.IntPart()
}

// addPoints sums two point counts, saturating at math.MaxInt64.
func addPoints(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// PointsFor is Points for an amount that may be absent. Absent amounts earn 0.
func (s Schedule) PointsFor(amount decimal.NullDecimal) int64 {
	if !amount.Valid {
		return 0
	}
	return s.Points(amount.Decimal)
}
