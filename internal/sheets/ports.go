package sheets

import (
	"context"
	"strconv"
	"time"

	"rewards/internal/core"
)

// Ports for outbound adapters.
type (
	// RewardsWriter keeps one row per customer in an external projection.
	RewardsWriter interface {
		// UpsertRewards replaces the customer's row, or appends one when missing.
		UpsertRewards(ctx context.Context, r core.RewardsResult, updatedAt time.Time) (rowRef string, err error)
	}

	// RewardsLister reads the projection back.
	RewardsLister interface {
		ListRewards(ctx context.Context) ([]Row, error)
	}
)

// Row is one customer line of the projection.
type Row struct {
	CustomerID    int64
	CustomerName  string
	TotalPoints   int64
	MonthlyPoints string
	UpdatedAt     time.Time
}

// Header is the first row of the projection sheet.
var Header = []string{"Customer ID", "Customer Name", "Total Points", "Monthly Points", "Updated At"}

// NewRow flattens a result into a projection row.
func NewRow(r core.RewardsResult, updatedAt time.Time) Row {
	return Row{
		CustomerID:    r.CustomerID,
		CustomerName:  r.CustomerName,
		TotalPoints:   r.TotalPoints,
		MonthlyPoints: FormatMonthly(r.MonthlyPoints),
		UpdatedAt:     updatedAt.UTC(),
	}
}

// FormatMonthly renders "2026-08=115; 2026-09=150" in chronological order.
func FormatMonthly(m core.MonthlyPoints) string {
	var b []byte
	for month, points := range m.All() {
		if len(b) > 0 {
			b = append(b, "; "...)
		}
		b = append(b, month...)
		b = append(b, '=')
		b = strconv.AppendInt(b, points, 10)
	}
	return string(b)
}
