// Package export writes the rewards of every customer as a CSV or XLSX report.
package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rewards/internal/core"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
	}
}

// Report is a table with one row per customer and one column per month.
type Report struct {
	Window core.Window
	Months []core.MonthKey
	Rows   []core.RewardsResult
}

// RewardsSource pages through the rewards of all customers.
type RewardsSource interface {
	Window() core.Window
	GetRewardsForAllCustomers(ctx context.Context, req core.PageRequest) (core.Page[core.RewardsResult], error)
}

// Collect loads every page of rewards and builds the report. Month columns
// are the window's months that appear in at least one row, oldest first.
func Collect(ctx context.Context, src RewardsSource, format core.MonthFormat, pageSize int) (Report, error) {
	if pageSize < 1 {
		pageSize = 100
	}
	var rows []core.RewardsResult
	for page := 0; ; page++ {
		res, err := src.GetRewardsForAllCustomers(ctx, core.PageRequest{Page: page, Size: pageSize})
		if err != nil {
			return Report{}, fmt.Errorf("load rewards page %d: %w", page, err)
		}
		rows = append(rows, res.Items...)
		if page+1 >= res.TotalPages {
			break
		}
	}
	return NewReport(src.Window(), format, rows), nil
}

func NewReport(w core.Window, format core.MonthFormat, rows []core.RewardsResult) Report {
	present := make(map[core.MonthKey]bool)
	for _, r := range rows {
		for _, k := range r.MonthlyPoints.Keys() {
			present[k] = true
		}
	}

	var months []core.MonthKey
	first := core.NewDate(w.Start.Year(), w.Start.Month(), 1)
	for d := first; !d.After(w.End.Time); d = d.AddMonths(1) {
		if k := format.Key(d); present[k] {
			months = append(months, k)
		}
	}
	return Report{Window: w, Months: months, Rows: rows}
}

// Header returns the column titles.
func (r Report) Header() []string {
	header := make([]string, 0, len(r.Months)+3)
	header = append(header, "Customer ID", "Customer Name")
	for _, m := range r.Months {
		header = append(header, string(m))
	}
	return append(header, "Total Points")
}

// Records returns the data rows as strings. Months without points for a
// customer are written as 0.
func (r Report) Records() [][]string {
	records := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make([]string, 0, len(r.Months)+3)
		rec = append(rec, strconv.FormatInt(row.CustomerID, 10), row.CustomerName)
		for _, m := range r.Months {
			points, _ := row.MonthlyPoints.Get(m)
			rec = append(rec, strconv.FormatInt(points, 10))
		}
		records = append(records, append(rec, strconv.FormatInt(row.TotalPoints, 10)))
	}
	return records
}

// Write renders the report in the given format.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}
