package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ports "rewards/internal/sheets"
)

// parseRowIndex maps customer ids found in column A to their 1-based row and
// returns the number of used rows. Non-numeric cells such as the header are skipped.
func parseRowIndex(values [][]any) (map[int64]int, int) {
	index := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := index[id]; !dup {
			index[id] = i + 1
		}
	}
	return index, len(values)
}

// parseRows decodes data rows (header excluded). Rows without a numeric id are skipped.
func parseRows(values [][]any) []ports.Row {
	rows := make([]ports.Row, 0, len(values))
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) == 0 {
			continue
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			continue
		}
		row := ports.Row{CustomerID: id}
		if len(cols) > 1 {
			row.CustomerName = cols[1]
		}
		if len(cols) > 2 {
			row.TotalPoints, _ = strconv.ParseInt(cols[2], 10, 64)
		}
		if len(cols) > 3 {
			row.MonthlyPoints = cols[3]
		}
		if len(cols) > 4 {
			row.UpdatedAt, _ = time.Parse(time.RFC3339, cols[4])
		}
		rows = append(rows, row)
	}
	return rows
}

func rowValues(r ports.Row) []any {
	return []any{
		strconv.FormatInt(r.CustomerID, 10),
		r.CustomerName,
		r.TotalPoints,
		r.MonthlyPoints,
		r.UpdatedAt.Format(time.RFC3339),
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
