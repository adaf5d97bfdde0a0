package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"
)

// DefaultMonthPattern labels months as "2026-08".
const DefaultMonthPattern = "yyyy-MM"

// MonthKey is the label of a calendar month in a MonthlyPoints result.
type MonthKey string

// MonthFormat turns a calendar month into its MonthKey label.
type MonthFormat struct {
	pattern string
	layout  string
}

// monthTokens maps date-pattern tokens to Go layout fragments, longest first.
var monthTokens = []struct {
	token  string
	layout string
	year   bool
}{
	{"yyyy", "2006", true},
	{"yy", "06", true},
	{"MMMM", "January", false},
	{"MMM", "Jan", false},
	{"MM", "01", false},
	{"M", "1", false},
}

// ParseMonthFormat accepts a pattern such as "yyyy-MM" or "MMM yyyy", or a Go
// layout such as "2006-01". The format must carry both a year and a month,
// otherwise distinct months would share a label.
func ParseMonthFormat(pattern string) (MonthFormat, error) {
	if strings.TrimSpace(pattern) == "" {
		return MonthFormat{}, fmt.Errorf("month format is empty")
	}
	if strings.ContainsAny(pattern, "0123456789") {
		return parseGoLayout(pattern)
	}

	var (
		layout         strings.Builder
		hasYear, hasMo bool
	)
	rest := pattern
	for rest != "" {
		matched := false
		for _, t := range monthTokens {
			if strings.HasPrefix(rest, t.token) {
				layout.WriteString(t.layout)
				if t.year {
					hasYear = true
				} else {
					hasMo = true
				}
				rest = rest[len(t.token):]
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		c := rest[0]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			return MonthFormat{}, fmt.Errorf("month format %q: unsupported symbol %q", pattern, c)
		}
		layout.WriteByte(c)
		rest = rest[1:]
	}
	if !hasYear || !hasMo {
		return MonthFormat{}, fmt.Errorf("month format %q must contain a year and a month", pattern)
	}
	return MonthFormat{pattern: pattern, layout: layout.String()}, nil
}

func parseGoLayout(layout string) (MonthFormat, error) {
	jan := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	if jan.Format(layout) == jan.AddDate(0, 1, 0).Format(layout) ||
		jan.Format(layout) == jan.AddDate(1, 0, 0).Format(layout) {
		return MonthFormat{}, fmt.Errorf("month format %q must contain a year and a month", layout)
	}
	return MonthFormat{pattern: layout, layout: layout}, nil
}

// DefaultMonthFormat returns the "yyyy-MM" format.
func DefaultMonthFormat() MonthFormat {
	return MonthFormat{pattern: DefaultMonthPattern, layout: "2006-01"}
}

func (f MonthFormat) Pattern() string {
	if f.layout == "" {
		return DefaultMonthPattern
	}
	return f.pattern
}

// Key labels the month a date falls in. Only the calendar date is used.
func (f MonthFormat) Key(d Date) MonthKey {
	layout := f.layout
	if layout == "" {
		layout = "2006-01"
	}
	return MonthKey(time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).Format(layout))
}

// MonthPoints is the points total of one calendar month.
type MonthPoints struct {
	Month  MonthKey
	Points int64
}

// MonthlyPoints is an ordered month -> points mapping. Iteration order is
// ascending chronological, independent of the label format.
type MonthlyPoints struct {
	entries []MonthPoints
}

// NewMonthlyPoints builds a mapping from entries already in chronological order.
func NewMonthlyPoints(entries ...MonthPoints) MonthlyPoints {
	return MonthlyPoints{entries: slices.Clone(entries)}
}

func (m MonthlyPoints) Len() int {
	return len(m.entries)
}

func (m MonthlyPoints) Get(month MonthKey) (int64, bool) {
	for _, e := range m.entries {
		if e.Month == month {
			return e.Points, true
		}
	}
	return 0, false
}

func (m MonthlyPoints) Keys() []MonthKey {
	keys := make([]MonthKey, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Month
	}
	return keys
}

func (m MonthlyPoints) Entries() []MonthPoints {
	return slices.Clone(m.entries)
}

// All iterates months in chronological order.
func (m MonthlyPoints) All() iter.Seq2[MonthKey, int64] {
	return func(yield func(MonthKey, int64) bool) {
		for _, e := range m.entries {
			if !yield(e.Month, e.Points) {
				return
			}
		}
	}
}

// Total sums the points of every month.
func (m MonthlyPoints) Total() int64 {
	var total int64
	for _, e := range m.entries {
		total = addPoints(total, e.Points)
	}
	return total
}

// MarshalJSON writes a JSON object whose keys keep chronological order.
func (m MonthlyPoints) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Month))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", e.Points)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order found in the document.
func (m *MonthlyPoints) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		m.entries = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("monthly points: expected object, got %v", tok)
	}
	var entries []MonthPoints
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var points int64
		if err := dec.Decode(&points); err != nil {
			return fmt.Errorf("monthly points %q: %w", key, err)
		}
		entries = append(entries, MonthPoints{Month: MonthKey(key), Points: points})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	m.entries = entries
	return nil
}

// Aggregator groups transactions by calendar month and sums their points.
type Aggregator struct {
	Schedule Schedule
	Format   MonthFormat
}

func NewAggregator(schedule Schedule, format MonthFormat) Aggregator {
	return Aggregator{Schedule: schedule, Format: format}
}

// Aggregate returns one entry per calendar month that has at least one
// transaction, even when that month earned 0 points. Input order is irrelevant.
func (a Aggregator) Aggregate(transactions []Transaction) MonthlyPoints {
	if len(transactions) == 0 {
		return MonthlyPoints{}
	}

	sums := make(map[int]int64)
	labels := make(map[int]MonthKey)
	for _, t := range transactions {
		ym := t.OccurredOn.Year()*12 + int(t.OccurredOn.Month()) - 1
		sums[ym] = addPoints(sums[ym], a.Schedule.PointsFor(t.Amount))
		if _, ok := labels[ym]; !ok {
			labels[ym] = a.Format.Key(t.OccurredOn)
		}
	}

	months := slices.Sorted(maps.Keys(sums))
	entries := make([]MonthPoints, len(months))
	for i, ym := range months {
		entries[i] = MonthPoints{Month: labels[ym], Points: sums[ym]}
	}
	return MonthlyPoints{entries: entries}
}
