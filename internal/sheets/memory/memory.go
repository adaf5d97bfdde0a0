package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"rewards/internal/core"
	"rewards/internal/sheets"
)

var (
	_ sheets.RewardsWriter = (*Store)(nil)
	_ sheets.RewardsLister = (*Store)(nil)
)

// Store is an in-process projection used when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
}

func New() *Store {
	return &Store{}
}

// UpsertRewards stores the row and returns a synthetic row reference.
func (s *Store) UpsertRewards(_ context.Context, r core.RewardsResult, updatedAt time.Time) (string, error) {
	row := sheets.NewRow(r, updatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].CustomerID == row.CustomerID {
			s.rows[i] = row
			return fmt.Sprintf("mem:%d", i+2), nil
		}
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)+1), nil
}

// ListRewards returns rows in insertion order.
func (s *Store) ListRewards(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows), nil
}
