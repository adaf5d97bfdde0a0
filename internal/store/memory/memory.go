package memory

import (
	"context"
	"slices"
	"sync"

	"rewards/internal/core"
	"rewards/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps customers and transactions in process memory.
type Store struct {
	mu           sync.Mutex
	customers    []core.Customer
	transactions []core.Transaction
	nextCustomer int64
	nextTx       int64
}

func New() *Store {
	return &Store{nextCustomer: 1, nextTx: 1}
}

// NewWithCustomers creates a store pre-populated with the named customers.
func NewWithCustomers(names ...string) *Store {
	s := New()
	for _, n := range names {
		s.customers = append(s.customers, core.Customer{ID: s.nextCustomer, Name: n})
		s.nextCustomer++
	}
	return s
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) SaveCustomer(_ context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextCustomer
	s.nextCustomer++
	s.customers = append(s.customers, c)
	return c, nil
}

func (s *Store) FindCustomer(_ context.Context, id int64) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Customer{}, core.ErrCustomerNotFound
}

func (s *Store) ExistsCustomer(ctx context.Context, id int64) (bool, error) {
	_, err := s.FindCustomer(ctx, id)
	return err == nil, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.customers), nil
}

// SaveTransaction stores the transaction unchanged apart from its new id.
func (s *Store) SaveTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTx
	s.nextTx++
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) FindTransactions(_ context.Context, customerID int64, w core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.CustomerID == customerID && w.Contains(t.OccurredOn) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) FindAllTransactions(_ context.Context, w core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if w.Contains(t.OccurredOn) {
			out = append(out, t)
		}
	}
	return out, nil
}
