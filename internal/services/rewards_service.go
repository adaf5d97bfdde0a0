package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"rewards/internal/core"
	"rewards/internal/log"
	"rewards/internal/store"
)

// DefaultWindowMonths is the trailing calculation window used when none is configured.
const DefaultWindowMonths = 3

// TransactionPublisher announces recorded transactions to other processes.
type TransactionPublisher interface {
	PublishTransactionRecorded(ctx context.Context, t core.Transaction) error
}

// RewardsService computes customer rewards over the trailing window and
// records new transactions.
type RewardsService struct {
	store        store.Store
	aggregator   core.Aggregator
	windowMonths int
	clock        func() time.Time
	publisher    TransactionPublisher
}

type Option func(*RewardsService)

// WithClock replaces time.Now as the source of "today".
func WithClock(clock func() time.Time) Option {
	return func(s *RewardsService) { s.clock = clock }
}

// WithPublisher enables transaction.recorded notifications.
func WithPublisher(p TransactionPublisher) Option {
	return func(s *RewardsService) { s.publisher = p }
}

func WithWindowMonths(months int) Option {
	return func(s *RewardsService) {
		if months > 0 {
			s.windowMonths = months
		}
	}
}

func NewRewardsService(st store.Store, aggregator core.Aggregator, opts ...Option) *RewardsService {
	s := &RewardsService{
		store:        st,
		aggregator:   aggregator,
		windowMonths: DefaultWindowMonths,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the calculation window ending today.
func (s *RewardsService) Window() core.Window {
	return core.TrailingWindow(core.DateOf(s.clock()), s.windowMonths)
}

// PointsFor previews the points a single purchase of amount would earn.
func (s *RewardsService) PointsFor(amount decimal.Decimal) int64 {
	return s.aggregator.Schedule.Points(amount)
}

// GetRewardsForCustomer returns one customer's monthly and total points.
// An unknown customer yields core.ErrCustomerNotFound.
func (s *RewardsService) GetRewardsForCustomer(ctx context.Context, customerID int64) (core.RewardsResult, error) {
	customer, err := s.store.FindCustomer(ctx, customerID)
	if err != nil {
		return core.RewardsResult{}, fmt.Errorf("get rewards for customer %d: %w", customerID, err)
	}

	w := s.Window()
	txs, err := s.store.FindTransactions(ctx, customerID, w)
	if err != nil {
		return core.RewardsResult{}, fmt.Errorf("get rewards for customer %d: %w", customerID, err)
	}

	result := core.NewRewardsResult(customer, s.aggregator.Aggregate(txs))
	slog.DebugContext(ctx, "Rewards computed",
		"customer_id", customerID,
		"transactions", len(txs),
		"months", result.MonthlyPoints.Len(),
		"total_points", result.TotalPoints,
		"window", w.String())
	return result, nil
}

// GetRewardsForAllCustomers returns rewards for every customer with at least
// one transaction in the window, ordered by customer id and paginated.
func (s *RewardsService) GetRewardsForAllCustomers(ctx context.Context, req core.PageRequest) (core.Page[core.RewardsResult], error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return core.Page[core.RewardsResult]{}, fmt.Errorf("get rewards for all customers: %w", err)
	}

	w := s.Window()
	txs, err := s.store.FindAllTransactions(ctx, w)
	if err != nil {
		return core.Page[core.RewardsResult]{}, fmt.Errorf("get rewards for all customers: %w", err)
	}

	byCustomer := make(map[int64][]core.Transaction)
	for _, t := range txs {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	results := make([]core.RewardsResult, 0, len(byCustomer))
	for _, c := range customers {
		own, ok := byCustomer[c.ID]
		if !ok {
			continue
		}
		results = append(results, core.NewRewardsResult(c, s.aggregator.Aggregate(own)))
	}

	slog.DebugContext(ctx, "Rewards computed for all customers",
		"customers", len(customers),
		"with_transactions", len(results),
		"window", w.String())

	return core.Paginate(results, req), nil
}

// ListCustomers returns every customer ordered by id, with or without rewards.
func (s *RewardsService) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// CreateTransaction validates and stores a purchase for an existing customer.
// A failed notification is logged and never fails the call.
func (s *RewardsService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	t, err := in.Validate()
	if err != nil {
		return core.Transaction{}, err
	}

	exists, err := s.store.ExistsCustomer(ctx, t.CustomerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("check customer %d: %w", t.CustomerID, err)
	}
	if !exists {
		return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrCustomerNotFound, t.CustomerID)
	}

	saved, err := s.store.SaveTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction recorded message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldOperation, log.OpPublish,
			log.FieldTransactionID, saved.ID,
			log.FieldCustomerID, saved.CustomerID,
			log.FieldError, err)
	}

	return saved, nil
}

func (s *RewardsService) publish(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction recorded message")
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, t)
}

// Ready reports whether the storage backend answers.
func (s *RewardsService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes the publisher when it holds a connection. The store is owned
// by the backend factory and closed by its cleanup.
func (s *RewardsService) Close() error {
	var errs []error

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close rewards service: %w", errors.Join(errs...))
	}
	return nil
}
