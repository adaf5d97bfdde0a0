package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards/internal/core"
	"rewards/internal/store/memory"
)

var today = time.Date(2026, time.October, 19, 15, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Transaction
	err    error
	closed bool
}

func (p *recordingPublisher) PublishTransactionRecorded(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func newService(t *testing.T, st *memory.Store, opts ...Option) *RewardsService {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return today })}, opts...)
	return NewRewardsService(st, core.NewAggregator(core.DefaultSchedule(), core.DefaultMonthFormat()), opts...)
}

func addTx(t *testing.T, st *memory.Store, customer int64, amount string, d core.Date) {
	t.Helper()
	_, err := st.SaveTransaction(context.Background(), core.Transaction{
		CustomerID: customer,
		Amount:     decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		OccurredOn: d,
	})
	require.NoError(t, err)
}

func TestWindow(t *testing.T) {
	svc := newService(t, memory.New())
	w := svc.Window()
	assert.Equal(t, core.NewDate(2026, time.July, 19), w.Start)
	assert.Equal(t, core.NewDate(2026, time.October, 19), w.End)

	svc = newService(t, memory.New(), WithWindowMonths(6))
	assert.Equal(t, core.NewDate(2026, time.April, 19), svc.Window().Start)
}

func TestGetRewardsForCustomer(t *testing.T) {
	ctx := context.Background()
	st := memory.NewWithCustomers("Kanchan", "Abhay")
	addTx(t, st, 1, "120.00", core.NewDate(2026, time.August, 3))
	addTx(t, st, 1, "75.00", core.NewDate(2026, time.August, 27))
	addTx(t, st, 1, "150.00", core.NewDate(2026, time.September, 9))
	addTx(t, st, 1, "500.00", core.NewDate(2026, time.July, 18))
	addTx(t, st, 2, "300.00", core.NewDate(2026, time.September, 9))

	res, err := newService(t, st).GetRewardsForCustomer(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.CustomerID)
	assert.Equal(t, "Kanchan", res.CustomerName)
	assert.Equal(t, []core.MonthKey{"2026-08", "2026-09"}, res.MonthlyPoints.Keys())
	aug, _ := res.MonthlyPoints.Get("2026-08")
	sep, _ := res.MonthlyPoints.Get("2026-09")
	assert.Equal(t, int64(115), aug)
	assert.Equal(t, int64(150), sep)
	assert.Equal(t, int64(265), res.TotalPoints)
}

func TestGetRewardsForCustomer_WindowBoundsInclusive(t *testing.T) {
	st := memory.NewWithCustomers("Edge")
	addTx(t, st, 1, "60.00", core.NewDate(2026, time.July, 19))
	addTx(t, st, 1, "60.00", core.NewDate(2026, time.October, 19))
	addTx(t, st, 1, "60.00", core.NewDate(2026, time.October, 20))

	res, err := newService(t, st).GetRewardsForCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []core.MonthKey{"2026-07", "2026-10"}, res.MonthlyPoints.Keys())
	assert.Equal(t, int64(20), res.TotalPoints)
}

func TestGetRewardsForCustomer_NoTransactions(t *testing.T) {
	st := memory.NewWithCustomers("Quiet")

	res, err := newService(t, st).GetRewardsForCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MonthlyPoints.Len())
	assert.Equal(t, int64(0), res.TotalPoints)
}

func TestGetRewardsForCustomer_NotFound(t *testing.T) {
	res, err := newService(t, memory.New()).GetRewardsForCustomer(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCustomerNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, core.RewardsResult{}, res)
}

func TestGetRewardsForAllCustomers(t *testing.T) {
	ctx := context.Background()
	st := memory.NewWithCustomers("A", "B", "C", "D")
	addTx(t, st, 3, "120.00", core.NewDate(2026, time.September, 1))
	addTx(t, st, 1, "200.00", core.NewDate(2026, time.October, 1))
	addTx(t, st, 1, "40.00", core.NewDate(2026, time.August, 1))
	addTx(t, st, 2, "999.00", core.NewDate(2025, time.January, 1))
	addTx(t, st, 4, "51.00", core.NewDate(2026, time.October, 2))

	svc := newService(t, st)

	all, err := svc.GetRewardsForAllCustomers(ctx, core.PageRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3, "customer B has nothing in the window and is omitted")
	assert.Equal(t, 3, all.TotalItems)
	assert.Equal(t, int64(1), all.Items[0].CustomerID)
	assert.Equal(t, int64(3), all.Items[1].CustomerID)
	assert.Equal(t, int64(4), all.Items[2].CustomerID)

	assert.Equal(t, []core.MonthKey{"2026-08", "2026-10"}, all.Items[0].MonthlyPoints.Keys())
	assert.Equal(t, int64(250), all.Items[0].TotalPoints)
	assert.Equal(t, int64(90), all.Items[1].TotalPoints)
	assert.Equal(t, int64(1), all.Items[2].TotalPoints)

	page, err := svc.GetRewardsForAllCustomers(ctx, core.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(4), page.Items[0].CustomerID)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.TotalItems)

	beyond, err := svc.GetRewardsForAllCustomers(ctx, core.PageRequest{Page: 5, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
}

func TestGetRewardsForAllCustomers_Empty(t *testing.T) {
	page, err := newService(t, memory.NewWithCustomers("A")).GetRewardsForAllCustomers(context.Background(), core.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	st := memory.NewWithCustomers("Kanchan")
	pub := &recordingPublisher{}
	svc := newService(t, st, WithPublisher(pub))

	id := int64(1)
	amount := decimal.RequireFromString("120.00")
	date := core.NewDate(2026, time.October, 1)

	saved, err := svc.CreateTransaction(ctx, core.TransactionInput{CustomerID: &id, Amount: &amount, OccurredOn: &date})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, id, saved.CustomerID)
	assert.True(t, saved.Amount.Decimal.Equal(amount))
	assert.Equal(t, date, saved.OccurredOn)

	require.Len(t, pub.events, 1)
	assert.Equal(t, saved.ID, pub.events[0].ID)

	res, err := svc.GetRewardsForCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(90), res.TotalPoints)
}

func TestCreateTransaction_UnknownCustomer(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(t, memory.New(), WithPublisher(pub))

	id := int64(7)
	amount := decimal.NewFromInt(10)
	date := core.NewDate(2026, time.October, 1)

	_, err := svc.CreateTransaction(context.Background(), core.TransactionInput{CustomerID: &id, Amount: &amount, OccurredOn: &date})
	assert.ErrorIs(t, err, core.ErrCustomerNotFound)
	assert.Empty(t, pub.events)
}

func TestCreateTransaction_Validation(t *testing.T) {
	svc := newService(t, memory.NewWithCustomers("A"))
	zero := decimal.Zero

	_, err := svc.CreateTransaction(context.Background(), core.TransactionInput{Amount: &zero})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		fields[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"customerId", "amount", "transactionDate"}, fields)
}

func TestCreateTransaction_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(t, memory.NewWithCustomers("A"), WithPublisher(pub))

	id := int64(1)
	amount := decimal.NewFromInt(60)
	date := core.NewDate(2026, time.October, 1)

	saved, err := svc.CreateTransaction(context.Background(), core.TransactionInput{CustomerID: &id, Amount: &amount, OccurredOn: &date})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Len(t, pub.events, 1)
}

func TestClose(t *testing.T) {
	t.Run("without publisher", func(t *testing.T) {
		assert.NoError(t, newService(t, memory.New()).Close())
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &recordingPublisher{}
		require.NoError(t, newService(t, memory.New(), WithPublisher(pub)).Close())
		assert.True(t, pub.closed)
	})
}

func TestReady(t *testing.T) {
	assert.NoError(t, newService(t, memory.New()).Ready(context.Background()))
}
