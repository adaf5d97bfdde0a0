package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rewards/internal/core"
	"rewards/internal/store"
)

var _ store.Store = (*SQLRepository)(nil)

// SQLRepository persists customers and transactions in sqlite or postgres.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return open(SQLite, dsn)
}

func NewPostgresRepository(url string) (*SQLRepository, error) {
	return open(Postgres, url)
}

func open(d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		queries: New(db, d),
		dialect: d,
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveCustomer implements store.CustomerWriter
func (r *SQLRepository) SaveCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	row, err := r.queries.CreateCustomer(ctx, c.Name)
	if err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	slog.DebugContext(ctx, "Customer saved", "customer_id", row.ID, "backend", r.dialect.String())
	return core.Customer{ID: row.ID, Name: row.Name}, nil
}

// FindCustomer implements store.CustomerReader
func (r *SQLRepository) FindCustomer(ctx context.Context, id int64) (core.Customer, error) {
	row, err := r.queries.GetCustomer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("%w: id %d", core.ErrCustomerNotFound, id)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return core.Customer{ID: row.ID, Name: row.Name}, nil
}

func (r *SQLRepository) ExistsCustomer(ctx context.Context, id int64) (bool, error) {
	exists, err := r.queries.CustomerExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check customer %d: %w", id, err)
	}
	return exists, nil
}

func (r *SQLRepository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.queries.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	customers := make([]core.Customer, len(rows))
	for i, row := range rows {
		customers[i] = core.Customer{ID: row.ID, Name: row.Name}
	}
	return customers, nil
}

// SaveTransaction implements store.TransactionWriter
func (r *SQLRepository) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		CustomerID:      t.CustomerID,
		Amount:          t.Amount,
		TransactionDate: t.OccurredOn,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", row.ID,
		"customer_id", row.CustomerID,
		"amount", row.Amount.Decimal.StringFixed(core.CentPlaces),
		"transaction_date", row.TransactionDate.String(),
		"backend", r.dialect.String())

	return toTransaction(row), nil
}

// FindTransactions implements store.TransactionReader
func (r *SQLRepository) FindTransactions(ctx context.Context, customerID int64, w core.Window) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByCustomer(ctx, ListTransactionsByCustomerParams{
		CustomerID: customerID,
		Start:      w.Start,
		End:        w.End,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions for customer %d: %w", customerID, err)
	}
	return toTransactions(rows), nil
}

func (r *SQLRepository) FindAllTransactions(ctx context.Context, w core.Window) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{Start: w.Start, End: w.End})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows), nil
}

func toTransaction(row TransactionRow) core.Transaction {
	return core.Transaction{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Amount:     row.Amount,
		OccurredOn: row.TransactionDate,
	}
}

func toTransactions(rows []TransactionRow) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = toTransaction(row)
	}
	return out
}
