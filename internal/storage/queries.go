package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"rewards/internal/core"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

type CustomerRow struct {
	ID   int64
	Name string
}

type TransactionRow struct {
	ID              int64
	CustomerID      int64
	Amount          decimal.NullDecimal
	TransactionDate core.Date
}

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (name) VALUES (?)
RETURNING id, name
`

func (q *Queries) CreateCustomer(ctx context.Context, name string) (CustomerRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(createCustomer), name)
	var i CustomerRow
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const getCustomer = `-- name: GetCustomer :one
SELECT id, name FROM customers
WHERE id = ?
`

func (q *Queries) GetCustomer(ctx context.Context, id int64) (CustomerRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(getCustomer), id)
	var i CustomerRow
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const customerExists = `-- name: CustomerExists :one
SELECT EXISTS (SELECT 1 FROM customers WHERE id = ?)
`

func (q *Queries) CustomerExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(customerExists), id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listCustomers = `-- name: ListCustomers :many
SELECT id, name FROM customers
ORDER BY id
`

func (q *Queries) ListCustomers(ctx context.Context) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CustomerRow
	for rows.Next() {
		var i CustomerRow
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (customer_id, amount, transaction_date)
VALUES (?, ?, ?)
RETURNING id, customer_id, amount, transaction_date
`

type CreateTransactionParams struct {
	CustomerID      int64
	Amount          decimal.NullDecimal
	TransactionDate core.Date
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(createTransaction),
		arg.CustomerID,
		arg.Amount,
		arg.TransactionDate,
	)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.CustomerID, &i.Amount, &i.TransactionDate)
	return i, err
}

const listTransactionsByCustomer = `-- name: ListTransactionsByCustomer :many
SELECT id, customer_id, amount, transaction_date FROM transactions
WHERE customer_id = ? AND transaction_date BETWEEN ? AND ?
ORDER BY transaction_date, id
`

type ListTransactionsByCustomerParams struct {
	CustomerID int64
	Start      core.Date
	End        core.Date
}

func (q *Queries) ListTransactionsByCustomer(ctx context.Context, arg ListTransactionsByCustomerParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listTransactionsByCustomer),
		arg.CustomerID,
		arg.Start,
		arg.End,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, customer_id, amount, transaction_date FROM transactions
WHERE transaction_date BETWEEN ? AND ?
ORDER BY customer_id, transaction_date, id
`

type ListTransactionsParams struct {
	Start core.Date
	End   core.Date
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listTransactions), arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]TransactionRow, error) {
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.CustomerID, &i.Amount, &i.TransactionDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
