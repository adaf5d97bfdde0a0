package store

import (
	"context"

	"rewards/internal/core"
)

// Ports implemented by every storage backend.
type (
	CustomerReader interface {
		// FindCustomer returns core.ErrCustomerNotFound when id is unknown.
		FindCustomer(ctx context.Context, id int64) (core.Customer, error)
		ExistsCustomer(ctx context.Context, id int64) (bool, error)
		// ListCustomers returns every customer ordered by id.
		ListCustomers(ctx context.Context) ([]core.Customer, error)
	}

	CustomerWriter interface {
		// SaveCustomer assigns an id and returns the stored record.
		SaveCustomer(ctx context.Context, c core.Customer) (core.Customer, error)
	}

	TransactionReader interface {
		// FindTransactions returns one customer's transactions inside w, both ends included.
		FindTransactions(ctx context.Context, customerID int64, w core.Window) ([]core.Transaction, error)
		// FindAllTransactions returns every customer's transactions inside w.
		FindAllTransactions(ctx context.Context, w core.Window) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		// SaveTransaction assigns an id and returns the stored record.
		SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the union the rewards service and the seeder need.
	Store interface {
		CustomerReader
		CustomerWriter
		TransactionReader
		TransactionWriter
		Pinger
	}
)
