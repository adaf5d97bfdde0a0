// Package seed loads demonstration customers and purchases.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"rewards/internal/core"
	"rewards/internal/log"
	"rewards/internal/store"
)

// Writer is the storage the seed data is written to.
type Writer interface {
	store.CustomerReader
	store.CustomerWriter
	store.TransactionWriter
}

type purchase struct {
	amount     string
	monthsBack int
	daysBack   int
}

type customerSeed struct {
	name      string
	purchases []purchase
}

// Every purchase lies within the last three months, spread over three calendar months.
var dataset = []customerSeed{
	{"Ada Lovelace", []purchase{
		{"120.00", 2, 5}, {"75.50", 2, 10}, {"150.00", 1, 3}, {"45.00", 1, 15}, {"200.00", 0, 5},
	}},
	{"Grace Hopper", []purchase{
		{"89.99", 2, 7}, {"110.00", 2, 20}, {"50.00", 1, 8}, {"175.25", 1, 18}, {"95.00", 0, 3},
	}},
	{"Alan Turing", []purchase{
		{"250.00", 2, 12}, {"30.00", 2, 25}, {"125.75", 1, 6}, {"60.00", 1, 22}, {"180.50", 0, 10},
	}},
}

// Result counts what was written.
type Result struct {
	Customers    int
	Transactions int
}

// Seed writes the sample customers and their purchases dated relative to today.
func Seed(ctx context.Context, w Writer, today core.Date) (Result, error) {
	var res Result
	for _, cs := range dataset {
		c, err := w.SaveCustomer(ctx, core.Customer{Name: cs.name})
		if err != nil {
			return res, fmt.Errorf("seed customer %q: %w", cs.name, err)
		}
		res.Customers++

		for _, p := range cs.purchases {
			on := today.AddMonths(-p.monthsBack)
			on = core.DateOf(on.AddDate(0, 0, -p.daysBack))
			_, err := w.SaveTransaction(ctx, core.Transaction{
				CustomerID: c.ID,
				Amount:     decimal.NewNullDecimal(decimal.RequireFromString(p.amount)),
				OccurredOn: on,
			})
			if err != nil {
				return res, fmt.Errorf("seed transaction for customer %d: %w", c.ID, err)
			}
			res.Transactions++
		}
	}

	slog.InfoContext(ctx, "Sample data seeded",
		log.FieldOperation, log.OpSeed,
		"customers", res.Customers,
		"transactions", res.Transactions,
		"today", today.String())
	return res, nil
}

// SeedIfEmpty seeds only a store without customers. It reports whether it seeded.
func SeedIfEmpty(ctx context.Context, w Writer, today core.Date) (bool, error) {
	existing, err := w.ListCustomers(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing customers: %w", err)
	}
	if len(existing) > 0 {
		slog.DebugContext(ctx, "Store already has customers, skipping seed", "customers", len(existing))
		return false, nil
	}
	if _, err := Seed(ctx, w, today); err != nil {
		return false, err
	}
	return true, nil
}
