package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rewards/internal/amqp"
	"rewards/internal/core"
	"rewards/internal/log"
	"rewards/internal/sheets"
)

// RewardsSource computes the rewards the worker projects.
type RewardsSource interface {
	GetRewardsForCustomer(ctx context.Context, customerID int64) (core.RewardsResult, error)
	GetRewardsForAllCustomers(ctx context.Context, req core.PageRequest) (core.Page[core.RewardsResult], error)
	ListCustomers(ctx context.Context) ([]core.Customer, error)
}

// SyncWorker keeps the rewards projection in step with recorded transactions.
type SyncWorker struct {
	rewards   RewardsSource
	sheets    sheets.RewardsWriter
	batchSize int
	clock     func() time.Time
}

func NewSyncWorker(rewards RewardsSource, sheets sheets.RewardsWriter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &SyncWorker{
		rewards:   rewards,
		sheets:    sheets,
		batchSize: batchSize,
		clock:     time.Now,
	}
}

// HandleTransactionRecorded recomputes one customer's rewards and writes the row.
// Messages for customers that no longer exist are dropped.
func (w *SyncWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing transaction recorded message",
		"transaction_id", msg.TransactionID,
		"customer_id", msg.CustomerID)

	result, err := w.rewards.GetRewardsForCustomer(ctx, msg.CustomerID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Customer not found, dropping message",
			"customer_id", msg.CustomerID,
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("compute rewards: %w", err)
	}

	if _, err := w.sheets.UpsertRewards(ctx, result, w.clock()); err != nil {
		return fmt.Errorf("sync rewards to sheets: %w", err)
	}
	return nil
}

// ResyncAll rewrites every customer row. Customers whose purchases have all
// left the window get a zero-total row, replacing whatever the sheet held.
func (w *SyncWorker) ResyncAll(ctx context.Context) (int, error) {
	synced, failed := 0, 0
	seen := make(map[int64]struct{})

	upsert := func(r core.RewardsResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.sheets.UpsertRewards(ctx, r, w.clock()); err != nil {
			slog.ErrorContext(ctx, "Failed to sync customer rewards",
				log.FieldComponent, log.ComponentSheets,
				log.FieldCustomerID, r.CustomerID,
				log.FieldError, err)
			failed++
			return nil
		}
		synced++
		return nil
	}

	for page := 0; ; page++ {
		res, err := w.rewards.GetRewardsForAllCustomers(ctx, core.PageRequest{Page: page, Size: w.batchSize})
		if err != nil {
			return synced, fmt.Errorf("load rewards page %d: %w", page, err)
		}

		for _, r := range res.Items {
			seen[r.CustomerID] = struct{}{}
			if err := upsert(r); err != nil {
				return synced, err
			}
		}

		if page+1 >= res.TotalPages {
			break
		}
	}

	customers, err := w.rewards.ListCustomers(ctx)
	if err != nil {
		return synced, fmt.Errorf("list customers: %w", err)
	}
	cleared := 0
	for _, c := range customers {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		if err := upsert(core.NewRewardsResult(c, core.MonthlyPoints{})); err != nil {
			return synced, err
		}
		cleared++
	}

	slog.InfoContext(ctx, "Rewards resync completed",
		log.FieldOperation, log.OpSync,
		"synced", synced,
		"without_rewards", cleared,
		"errors", failed)

	if failed > 0 {
		return synced, fmt.Errorf("resync: %d customers failed", failed)
	}
	return synced, nil
}
