package scheduler

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/games"
)

const ledgerBackfillJobName = "ledger_backfill"

// LedgerBackfiller is the part of games.Service the backfill job drives.
type LedgerBackfiller interface {
	BackfillLegacyLedgers(ctx context.Context, batchSize int) (games.BackfillResult, error)
}

// ledgerBackfillJob migrates one batch of games that still only store a
// legacy team set.
func ledgerBackfillJob(backfiller LedgerBackfiller, cronExpr string, batchSize int) JobSpec {
	return JobSpec{
		Name: ledgerBackfillJobName,
		Cron: cronExpr,
		Run: func(ctx context.Context) error {
			result, err := backfiller.BackfillLegacyLedgers(ctx, batchSize)
			if err != nil {
				return fmt.Errorf("ledger backfill: %w", err)
			}
			log.Ctx(ctx).Debug().
				Str("component", "ledger_backfill_job").
				Int("migrated", result.Migrated).
				Int("skipped", result.Skipped).
				Msg("Ledger backfill finished")
			return nil
		},
	}
}

// RegisterLedgerBackfillJob schedules the backfill on the singleton scheduler.
// Overlapping runs are rescheduled rather than stacked.
func RegisterLedgerBackfillJob(backfiller LedgerBackfiller, cronExpr string, batchSize int) error {
	if backfiller == nil {
		return fmt.Errorf("ledger backfill job requires a games service")
	}
	if batchSize <= 0 {
		return fmt.Errorf("ledger backfill batch size must be positive, got %d", batchSize)
	}

	spec := ledgerBackfillJob(backfiller, cronExpr, batchSize)
	if _, err := Register(spec, gocron.WithSingletonMode(gocron.LimitModeReschedule)); err != nil {
		return fmt.Errorf("add ledger backfill job: %w", err)
	}
	return nil
}
