package games

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/db"
	"github.com/codr1/Rollcall/internal/ledger"
)

type BackfillResult struct {
	Migrated int
	Skipped  int
}

// BackfillLegacyLedgers writes the migrated ledger of up to batchSize games
// that still only hold a legacy team set. A game whose legacy value cannot be
// read is marked failed and left untouched so it does not hold up later
// batches; other failures are retried on the next run.
func (s *Service) BackfillLegacyLedgers(ctx context.Context, batchSize int) (BackfillResult, error) {
	var result BackfillResult
	logger := log.Ctx(ctx).With().Str("component", "ledger_backfill").Logger()

	pending, err := s.db.Queries.ListGamesPendingLedgerMigration(ctx, batchSize)
	if err != nil {
		return result, err
	}

	for _, candidate := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.backfillGame(ctx, candidate.ID); err != nil {
			result.Skipped++
			if !errors.Is(err, apperr.ErrCorruptState) {
				logger.Warn().Err(err).Int64("game_id", candidate.ID).Msg("Failed to backfill ledger")
				continue
			}
			logger.Error().Err(err).Int64("game_id", candidate.ID).Msg("Legacy team set unreadable, excluding game from backfill")
			if markErr := s.db.Queries.MarkLegacyMigrationFailed(ctx, candidate.ID, s.now().UTC()); markErr != nil {
				return result, markErr
			}
			continue
		}
		result.Migrated++
	}

	if len(pending) > 0 {
		logger.Info().
			Int("migrated", result.Migrated).
			Int("skipped", result.Skipped).
			Msg("Backfilled legacy ledgers")
	}
	return result, nil
}

func (s *Service) backfillGame(ctx context.Context, gameID int64) error {
	unlock := s.locks.lock(gameID)
	defer unlock()

	return s.db.RunInTx(ctx, func(txdb *db.DB) error {
		game, err := txdb.Queries.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		l, err := decodeGameLedger(game)
		if err != nil {
			return err
		}
		if l.Origin != ledger.OriginLegacyTeamSet {
			return nil
		}
		teamCount := game.TeamCount
		if round, ok := l.Latest(); ok && len(round.Teams) > 0 {
			teamCount = int64(len(round.Teams))
		}
		data, err := ledger.Encode(l)
		if err != nil {
			return err
		}
		_, err = txdb.Queries.UpdateGameLedger(ctx, db.UpdateGameLedgerParams{
			ID:               game.ID,
			RoundsJSON:       string(data),
			TeamCount:        teamCount,
			ExpectedRevision: game.Revision,
			UpdatedAt:        s.now().UTC(),
		})
		return err
	})
}
