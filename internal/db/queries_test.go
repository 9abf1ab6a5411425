package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/Rollcall/internal/apperr"
)

func newQueriesTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "queries.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	stmts := []string{
		"INSERT INTO teams (id, name) VALUES (1, 'Sunday League')",
		"INSERT INTO team_members (team_id, user_id, name, role, tier) VALUES (1, 7, 'Mo', 'manager', 'A')",
		"INSERT INTO team_members (team_id, user_id, name, role, tier) VALUES (1, 8, 'Ni', 'member', 'B')",
	}
	for _, stmt := range stmts {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	if _, err := database.ExecContext(ctx,
		`INSERT INTO games (id, team_id, title, scheduled_at, status) VALUES (?, ?, ?, ?, ?)`,
		5, 1, "Pickup", time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC), GameStatusScheduled,
	); err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return database
}

func TestGetGame(t *testing.T) {
	database := newQueriesTestDB(t)
	ctx := context.Background()

	game, err := database.Queries.GetGame(ctx, 5)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Title != "Pickup" || game.TeamCount != 2 || game.Revision != 0 || game.RoundsJSON.Valid {
		t.Fatalf("unexpected game %+v", game)
	}
	if !game.ScheduledAt.Equal(time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected scheduled time %v", game.ScheduledAt)
	}

	if _, err := database.Queries.GetGame(ctx, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateGameLedgerComparesRevision(t *testing.T) {
	database := newQueriesTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)

	revision, err := database.Queries.UpdateGameLedger(ctx, UpdateGameLedgerParams{
		ID: 5, RoundsJSON: `{"version":2,"rounds":[]}`, TeamCount: 3, ExpectedRevision: 0, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if revision != 1 {
		t.Fatalf("expected revision 1, got %d", revision)
	}

	_, err = database.Queries.UpdateGameLedger(ctx, UpdateGameLedgerParams{
		ID: 5, RoundsJSON: `{"version":2,"rounds":[]}`, TeamCount: 2, ExpectedRevision: 0, UpdatedAt: now,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on stale revision, got %v", err)
	}

	game, err := database.Queries.GetGame(ctx, 5)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.TeamCount != 3 || game.Revision != 1 || game.RoundsJSON.String != `{"version":2,"rounds":[]}` {
		t.Fatalf("stale write must not apply, got %+v", game)
	}
}

func TestGetTeamMemberRole(t *testing.T) {
	database := newQueriesTestDB(t)
	ctx := context.Background()

	role, err := database.Queries.GetTeamMemberRole(ctx, 1, 7)
	if err != nil || role != RoleManager {
		t.Fatalf("expected manager, got %q (%v)", role, err)
	}
	if _, err := database.Queries.GetTeamMemberRole(ctx, 1, 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for non-member, got %v", err)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	database := newQueriesTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.RunInTx(ctx, func(txdb *DB) error {
		if _, err := txdb.Queries.UpdateGameLedger(ctx, UpdateGameLedgerParams{
			ID: 5, RoundsJSON: "{}", TeamCount: 4, ExpectedRevision: 0, UpdatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	game, err := database.Queries.GetGame(ctx, 5)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Revision != 0 || game.TeamCount != 2 {
		t.Fatalf("expected rollback, got %+v", game)
	}
}
