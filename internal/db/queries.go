package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/Rollcall/internal/apperr"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const gameColumns = `id, team_id, title, scheduled_at, status, team_count, players_per_team,
	rounds_json, legacy_teams_json, revision, created_at, updated_at`

func scanGame(row interface{ Scan(...any) error }) (Game, error) {
	var g Game
	err := row.Scan(
		&g.ID,
		&g.TeamID,
		&g.Title,
		&g.ScheduledAt,
		&g.Status,
		&g.TeamCount,
		&g.PlayersPerTeam,
		&g.RoundsJSON,
		&g.LegacyTeamsJSON,
		&g.Revision,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

func (q *Queries) GetGame(ctx context.Context, id int64) (Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Game{}, apperr.NotFound("game %d not found", id)
		}
		return Game{}, fmt.Errorf("get game %d: %w", id, err)
	}
	return game, nil
}

func (q *Queries) ListFinishedGames(ctx context.Context, teamID int64) ([]Game, error) {
	return q.listGames(ctx, `SELECT `+gameColumns+` FROM games
		WHERE team_id = ? AND status = ?
		ORDER BY scheduled_at, id`, teamID, GameStatusFinished)
}

// ListGamesPendingLedgerMigration returns games that still only hold a legacy
// team set, leaving out those whose migration already failed.
func (q *Queries) ListGamesPendingLedgerMigration(ctx context.Context, limit int) ([]Game, error) {
	return q.listGames(ctx, `SELECT `+gameColumns+` FROM games
		WHERE (rounds_json IS NULL OR rounds_json = '')
		  AND legacy_teams_json IS NOT NULL AND legacy_teams_json <> ''
		  AND legacy_migration_failed_at IS NULL
		ORDER BY id
		LIMIT ?`, limit)
}

// MarkLegacyMigrationFailed keeps a game with an unreadable legacy team set
// out of later backfill batches. Clearing the column queues it again.
func (q *Queries) MarkLegacyMigrationFailed(ctx context.Context, gameID int64, failedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE games SET legacy_migration_failed_at = ? WHERE id = ?`,
		failedAt, gameID,
	)
	if err != nil {
		return fmt.Errorf("mark game %d legacy migration failed: %w", gameID, err)
	}
	return nil
}

func (q *Queries) listGames(ctx context.Context, query string, args ...any) ([]Game, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

type UpdateGameLedgerParams struct {
	ID               int64
	RoundsJSON       string
	TeamCount        int64
	ExpectedRevision int64
	UpdatedAt        time.Time
}

// UpdateGameLedger replaces the stored ledger only when the row is still at
// ExpectedRevision. A lost race returns apperr.ErrConflict.
func (q *Queries) UpdateGameLedger(ctx context.Context, arg UpdateGameLedgerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, `UPDATE games
		SET rounds_json = ?, team_count = ?, revision = revision + 1, updated_at = ?
		WHERE id = ? AND revision = ?`,
		arg.RoundsJSON,
		arg.TeamCount,
		arg.UpdatedAt,
		arg.ID,
		arg.ExpectedRevision,
	)
	if err != nil {
		return 0, fmt.Errorf("update game %d ledger: %w", arg.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update game %d ledger: %w", arg.ID, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: game %d changed since revision %d", apperr.ErrConflict, arg.ID, arg.ExpectedRevision)
	}
	return arg.ExpectedRevision + 1, nil
}

func (q *Queries) GetTeamMemberRole(ctx context.Context, teamID, userID int64) (string, error) {
	var role string
	err := q.db.QueryRowContext(ctx,
		`SELECT role FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("user %d is not a member of team %d", userID, teamID)
		}
		return "", fmt.Errorf("get team member role: %w", err)
	}
	return role, nil
}

func (q *Queries) ListTeamMembers(ctx context.Context, teamID int64) ([]TeamMember, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT team_id, user_id, name, role, tier
		FROM team_members WHERE team_id = ? ORDER BY user_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members %d: %w", teamID, err)
	}
	defer rows.Close()
	return scanTeamMembers(rows)
}

// ListAttendingMembers returns the team members who marked themselves
// attending for a game, with their stored tier.
func (q *Queries) ListAttendingMembers(ctx context.Context, gameID int64) ([]TeamMember, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT tm.team_id, tm.user_id, tm.name, tm.role, tm.tier
		FROM attendance a
		JOIN games g ON g.id = a.game_id
		JOIN team_members tm ON tm.team_id = g.team_id AND tm.user_id = a.user_id
		WHERE a.game_id = ? AND a.status = ?
		ORDER BY tm.user_id`, gameID, AttendanceAttending)
	if err != nil {
		return nil, fmt.Errorf("list attending members for game %d: %w", gameID, err)
	}
	defer rows.Close()
	return scanTeamMembers(rows)
}

func scanTeamMembers(rows *sql.Rows) ([]TeamMember, error) {
	var members []TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Name, &m.Role, &m.Tier); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (q *Queries) ListGameGuests(ctx context.Context, gameID int64) ([]GameGuest, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, game_id, name, tier
		FROM game_guests WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list guests for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var guests []GameGuest
	for rows.Next() {
		var g GameGuest
		if err := rows.Scan(&g.ID, &g.GameID, &g.Name, &g.Tier); err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// ListTeamAttendance returns attendance rows for the team's finished games.
func (q *Queries) ListTeamAttendance(ctx context.Context, teamID int64) ([]AttendanceRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT a.game_id, a.user_id, a.status
		FROM attendance a
		JOIN games g ON g.id = a.game_id
		WHERE g.team_id = ? AND g.status = ?
		ORDER BY a.game_id, a.user_id`, teamID, GameStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("list attendance for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var a AttendanceRow
		if err := rows.Scan(&a.GameID, &a.UserID, &a.Status); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListTeamLegacyScores returns the scores table rows of the team's finished games.
func (q *Queries) ListTeamLegacyScores(ctx context.Context, teamID int64) ([]LegacyScore, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT s.game_id, s.team_number, s.quarter, s.score
		FROM scores s
		JOIN games g ON g.id = s.game_id
		WHERE g.team_id = ? AND g.status = ?
		ORDER BY s.game_id, s.quarter, s.team_number`, teamID, GameStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("list legacy scores for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var out []LegacyScore
	for rows.Next() {
		var s LegacyScore
		if err := rows.Scan(&s.GameID, &s.TeamNumber, &s.Quarter, &s.Score); err != nil {
			return nil, fmt.Errorf("scan legacy score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) ListTeamMVPVotes(ctx context.Context, teamID int64) ([]MVPVote, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT v.game_id, v.voter_id, v.player_id
		FROM mvp_votes v
		JOIN games g ON g.id = v.game_id
		WHERE g.team_id = ?
		ORDER BY v.game_id, v.voter_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list mvp votes for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var out []MVPVote
	for rows.Next() {
		var v MVPVote
		if err := rows.Scan(&v.GameID, &v.VoterID, &v.PlayerID); err != nil {
			return nil, fmt.Errorf("scan mvp vote: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
