package games

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/db"
	"github.com/codr1/Rollcall/internal/ledger"
	"github.com/codr1/Rollcall/internal/stats"
)

type TeamStats struct {
	TeamID        int64                    `json:"teamId"`
	FinishedGames int                      `json:"finishedGames"`
	WinRates      []stats.TeamWinRate      `json:"winRates"`
	Attendance    []stats.MemberAttendance `json:"attendance"`
	MVPs          []stats.MVPTally         `json:"mvps"`
}

// TeamStats computes win rates, attendance and the MVP ranking over the
// team's finished games. Results are cached until the next score write.
func (s *Service) TeamStats(ctx context.Context, teamID int64) (TeamStats, error) {
	logger := log.Ctx(ctx).With().Str("component", "games").Int64("team_id", teamID).Logger()

	generation := s.statsGens.current(teamID)

	var cached TeamStats
	hit, err := s.stats.Get(ctx, teamID, &cached)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read cached team stats")
	} else if hit {
		return cached, nil
	}

	games, err := s.db.Queries.ListFinishedGames(ctx, teamID)
	if err != nil {
		return TeamStats{}, err
	}
	legacyScores, err := s.db.Queries.ListTeamLegacyScores(ctx, teamID)
	if err != nil {
		return TeamStats{}, err
	}
	legacyByGame := map[int64][]ledger.ScoreEntry{}
	for _, row := range legacyScores {
		legacyByGame[row.GameID] = append(legacyByGame[row.GameID], ledger.ScoreEntry{
			TeamNumber: int(row.TeamNumber),
			Quarter:    int(row.Quarter),
			Score:      int(row.Score),
		})
	}

	finished := make([]stats.FinishedGame, 0, len(games))
	finishedIDs := make([]int64, 0, len(games))
	for _, game := range games {
		finishedIDs = append(finishedIDs, game.ID)
		fg, err := finishedGame(game, legacyByGame[game.ID])
		if err != nil {
			logger.Error().Err(err).Int64("game_id", game.ID).Msg("Skipping game with unreadable ledger")
			continue
		}
		finished = append(finished, fg)
	}

	members, err := s.db.Queries.ListTeamMembers(ctx, teamID)
	if err != nil {
		return TeamStats{}, err
	}
	attendance, err := s.db.Queries.ListTeamAttendance(ctx, teamID)
	if err != nil {
		return TeamStats{}, err
	}
	votes, err := s.db.Queries.ListTeamMVPVotes(ctx, teamID)
	if err != nil {
		return TeamStats{}, err
	}

	result := TeamStats{
		TeamID:        teamID,
		FinishedGames: len(games),
		WinRates:      stats.TeamWinRates(finished),
		Attendance:    stats.AttendanceRates(toMembers(members), finishedIDs, toAttendance(attendance)),
		MVPs:          stats.MVPRanking(toVotes(votes)),
	}

	if s.statsGens.current(teamID) != generation {
		return result, nil
	}
	if err := s.stats.Set(ctx, teamID, result); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache team stats")
	}
	// A write that invalidated while Set was in flight may have been
	// overwritten by this result.
	if s.statsGens.current(teamID) != generation {
		if err := s.stats.Invalidate(ctx, teamID); err != nil {
			logger.Warn().Err(err).Msg("Failed to drop stale team stats")
		}
	}
	return result, nil
}

// finishedGame scores a game from its most recent round that has a recorded
// score. The round migrated from the legacy team set uses the legacy score
// rows for every quarter the ledger has not scored. Without such a round the
// legacy rows stand on their own.
func finishedGame(game db.Game, legacy []ledger.ScoreEntry) (stats.FinishedGame, error) {
	fg := stats.FinishedGame{GameID: game.ID, TeamCount: int(game.TeamCount), Scores: legacy}

	l, err := decodeGameLedger(game)
	if err != nil {
		return stats.FinishedGame{}, err
	}

	legacyRoundID := ""
	if game.LegacyTeamsJSON.Valid && game.LegacyTeamsJSON.String != "" {
		legacyRoundID = ledger.LegacyRoundID([]byte(game.LegacyTeamsJSON.String))
	}

	rounds := make([]ledger.Round, len(l.Rounds))
	copy(rounds, l.Rounds)
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].RoundNumber > rounds[j].RoundNumber
	})
	for _, round := range rounds {
		scores := ledger.FlatScores(round)
		if round.ID == legacyRoundID {
			scores = withLegacyBaseline(scores, legacy)
		}
		if !hasRecordedScore(scores) {
			continue
		}
		fg.TeamCount = len(round.Teams)
		fg.Scores = scores
		return fg, nil
	}
	return fg, nil
}

// withLegacyBaseline replaces quarters the ledger holds only as zeros with the
// legacy rows for that quarter and adds legacy quarters the ledger lacks.
func withLegacyBaseline(scores, legacy []ledger.ScoreEntry) []ledger.ScoreEntry {
	if len(legacy) == 0 {
		return scores
	}
	legacyByQuarter := map[int][]ledger.ScoreEntry{}
	for _, e := range legacy {
		legacyByQuarter[e.Quarter] = append(legacyByQuarter[e.Quarter], e)
	}
	ledgerByQuarter := map[int][]ledger.ScoreEntry{}
	for _, e := range scores {
		ledgerByQuarter[e.Quarter] = append(ledgerByQuarter[e.Quarter], e)
	}

	merged := make([]ledger.ScoreEntry, 0, len(scores)+len(legacy))
	for quarter, entries := range ledgerByQuarter {
		if rows, ok := legacyByQuarter[quarter]; ok && !hasRecordedScore(entries) {
			entries = rows
		}
		merged = append(merged, entries...)
	}
	for quarter, rows := range legacyByQuarter {
		if _, ok := ledgerByQuarter[quarter]; !ok {
			merged = append(merged, rows...)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Quarter != merged[j].Quarter {
			return merged[i].Quarter < merged[j].Quarter
		}
		return merged[i].TeamNumber < merged[j].TeamNumber
	})
	return merged
}

func hasRecordedScore(entries []ledger.ScoreEntry) bool {
	for _, e := range entries {
		if e.Score != 0 {
			return true
		}
	}
	return false
}

func toMembers(rows []db.TeamMember) []stats.Member {
	out := make([]stats.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.Member{UserID: row.UserID, Name: row.Name})
	}
	return out
}

func toAttendance(rows []db.AttendanceRow) []stats.AttendanceRecord {
	out := make([]stats.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.AttendanceRecord{
			GameID:    row.GameID,
			UserID:    row.UserID,
			Attending: row.Status == db.AttendanceAttending,
		})
	}
	return out
}

func toVotes(rows []db.MVPVote) []stats.MVPVote {
	out := make([]stats.MVPVote, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.MVPVote{GameID: row.GameID, VoterID: row.VoterID, PlayerID: row.PlayerID})
	}
	return out
}
