// Package games runs matchmaking and score entry against stored games. It owns
// the read-modify-write cycle of a game's round ledger.
package games

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/cache"
	"github.com/codr1/Rollcall/internal/db"
	"github.com/codr1/Rollcall/internal/ledger"
	"github.com/codr1/Rollcall/internal/matchmaking"
)

const guestIDPrefix = "guest-"

type Service struct {
	db          *db.DB
	stats       cache.Stats
	rng         matchmaking.Shuffler
	now         func() time.Time
	defaultMode matchmaking.Mode
	locks       *gameLocks
	statsGens   *statsGenerations
}

type Option func(*Service)

func WithStatsCache(c cache.Stats) Option {
	return func(s *Service) {
		if c != nil {
			s.stats = c
		}
	}
}

// WithShuffler fixes the random source used by the partitioner.
func WithShuffler(rng matchmaking.Shuffler) Option {
	return func(s *Service) { s.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithDefaultMode(mode matchmaking.Mode) Option {
	return func(s *Service) {
		if mode != "" {
			s.defaultMode = mode
		}
	}
}

func NewService(database *db.DB, opts ...Option) *Service {
	s := &Service{
		db:          database,
		stats:       cache.Noop{},
		now:         time.Now,
		defaultMode: matchmaking.ModeTier,
		locks:       newGameLocks(),
		statsGens:   newStatsGenerations(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queries exposes the query layer for callers that share the service's database.
func (s *Service) Queries() *db.Queries {
	return s.db.Queries
}

type GenerateMatchInput struct {
	GameID    int64
	TeamCount int
	Mode      string
}

// GenerateMatch builds the attending pool, splits it into teams and appends
// the result to the game's ledger as a new round.
func (s *Service) GenerateMatch(ctx context.Context, in GenerateMatchInput) (ledger.Round, error) {
	mode := s.defaultMode
	if in.Mode != "" {
		parsed, err := matchmaking.ParseMode(in.Mode)
		if err != nil {
			return ledger.Round{}, err
		}
		mode = parsed
	}
	if in.TeamCount < 2 {
		return ledger.Round{}, apperr.Validation("team count must be at least 2, got %d", in.TeamCount)
	}

	unlock := s.locks.lock(in.GameID)
	defer unlock()

	game, l, err := s.load(ctx, in.GameID)
	if err != nil {
		return ledger.Round{}, err
	}

	pool, err := s.playerPool(ctx, game.ID)
	if err != nil {
		return ledger.Round{}, err
	}
	if err := matchmaking.CheckHeadcount(len(pool), in.TeamCount, int(game.PlayersPerTeam)); err != nil {
		return ledger.Round{}, err
	}

	teams, err := matchmaking.Partition(pool, in.TeamCount, mode, s.rng)
	if err != nil {
		return ledger.Round{}, err
	}
	round, err := l.AppendRound(teams, in.TeamCount, s.now())
	if err != nil {
		return ledger.Round{}, err
	}
	if err := s.store(ctx, game, l, in.TeamCount); err != nil {
		return ledger.Round{}, err
	}
	s.invalidateStats(ctx, game.TeamID)

	log.Ctx(ctx).Info().
		Str("component", "games").
		Int64("game_id", game.ID).
		Str("round_id", round.ID).
		Int("round_number", round.RoundNumber).
		Int("team_count", in.TeamCount).
		Str("mode", string(mode)).
		Int("pool_size", len(pool)).
		Msg("Generated match")
	return round, nil
}

// AddQuarter appends the next quarter to a round.
func (s *Service) AddQuarter(ctx context.Context, gameID int64, roundID string) (ledger.Round, error) {
	unlock := s.locks.lock(gameID)
	defer unlock()

	game, l, err := s.load(ctx, gameID)
	if err != nil {
		return ledger.Round{}, err
	}
	current, err := l.Round(roundID)
	if err != nil {
		return ledger.Round{}, err
	}
	round, err := l.AppendQuarter(roundID, current.MaxQuarter+1)
	if err != nil {
		return ledger.Round{}, err
	}
	if err := s.store(ctx, game, l, int(game.TeamCount)); err != nil {
		return ledger.Round{}, err
	}

	log.Ctx(ctx).Info().
		Str("component", "games").
		Int64("game_id", gameID).
		Str("round_id", roundID).
		Int("quarter", round.MaxQuarter).
		Msg("Added quarter")
	return round, nil
}

// SetScoreInput addresses a score either by TeamNumber (two-team rounds) or by
// the Team1/Team2 match of a quarter.
type SetScoreInput struct {
	GameID     int64
	RoundID    string
	Quarter    int
	TeamNumber int
	Score      int
	Team1      int
	Team2      int
	Score1     int
	Score2     int
}

func (in SetScoreInput) byMatch() bool {
	return in.TeamNumber == 0
}

func (s *Service) SetScore(ctx context.Context, in SetScoreInput) (ledger.Round, error) {
	if in.byMatch() && (in.Team1 == 0 || in.Team2 == 0) {
		return ledger.Round{}, apperr.Validation("either teamNumber or both team1 and team2 are required")
	}

	unlock := s.locks.lock(in.GameID)
	defer unlock()

	game, l, err := s.load(ctx, in.GameID)
	if err != nil {
		return ledger.Round{}, err
	}

	var round ledger.Round
	if in.byMatch() {
		round, err = l.SetMatchScore(in.RoundID, in.Quarter, in.Team1, in.Team2, in.Score1, in.Score2)
	} else {
		round, err = l.SetScore(in.RoundID, in.Quarter, in.TeamNumber, in.Score)
	}
	if err != nil {
		return ledger.Round{}, err
	}
	if err := s.store(ctx, game, l, int(game.TeamCount)); err != nil {
		return ledger.Round{}, err
	}
	s.invalidateStats(ctx, game.TeamID)

	log.Ctx(ctx).Debug().
		Str("component", "games").
		Int64("game_id", in.GameID).
		Str("round_id", in.RoundID).
		Int("quarter", in.Quarter).
		Msg("Recorded score")
	return round, nil
}

// Rounds returns the game's ledger. A legacy team set is shown as a migrated
// round without being written back.
func (s *Service) Rounds(ctx context.Context, gameID int64) ([]ledger.Round, error) {
	_, l, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return l.Rounds, nil
}

func (s *Service) load(ctx context.Context, gameID int64) (db.Game, ledger.Ledger, error) {
	game, err := s.db.Queries.GetGame(ctx, gameID)
	if err != nil {
		return db.Game{}, ledger.Ledger{}, err
	}
	l, err := decodeGameLedger(game)
	if err != nil {
		log.Ctx(ctx).Error().
			Str("component", "games").
			Int64("game_id", gameID).
			Err(err).
			Msg("Stored ledger is unreadable")
		return db.Game{}, ledger.Ledger{}, err
	}
	return game, l, nil
}

func decodeGameLedger(game db.Game) (ledger.Ledger, error) {
	l, err := ledger.Decode([]byte(game.RoundsJSON.String), []byte(game.LegacyTeamsJSON.String))
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("game %d: %w", game.ID, err)
	}
	return l, nil
}

// store writes the whole ledger back, guarded by the revision read in load.
func (s *Service) store(ctx context.Context, game db.Game, l ledger.Ledger, teamCount int) error {
	data, err := ledger.Encode(l)
	if err != nil {
		return fmt.Errorf("encode ledger for game %d: %w", game.ID, err)
	}
	_, err = s.db.Queries.UpdateGameLedger(ctx, db.UpdateGameLedgerParams{
		ID:               game.ID,
		RoundsJSON:       string(data),
		TeamCount:        int64(teamCount),
		ExpectedRevision: game.Revision,
		UpdatedAt:        s.now().UTC(),
	})
	if err != nil {
		log.Ctx(ctx).Warn().
			Str("component", "games").
			Int64("game_id", game.ID).
			Int64("revision", game.Revision).
			Err(err).
			Msg("Failed to store ledger")
		return err
	}
	if l.NeedsPersist() {
		log.Ctx(ctx).Info().
			Str("component", "games").
			Int64("game_id", game.ID).
			Msg("Persisted migrated ledger")
	}
	return nil
}

// playerPool is every member marked attending plus every guest of the game.
func (s *Service) playerPool(ctx context.Context, gameID int64) ([]matchmaking.Player, error) {
	members, err := s.db.Queries.ListAttendingMembers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	guests, err := s.db.Queries.ListGameGuests(ctx, gameID)
	if err != nil {
		return nil, err
	}

	pool := make([]matchmaking.Player, 0, len(members)+len(guests))
	for _, m := range members {
		pool = append(pool, matchmaking.Player{
			ID:   strconv.FormatInt(m.UserID, 10),
			Name: m.Name,
			Tier: matchmaking.Tier(m.Tier).Normalize(),
		})
	}
	for _, g := range guests {
		pool = append(pool, matchmaking.Player{
			ID:      guestIDPrefix + strconv.FormatInt(g.ID, 10),
			Name:    g.Name,
			Tier:    matchmaking.Tier(g.Tier).Normalize(),
			IsGuest: true,
		})
	}
	return pool, nil
}

func (s *Service) invalidateStats(ctx context.Context, teamID int64) {
	s.statsGens.bump(teamID)
	if err := s.stats.Invalidate(ctx, teamID); err != nil {
		log.Ctx(ctx).Warn().
			Str("component", "games").
			Int64("team_id", teamID).
			Err(err).
			Msg("Failed to invalidate cached team stats")
	}
}
