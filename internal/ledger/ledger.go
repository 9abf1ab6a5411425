// Package ledger keeps the per-game history of generated rounds: the team
// assignments of each round and the quarter-by-quarter match score grids.
//
// A Ledger is an in-memory value. Callers load it from the game record with
// Decode, mutate it, and store the bytes returned by Encode. Nothing in this
// package performs I/O.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/matchmaking"
)

type MatchScore struct {
	Team1  int `json:"team1"`
	Team2  int `json:"team2"`
	Score1 int `json:"score1"`
	Score2 int `json:"score2"`
}

// QuarterScore is one scoring period of a round. Matches is the canonical
// shape. TeamScores carries the older score-map shape, keyed by team number;
// it is only ever read.
type QuarterScore struct {
	Quarter    int          `json:"quarter"`
	Matches    []MatchScore `json:"matches,omitempty"`
	TeamScores map[int]int  `json:"scores,omitempty"`
}

func (q QuarterScore) legacyOnly() bool {
	return len(q.Matches) == 0 && len(q.TeamScores) > 0
}

type Round struct {
	ID            string                       `json:"id"`
	RoundNumber   int                          `json:"roundNumber"`
	Teams         []matchmaking.TeamAssignment `json:"teams"`
	QuarterScores []QuarterScore               `json:"quarterScores"`
	MaxQuarter    int                          `json:"maxQuarter"`
	CreatedAt     time.Time                    `json:"createdAt"`
}

// Quarter returns the score entry for quarter n.
func (r Round) Quarter(n int) (QuarterScore, bool) {
	for _, q := range r.QuarterScores {
		if q.Quarter == n {
			return q, true
		}
	}
	return QuarterScore{}, false
}

// TeamTotal sums every score recorded for teamNumber across all quarters.
func (r Round) TeamTotal(teamNumber int) int {
	total := 0
	for _, q := range r.QuarterScores {
		total += quarterTeamScore(q, teamNumber)
	}
	return total
}

func quarterTeamScore(q QuarterScore, teamNumber int) int {
	total := q.TeamScores[teamNumber]
	for _, m := range q.Matches {
		switch teamNumber {
		case m.Team1:
			total += m.Score1
		case m.Team2:
			total += m.Score2
		}
	}
	return total
}

// Origin records which stored representation a Ledger was read from.
type Origin int

const (
	OriginEmpty Origin = iota
	OriginCurrent
	// OriginLegacyRounds is a bare round array without a version envelope.
	OriginLegacyRounds
	// OriginLegacyTeamSet is a single flat team set with no rounds.
	OriginLegacyTeamSet
)

type Ledger struct {
	Rounds []Round
	Origin Origin
}

// NeedsPersist reports whether the ledger was migrated from an older
// representation and has not been written back yet.
func (l *Ledger) NeedsPersist() bool {
	return l.Origin == OriginLegacyRounds || l.Origin == OriginLegacyTeamSet
}

func (l *Ledger) Round(roundID string) (Round, error) {
	idx, err := l.indexOf(roundID)
	if err != nil {
		return Round{}, err
	}
	return l.Rounds[idx], nil
}

// Latest returns the round with the highest round number.
func (l *Ledger) Latest() (Round, bool) {
	if len(l.Rounds) == 0 {
		return Round{}, false
	}
	latest := l.Rounds[0]
	for _, r := range l.Rounds[1:] {
		if r.RoundNumber > latest.RoundNumber {
			latest = r
		}
	}
	return latest, true
}

func (l *Ledger) indexOf(roundID string) (int, error) {
	for i := range l.Rounds {
		if l.Rounds[i].ID == roundID {
			return i, nil
		}
	}
	return -1, apperr.NotFound("round %q not found", roundID)
}

// AppendRound adds a new round for teams with quarter 1 zeroed for every
// pairing. Prior rounds are kept; regenerating a match always appends.
func (l *Ledger) AppendRound(teams []matchmaking.TeamAssignment, teamCount int, now time.Time) (Round, error) {
	pairs, err := matchmaking.Pairings(teamCount)
	if err != nil {
		return Round{}, err
	}
	if len(teams) != teamCount {
		return Round{}, apperr.Validation("got %d teams for a team count of %d", len(teams), teamCount)
	}

	round := Round{
		ID:            uuid.NewString(),
		RoundNumber:   len(l.Rounds) + 1,
		Teams:         teams,
		QuarterScores: []QuarterScore{newQuarter(1, pairs)},
		MaxQuarter:    1,
		CreatedAt:     now.UTC(),
	}
	l.Rounds = append(l.Rounds, round)
	return round, nil
}

// AppendQuarter adds a zeroed quarter to a round in quarter order. The caller
// picks the number, normally MaxQuarter+1.
func (l *Ledger) AppendQuarter(roundID string, quarter int) (Round, error) {
	idx, err := l.indexOf(roundID)
	if err != nil {
		return Round{}, err
	}
	if quarter < 1 {
		return Round{}, apperr.Validation("quarter must be at least 1, got %d", quarter)
	}
	round := &l.Rounds[idx]
	if _, exists := round.Quarter(quarter); exists {
		return Round{}, apperr.Validation("quarter %d already exists in round %d", quarter, round.RoundNumber)
	}

	if _, err := ensureQuarter(round, quarter); err != nil {
		return Round{}, err
	}
	return *round, nil
}

// SetScore records teamNumber's score for a quarter of a two-team round. A
// quarter that does not exist yet is created zeroed and kept in quarter order.
// Rounds with three or more teams need SetMatchScore, because a team plays
// several matches per quarter there.
func (l *Ledger) SetScore(roundID string, quarter, teamNumber, score int) (Round, error) {
	idx, err := l.indexOf(roundID)
	if err != nil {
		return Round{}, err
	}
	round := &l.Rounds[idx]
	if err := validateScoreTarget(quarter, score); err != nil {
		return Round{}, err
	}
	if teamNumber < 1 || teamNumber > len(round.Teams) {
		return Round{}, apperr.Validation("team number %d is outside 1..%d", teamNumber, len(round.Teams))
	}
	if len(round.Teams) != 2 {
		return Round{}, apperr.Validation("round %d has %d teams; scores must name both teams of the match", round.RoundNumber, len(round.Teams))
	}

	q, err := ensureQuarter(round, quarter)
	if err != nil {
		return Round{}, err
	}
	if q.legacyOnly() {
		return Round{}, apperr.Validation("quarter %d uses the legacy score shape and is read-only", quarter)
	}
	m := &q.Matches[0]
	if teamNumber == m.Team1 {
		m.Score1 = score
	} else {
		m.Score2 = score
	}
	return *round, nil
}

// SetMatchScore records both sides of one match in a quarter. The team numbers
// may be given in either order.
func (l *Ledger) SetMatchScore(roundID string, quarter, team1, team2, score1, score2 int) (Round, error) {
	idx, err := l.indexOf(roundID)
	if err != nil {
		return Round{}, err
	}
	round := &l.Rounds[idx]
	if err := validateScoreTarget(quarter, score1); err != nil {
		return Round{}, err
	}
	if score2 < 0 {
		return Round{}, apperr.Validation("score must not be negative, got %d", score2)
	}
	if team1 > team2 {
		team1, team2 = team2, team1
		score1, score2 = score2, score1
	}
	if team1 < 1 || team1 == team2 || team2 > len(round.Teams) {
		return Round{}, apperr.NotFound("match %d vs %d not found in round %d", team1, team2, round.RoundNumber)
	}

	q, err := ensureQuarter(round, quarter)
	if err != nil {
		return Round{}, err
	}
	if q.legacyOnly() {
		return Round{}, apperr.Validation("quarter %d uses the legacy score shape and is read-only", quarter)
	}
	for i := range q.Matches {
		m := &q.Matches[i]
		if m.Team1 == team1 && m.Team2 == team2 {
			m.Score1 = score1
			m.Score2 = score2
			return *round, nil
		}
	}
	return Round{}, apperr.NotFound("match %d vs %d not found in quarter %d", team1, team2, quarter)
}

func validateScoreTarget(quarter, score int) error {
	if quarter < 1 {
		return apperr.Validation("quarter must be at least 1, got %d", quarter)
	}
	if score < 0 {
		return apperr.Validation("score must not be negative, got %d", score)
	}
	return nil
}

// ensureQuarter returns the quarter entry, creating a zeroed one in quarter
// order when it is missing.
func ensureQuarter(round *Round, quarter int) (*QuarterScore, error) {
	insertAt := len(round.QuarterScores)
	for i := range round.QuarterScores {
		if round.QuarterScores[i].Quarter == quarter {
			return &round.QuarterScores[i], nil
		}
		if round.QuarterScores[i].Quarter > quarter && insertAt == len(round.QuarterScores) {
			insertAt = i
		}
	}

	pairs, err := matchmaking.Pairings(len(round.Teams))
	if err != nil {
		return nil, err
	}
	round.QuarterScores = append(round.QuarterScores, QuarterScore{})
	copy(round.QuarterScores[insertAt+1:], round.QuarterScores[insertAt:])
	round.QuarterScores[insertAt] = newQuarter(quarter, pairs)
	if quarter > round.MaxQuarter {
		round.MaxQuarter = quarter
	}
	return &round.QuarterScores[insertAt], nil
}

func newQuarter(quarter int, pairs []matchmaking.Pairing) QuarterScore {
	matches := make([]MatchScore, 0, len(pairs))
	for _, p := range pairs {
		matches = append(matches, MatchScore{Team1: p.Team1, Team2: p.Team2})
	}
	return QuarterScore{Quarter: quarter, Matches: matches}
}
