package ledger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/matchmaking"
)

// CurrentVersion is the envelope version written by Encode.
// Version 1 is the bare round array stored before the envelope existed.
const CurrentVersion = 2

// legacyRoundNamespace seeds the deterministic ids of rounds migrated from a
// legacy team set, so repeated reads of the same record agree on the id.
var legacyRoundNamespace = uuid.MustParse("6f1c6f0e-6a55-4c1b-9d0f-3c1e5b7a2d40")

type envelope struct {
	Version int     `json:"version"`
	Rounds  []Round `json:"rounds"`
}

// Decode reads a game's ledger from its stored columns. A stored round list
// wins; otherwise a legacy team set becomes a single round; otherwise the
// ledger is empty. The migration is only in memory: NeedsPersist reports
// whether the caller should write it back.
//
// Content that cannot be decoded is reported as apperr.ErrCorruptState and is
// never replaced with an empty ledger.
func Decode(roundsJSON, legacyTeamsJSON []byte) (Ledger, error) {
	roundsJSON = bytes.TrimSpace(roundsJSON)
	if !absent(roundsJSON) {
		return decodeRounds(roundsJSON)
	}

	legacyTeamsJSON = bytes.TrimSpace(legacyTeamsJSON)
	if !absent(legacyTeamsJSON) {
		return decodeLegacyTeamSet(legacyTeamsJSON)
	}

	return Ledger{Rounds: []Round{}, Origin: OriginEmpty}, nil
}

// Encode serializes the ledger in the current envelope format.
func Encode(l Ledger) ([]byte, error) {
	rounds := l.Rounds
	if rounds == nil {
		rounds = []Round{}
	}
	data, err := json.Marshal(envelope{Version: CurrentVersion, Rounds: rounds})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func absent(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeRounds(raw []byte) (Ledger, error) {
	switch raw[0] {
	case '[':
		var rounds []Round
		if err := json.Unmarshal(raw, &rounds); err != nil {
			return Ledger{}, apperr.Corrupt(err, "decode version 1 rounds")
		}
		for i := range rounds {
			upgradeRound(&rounds[i])
		}
		return Ledger{Rounds: rounds, Origin: OriginLegacyRounds}, nil

	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Ledger{}, apperr.Corrupt(err, "decode rounds envelope")
		}
		if env.Version < 1 || env.Version > CurrentVersion {
			return Ledger{}, apperr.Corrupt(nil, "unsupported ledger version %d", env.Version)
		}
		if env.Rounds == nil {
			env.Rounds = []Round{}
		}
		origin := OriginCurrent
		if env.Version < CurrentVersion {
			for i := range env.Rounds {
				upgradeRound(&env.Rounds[i])
			}
			origin = OriginLegacyRounds
		}
		return Ledger{Rounds: env.Rounds, Origin: origin}, nil

	default:
		return Ledger{}, apperr.Corrupt(nil, "rounds value is neither an array nor an object")
	}
}

// LegacyRoundID is the id Decode gives the round migrated from a stored
// legacy team set.
func LegacyRoundID(legacyTeamsJSON []byte) string {
	return uuid.NewSHA1(legacyRoundNamespace, bytes.TrimSpace(legacyTeamsJSON)).String()
}

func decodeLegacyTeamSet(raw []byte) (Ledger, error) {
	var teams []matchmaking.TeamAssignment
	if err := json.Unmarshal(raw, &teams); err != nil {
		return Ledger{}, apperr.Corrupt(err, "decode legacy team set")
	}
	round := Round{
		ID:            LegacyRoundID(raw),
		RoundNumber:   1,
		Teams:         teams,
		QuarterScores: []QuarterScore{},
		MaxQuarter:    1,
		CreatedAt:     time.Time{},
	}
	return Ledger{Rounds: []Round{round}, Origin: OriginLegacyTeamSet}, nil
}

// upgradeRound folds score-map quarters of two-team rounds into the match
// grid. Score maps of larger rounds cannot be split into matches and stay as
// read-only totals.
func upgradeRound(r *Round) {
	if r.QuarterScores == nil {
		r.QuarterScores = []QuarterScore{}
	}
	for i := range r.QuarterScores {
		q := &r.QuarterScores[i]
		if !q.legacyOnly() || len(r.Teams) != 2 {
			continue
		}
		q.Matches = []MatchScore{{
			Team1:  1,
			Team2:  2,
			Score1: q.TeamScores[1],
			Score2: q.TeamScores[2],
		}}
		q.TeamScores = nil
	}
	for _, q := range r.QuarterScores {
		if q.Quarter > r.MaxQuarter {
			r.MaxQuarter = q.Quarter
		}
	}
	if r.MaxQuarter < 1 {
		r.MaxQuarter = 1
	}
}
