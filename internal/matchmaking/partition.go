// Package matchmaking splits a pool of players into balanced teams and
// generates the head-to-head pairings those teams play each round.
package matchmaking

import (
	"math/rand/v2"
	"strings"

	"github.com/codr1/Rollcall/internal/apperr"
)

type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Normalize maps any tier outside A, B and C to C.
func (t Tier) Normalize() Tier {
	switch Tier(strings.ToUpper(strings.TrimSpace(string(t)))) {
	case TierA:
		return TierA
	case TierB:
		return TierB
	default:
		return TierC
	}
}

type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tier    Tier   `json:"tier"`
	IsGuest bool   `json:"isGuest"`
}

type TeamAssignment struct {
	TeamNumber int      `json:"teamNumber"`
	Players    []Player `json:"players"`
}

type Mode string

const (
	ModeTier   Mode = "tier"
	ModeRandom Mode = "random"
)

// ParseMode accepts "tier" or "random" in any case. An empty value means tier.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeTier:
		return ModeTier, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", apperr.Validation("mode must be tier or random, got %q", raw)
	}
}

// Shuffler is satisfied by *rand.Rand from math/rand/v2.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Partition distributes players across teamCount teams numbered 1..teamCount.
//
// In random mode the whole pool is shuffled and dealt round-robin. In tier mode
// each tier bucket is shuffled on its own and the buckets are dealt A, then B,
// then C with a single counter that is not reset between buckets, so no team
// receives more than one extra player of any tier.
// A nil rng uses the process-wide source.
func Partition(players []Player, teamCount int, mode Mode, rng Shuffler) ([]TeamAssignment, error) {
	if teamCount < 2 {
		return nil, apperr.Validation("team count must be at least 2, got %d", teamCount)
	}
	if rng == nil {
		rng = globalShuffler{}
	}

	var order []Player
	switch mode {
	case ModeRandom:
		order = shuffled(players, rng)
	case ModeTier, "":
		order = tierOrder(players, rng)
	default:
		return nil, apperr.Validation("unknown partition mode %q", mode)
	}

	teams := make([]TeamAssignment, teamCount)
	for i := range teams {
		teams[i] = TeamAssignment{
			TeamNumber: i + 1,
			Players:    make([]Player, 0, len(players)/teamCount+1),
		}
	}
	for idx, player := range order {
		slot := idx % teamCount
		teams[slot].Players = append(teams[slot].Players, player)
	}
	return teams, nil
}

func tierOrder(players []Player, rng Shuffler) []Player {
	buckets := map[Tier][]Player{}
	for _, player := range players {
		tier := player.Tier.Normalize()
		buckets[tier] = append(buckets[tier], player)
	}

	order := make([]Player, 0, len(players))
	for _, tier := range []Tier{TierA, TierB, TierC} {
		order = append(order, shuffled(buckets[tier], rng)...)
	}
	return order
}

func shuffled(players []Player, rng Shuffler) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// RequiredHeadcount is the number of players needed to fill every seat.
func RequiredHeadcount(teamCount, playersPerTeam int) int {
	if teamCount <= 0 || playersPerTeam <= 0 {
		return 0
	}
	return teamCount * playersPerTeam
}

// CheckHeadcount reports a validation error when the pool cannot fill every seat.
func CheckHeadcount(poolSize, teamCount, playersPerTeam int) error {
	required := RequiredHeadcount(teamCount, playersPerTeam)
	if poolSize == 0 && required > 0 {
		return apperr.Validation("no attending players")
	}
	if poolSize < required {
		return apperr.Validation("need at least %d players for %d teams of %d, have %d", required, teamCount, playersPerTeam, poolSize)
	}
	return nil
}
