package matchmaking

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/codr1/Rollcall/internal/apperr"
)

func makePool(counts map[Tier]int) []Player {
	var pool []Player
	for _, tier := range []Tier{TierA, TierB, TierC, Tier("X")} {
		for i := 0; i < counts[tier]; i++ {
			pool = append(pool, Player{
				ID:   fmt.Sprintf("%s-%d", tier, i),
				Name: fmt.Sprintf("Player %s%d", tier, i),
				Tier: tier,
			})
		}
	}
	return pool
}

func sortedIDs(players []Player) []string {
	ids := make([]string, 0, len(players))
	for _, player := range players {
		ids = append(ids, player.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestPartitionIsPermutationOfPool(t *testing.T) {
	pool := makePool(map[Tier]int{TierA: 3, TierB: 5, TierC: 4, "X": 2})
	want := sortedIDs(pool)

	for _, mode := range []Mode{ModeTier, ModeRandom} {
		for teamCount := 2; teamCount <= 5; teamCount++ {
			rng := rand.New(rand.NewPCG(uint64(teamCount), 7))
			teams, err := Partition(pool, teamCount, mode, rng)
			if err != nil {
				t.Fatalf("partition %s/%d: %v", mode, teamCount, err)
			}
			if len(teams) != teamCount {
				t.Fatalf("partition %s/%d: got %d teams", mode, teamCount, len(teams))
			}

			var all []Player
			for i, team := range teams {
				if team.TeamNumber != i+1 {
					t.Fatalf("team %d numbered %d", i, team.TeamNumber)
				}
				all = append(all, team.Players...)
			}
			got := sortedIDs(all)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Fatalf("partition %s/%d lost or duplicated players: %v", mode, teamCount, got)
			}
		}
	}
}

func TestPartitionTierCountsDifferByAtMostOne(t *testing.T) {
	pool := makePool(map[Tier]int{TierA: 5, TierB: 7, TierC: 3, "X": 1})

	for trial := 0; trial < 200; trial++ {
		teamCount := 2 + trial%4
		teams, err := Partition(pool, teamCount, ModeTier, nil)
		if err != nil {
			t.Fatalf("partition: %v", err)
		}

		for _, tier := range []Tier{TierA, TierB, TierC} {
			minCount, maxCount := len(pool), 0
			for _, team := range teams {
				count := 0
				for _, player := range team.Players {
					if player.Tier.Normalize() == tier {
						count++
					}
				}
				minCount = min(minCount, count)
				maxCount = max(maxCount, count)
			}
			if maxCount-minCount > 1 {
				t.Fatalf("trial %d: tier %s spread %d..%d across %d teams", trial, tier, minCount, maxCount, teamCount)
			}
		}
	}
}

func TestPartitionSixPlayersTwoTeamsOneOfEachTier(t *testing.T) {
	pool := makePool(map[Tier]int{TierA: 2, TierB: 2, TierC: 2})

	for seed := uint64(0); seed < 100; seed++ {
		teams, err := Partition(pool, 2, ModeTier, rand.New(rand.NewPCG(seed, seed*31)))
		if err != nil {
			t.Fatalf("partition: %v", err)
		}
		for _, team := range teams {
			counts := map[Tier]int{}
			for _, player := range team.Players {
				counts[player.Tier]++
			}
			if counts[TierA] != 1 || counts[TierB] != 1 || counts[TierC] != 1 {
				t.Fatalf("seed %d: team %d got %v", seed, team.TeamNumber, counts)
			}
		}
	}
}

func TestPartitionTeamSizesAreBalancedInRandomMode(t *testing.T) {
	pool := makePool(map[Tier]int{TierA: 4, TierB: 4, TierC: 3})

	teams, err := Partition(pool, 3, ModeRandom, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	sizes := []int{len(teams[0].Players), len(teams[1].Players), len(teams[2].Players)}
	if sizes[0] != 4 || sizes[1] != 4 || sizes[2] != 3 {
		t.Fatalf("unexpected team sizes: %v", sizes)
	}
}

func TestPartitionFewerPlayersThanTeams(t *testing.T) {
	pool := makePool(map[Tier]int{TierB: 1})

	teams, err := Partition(pool, 3, ModeTier, nil)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(teams[0].Players) != 1 || len(teams[1].Players) != 0 || len(teams[2].Players) != 0 {
		t.Fatalf("expected the single player on team 1, got %+v", teams)
	}
}

func TestPartitionEmptyPool(t *testing.T) {
	teams, err := Partition(nil, 4, ModeRandom, nil)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(teams) != 4 {
		t.Fatalf("expected 4 empty teams, got %d", len(teams))
	}
	for _, team := range teams {
		if team.Players == nil || len(team.Players) != 0 {
			t.Fatalf("expected empty non-nil player list, got %#v", team.Players)
		}
	}
}

func TestPartitionRejectsInvalidInput(t *testing.T) {
	pool := makePool(map[Tier]int{TierA: 2})

	if _, err := Partition(pool, 1, ModeTier, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("team count 1: expected validation error, got %v", err)
	}
	if _, err := Partition(pool, 2, Mode("snake"), nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown mode: expected validation error, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeTier, "tier": ModeTier, " Random ": ModeRandom}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q want %q", raw, got, want)
		}
	}
	if _, err := ParseMode("draft"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckHeadcount(t *testing.T) {
	if err := CheckHeadcount(10, 2, 5); err != nil {
		t.Fatalf("exact headcount: %v", err)
	}
	if err := CheckHeadcount(9, 2, 5); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("short headcount: expected validation error, got %v", err)
	}
	if err := CheckHeadcount(0, 2, 5); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty pool: expected validation error, got %v", err)
	}
	if err := CheckHeadcount(0, 2, 0); err != nil {
		t.Fatalf("no seat requirement: %v", err)
	}
}
