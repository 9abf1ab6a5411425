package matchmaking

import "github.com/codr1/Rollcall/internal/apperr"

// Pairing is one head-to-head match between two team numbers. Team1 < Team2.
type Pairing struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Pairings returns the matches played in every quarter of a round: one match
// for two teams, otherwise every team against every other team once. The order
// is i ascending, then j ascending.
func Pairings(teamCount int) ([]Pairing, error) {
	if teamCount < 2 {
		return nil, apperr.Validation("team count must be at least 2, got %d", teamCount)
	}
	if teamCount == 2 {
		return []Pairing{{Team1: 1, Team2: 2}}, nil
	}

	pairs := make([]Pairing, 0, teamCount*(teamCount-1)/2)
	for i := 1; i <= teamCount; i++ {
		for j := i + 1; j <= teamCount; j++ {
			pairs = append(pairs, Pairing{Team1: i, Team2: j})
		}
	}
	return pairs, nil
}
