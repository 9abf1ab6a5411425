package ledger

import "sort"

// ScoreEntry is one row of the flat per-team score shape: the score a team
// number made in a quarter. Older clients and the legacy scores table use it.
type ScoreEntry struct {
	TeamNumber int `json:"teamNumber"`
	Quarter    int `json:"quarter"`
	Score      int `json:"score"`
}

// FlatScores projects a round's quarters onto ScoreEntry rows, one per team
// that has a recorded side in the quarter, ordered by quarter then team.
func FlatScores(r Round) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(r.QuarterScores)*len(r.Teams))
	for _, q := range orderedQuarters(r.QuarterScores) {
		for team := 1; team <= teamCeiling(r, q); team++ {
			if !quarterHasTeam(q, team) {
				continue
			}
			entries = append(entries, ScoreEntry{
				TeamNumber: team,
				Quarter:    q.Quarter,
				Score:      quarterTeamScore(q, team),
			})
		}
	}
	return entries
}

func orderedQuarters(quarters []QuarterScore) []QuarterScore {
	out := make([]QuarterScore, len(quarters))
	copy(out, quarters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quarter < out[j].Quarter
	})
	return out
}

func teamCeiling(r Round, q QuarterScore) int {
	ceiling := len(r.Teams)
	for team := range q.TeamScores {
		ceiling = max(ceiling, team)
	}
	return ceiling
}

func quarterHasTeam(q QuarterScore, team int) bool {
	if _, ok := q.TeamScores[team]; ok {
		return true
	}
	for _, m := range q.Matches {
		if m.Team1 == team || m.Team2 == team {
			return true
		}
	}
	return false
}
