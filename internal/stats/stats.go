// Package stats folds recorded scores, attendance and MVP votes into the
// per-team figures shown on a team's statistics page.
package stats

import (
	"math"
	"sort"

	"github.com/codr1/Rollcall/internal/ledger"
)

const mvpRankingLimit = 10

type Outcome int

const (
	Tie Outcome = iota
	Team1Wins
	Team2Wins
)

func (o Outcome) String() string {
	switch o {
	case Team1Wins:
		return "team1"
	case Team2Wins:
		return "team2"
	default:
		return "tie"
	}
}

// MatchTotal sums the scores recorded for teamNumber.
func MatchTotal(entries []ledger.ScoreEntry, teamNumber int) int {
	total := 0
	for _, entry := range entries {
		if entry.TeamNumber == teamNumber {
			total += entry.Score
		}
	}
	return total
}

func Winner(team1Total, team2Total int) Outcome {
	switch {
	case team1Total > team2Total:
		return Team1Wins
	case team2Total > team1Total:
		return Team2Wins
	default:
		return Tie
	}
}

// FinishedGame is one completed game reduced to what the win-rate rollup
// needs: how many teams played and the flat scores they recorded.
type FinishedGame struct {
	GameID    int64
	TeamCount int
	Scores    []ledger.ScoreEntry
}

type TeamWinRate struct {
	TeamNumber int     `json:"teamNumber"`
	Wins       int     `json:"wins"`
	TotalGames int     `json:"totalGames"`
	WinRate    float64 `json:"winRate"`
}

// TeamWinRates credits each decided game to the single team with the highest
// total. Games without scores and games where the top total is shared are left
// out of TotalGames, which is the same for every team.
func TeamWinRates(games []FinishedGame) []TeamWinRate {
	wins := map[int]int{}
	maxTeams := 0
	decided := 0

	for _, game := range games {
		if game.TeamCount < 2 || len(game.Scores) == 0 {
			continue
		}
		maxTeams = max(maxTeams, game.TeamCount)

		best, bestTeam, shared := math.MinInt, 0, false
		for team := 1; team <= game.TeamCount; team++ {
			total := MatchTotal(game.Scores, team)
			switch {
			case total > best:
				best, bestTeam, shared = total, team, false
			case total == best:
				shared = true
			}
		}
		if shared {
			continue
		}
		wins[bestTeam]++
		decided++
	}

	rates := make([]TeamWinRate, 0, maxTeams)
	for team := 1; team <= maxTeams; team++ {
		rates = append(rates, TeamWinRate{
			TeamNumber: team,
			Wins:       wins[team],
			TotalGames: decided,
			WinRate:    percentage(wins[team], decided),
		})
	}
	return rates
}

// percentage rounds part/whole*100 to one decimal place; 0 when whole is 0.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// AttendanceRate is attended/eligible as a percentage with one decimal.
// The second result is false when there were no eligible games.
func AttendanceRate(attended, eligible int) (float64, bool) {
	if eligible <= 0 {
		return 0, false
	}
	return percentage(attended, eligible), true
}

type Member struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type AttendanceRecord struct {
	GameID    int64
	UserID    int64
	Attending bool
}

type MemberAttendance struct {
	Member
	Attended int     `json:"attended"`
	Eligible int     `json:"eligible"`
	Rate     float64 `json:"rate"`
	HasRate  bool    `json:"hasRate"`
}

// AttendanceRates counts, for each member, the finished games they marked
// themselves attending. Records for games outside finishedGameIDs are ignored.
func AttendanceRates(members []Member, finishedGameIDs []int64, records []AttendanceRecord) []MemberAttendance {
	finished := make(map[int64]struct{}, len(finishedGameIDs))
	for _, id := range finishedGameIDs {
		finished[id] = struct{}{}
	}

	attended := map[int64]map[int64]struct{}{}
	for _, record := range records {
		if !record.Attending {
			continue
		}
		if _, ok := finished[record.GameID]; !ok {
			continue
		}
		games, ok := attended[record.UserID]
		if !ok {
			games = map[int64]struct{}{}
			attended[record.UserID] = games
		}
		games[record.GameID] = struct{}{}
	}

	out := make([]MemberAttendance, 0, len(members))
	for _, member := range members {
		count := len(attended[member.UserID])
		rate, ok := AttendanceRate(count, len(finished))
		out = append(out, MemberAttendance{
			Member:   member,
			Attended: count,
			Eligible: len(finished),
			Rate:     rate,
			HasRate:  ok,
		})
	}
	return out
}

type MVPVote struct {
	GameID   int64
	VoterID  int64
	PlayerID string
}

type MVPTally struct {
	PlayerID     string `json:"playerId"`
	TotalVotes   int    `json:"totalVotes"`
	GamesVotedIn int    `json:"gamesVotedIn"`
}

// MVPRanking returns the ten players with the most votes. Equal vote counts
// are ordered by player id.
func MVPRanking(votes []MVPVote) []MVPTally {
	totals := map[string]int{}
	games := map[string]map[int64]struct{}{}
	for _, vote := range votes {
		totals[vote.PlayerID]++
		if games[vote.PlayerID] == nil {
			games[vote.PlayerID] = map[int64]struct{}{}
		}
		games[vote.PlayerID][vote.GameID] = struct{}{}
	}

	ranking := make([]MVPTally, 0, len(totals))
	for playerID, total := range totals {
		ranking = append(ranking, MVPTally{
			PlayerID:     playerID,
			TotalVotes:   total,
			GamesVotedIn: len(games[playerID]),
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].TotalVotes != ranking[j].TotalVotes {
			return ranking[i].TotalVotes > ranking[j].TotalVotes
		}
		return ranking[i].PlayerID < ranking[j].PlayerID
	})
	if len(ranking) > mvpRankingLimit {
		ranking = ranking[:mvpRankingLimit]
	}
	return ranking
}
