package stats

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codr1/Rollcall/internal/ledger"
)

func twoTeamGame(id int64, team1, team2 int) FinishedGame {
	return FinishedGame{
		GameID:    id,
		TeamCount: 2,
		Scores: []ledger.ScoreEntry{
			{TeamNumber: 1, Quarter: 1, Score: team1},
			{TeamNumber: 2, Quarter: 1, Score: team2},
		},
	}
}

func TestMatchTotalSumsQuarters(t *testing.T) {
	entries := []ledger.ScoreEntry{
		{TeamNumber: 1, Quarter: 1, Score: 3},
		{TeamNumber: 2, Quarter: 1, Score: 2},
		{TeamNumber: 1, Quarter: 2, Score: 4},
	}
	if got := MatchTotal(entries, 1); got != 7 {
		t.Fatalf("team 1 total: got %d want 7", got)
	}
	if got := MatchTotal(entries, 3); got != 0 {
		t.Fatalf("team 3 total: got %d want 0", got)
	}
}

func TestWinner(t *testing.T) {
	if Winner(3, 1) != Team1Wins || Winner(1, 3) != Team2Wins || Winner(2, 2) != Tie {
		t.Fatal("unexpected winner outcomes")
	}
	if Tie.String() != "tie" || Team1Wins.String() != "team1" {
		t.Fatalf("unexpected outcome names %s %s", Tie, Team1Wins)
	}
}

func TestTeamWinRatesExcludesTiedGames(t *testing.T) {
	games := []FinishedGame{
		twoTeamGame(1, 10, 8),
		twoTeamGame(2, 5, 5),
		twoTeamGame(3, 7, 12),
	}

	want := []TeamWinRate{
		{TeamNumber: 1, Wins: 1, TotalGames: 2, WinRate: 50.0},
		{TeamNumber: 2, Wins: 1, TotalGames: 2, WinRate: 50.0},
	}
	if diff := cmp.Diff(want, TeamWinRates(games)); diff != "" {
		t.Fatalf("win rates mismatch (-want +got):\n%s", diff)
	}
}

func TestTeamWinRatesRoundsToOneDecimal(t *testing.T) {
	games := []FinishedGame{
		twoTeamGame(1, 1, 0),
		twoTeamGame(2, 0, 1),
		twoTeamGame(3, 0, 1),
		{GameID: 4, TeamCount: 2},
	}

	rates := TeamWinRates(games)
	if rates[0].WinRate != 33.3 || rates[1].WinRate != 66.7 {
		t.Fatalf("unexpected rates %+v", rates)
	}
	if rates[0].TotalGames != 3 {
		t.Fatalf("game without scores must be skipped, total %d", rates[0].TotalGames)
	}
}

func TestTeamWinRatesThreeTeamsSharedMax(t *testing.T) {
	games := []FinishedGame{
		{GameID: 1, TeamCount: 3, Scores: []ledger.ScoreEntry{
			{TeamNumber: 1, Quarter: 1, Score: 4},
			{TeamNumber: 2, Quarter: 1, Score: 4},
			{TeamNumber: 3, Quarter: 1, Score: 1},
		}},
		{GameID: 2, TeamCount: 3, Scores: []ledger.ScoreEntry{
			{TeamNumber: 3, Quarter: 1, Score: 2},
		}},
	}

	want := []TeamWinRate{
		{TeamNumber: 1, TotalGames: 1},
		{TeamNumber: 2, TotalGames: 1},
		{TeamNumber: 3, Wins: 1, TotalGames: 1, WinRate: 100},
	}
	if diff := cmp.Diff(want, TeamWinRates(games)); diff != "" {
		t.Fatalf("win rates mismatch (-want +got):\n%s", diff)
	}
}

func TestTeamWinRatesNoGames(t *testing.T) {
	if rates := TeamWinRates(nil); len(rates) != 0 {
		t.Fatalf("expected no rows, got %+v", rates)
	}
}

func TestAttendanceRate(t *testing.T) {
	if rate, ok := AttendanceRate(2, 3); !ok || rate != 66.7 {
		t.Fatalf("got %v %v", rate, ok)
	}
	if _, ok := AttendanceRate(0, 0); ok {
		t.Fatal("expected no rate without eligible games")
	}
}

func TestAttendanceRates(t *testing.T) {
	members := []Member{{UserID: 1, Name: "Ana"}, {UserID: 2, Name: "Bo"}}
	records := []AttendanceRecord{
		{GameID: 10, UserID: 1, Attending: true},
		{GameID: 11, UserID: 1, Attending: true},
		{GameID: 12, UserID: 1, Attending: true}, // not finished
		{GameID: 10, UserID: 2, Attending: false},
		{GameID: 11, UserID: 2, Attending: true},
	}

	got := AttendanceRates(members, []int64{10, 11}, records)
	want := []MemberAttendance{
		{Member: members[0], Attended: 2, Eligible: 2, Rate: 100, HasRate: true},
		{Member: members[1], Attended: 1, Eligible: 2, Rate: 50, HasRate: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attendance mismatch (-want +got):\n%s", diff)
	}

	none := AttendanceRates(members, nil, records)
	if none[0].HasRate || none[0].Eligible != 0 {
		t.Fatalf("expected no rate without finished games, got %+v", none[0])
	}
}

func TestMVPRanking(t *testing.T) {
	votes := []MVPVote{
		{GameID: 1, VoterID: 1, PlayerID: "u2"},
		{GameID: 1, VoterID: 2, PlayerID: "u2"},
		{GameID: 2, VoterID: 1, PlayerID: "u2"},
		{GameID: 2, VoterID: 2, PlayerID: "u1"},
		{GameID: 2, VoterID: 3, PlayerID: "u3"},
	}

	want := []MVPTally{
		{PlayerID: "u2", TotalVotes: 3, GamesVotedIn: 2},
		{PlayerID: "u1", TotalVotes: 1, GamesVotedIn: 1},
		{PlayerID: "u3", TotalVotes: 1, GamesVotedIn: 1},
	}
	if diff := cmp.Diff(want, MVPRanking(votes)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestMVPRankingCapsAtTen(t *testing.T) {
	var votes []MVPVote
	for i := 0; i < 15; i++ {
		for v := 0; v <= i; v++ {
			votes = append(votes, MVPVote{GameID: 1, VoterID: int64(v), PlayerID: fmt.Sprintf("p%02d", i)})
		}
	}

	ranking := MVPRanking(votes)
	if len(ranking) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(ranking))
	}
	if ranking[0].PlayerID != "p14" || ranking[0].TotalVotes != 15 {
		t.Fatalf("unexpected leader %+v", ranking[0])
	}
	if ranking[9].PlayerID != "p05" {
		t.Fatalf("unexpected tenth place %+v", ranking[9])
	}
}
