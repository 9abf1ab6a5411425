package ledger

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/matchmaking"
)

const legacyTeamSet = `[
  {"teamNumber":1,"players":[{"id":"u1","name":"Ana","tier":"A","isGuest":false}]},
  {"teamNumber":2,"players":[{"id":"guest-1","name":"Bo","tier":"C","isGuest":true}]}
]`

func TestDecodeEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		l, err := Decode([]byte(raw), nil)
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if len(l.Rounds) != 0 || l.Origin != OriginEmpty || l.NeedsPersist() {
			t.Fatalf("decode %q: expected empty ledger, got %+v", raw, l)
		}
	}
}

func TestDecodeLegacyTeamSetIsStableAcrossReads(t *testing.T) {
	first, err := Decode(nil, []byte(legacyTeamSet))
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	second, err := Decode(nil, []byte(legacyTeamSet))
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("legacy migration differs between reads (-first +second):\n%s", diff)
	}
	if !first.NeedsPersist() || first.Origin != OriginLegacyTeamSet {
		t.Fatalf("expected a legacy team set origin, got %v", first.Origin)
	}

	if len(first.Rounds) != 1 {
		t.Fatalf("expected one migrated round, got %d", len(first.Rounds))
	}
	round := first.Rounds[0]
	if round.RoundNumber != 1 || round.MaxQuarter != 1 || len(round.QuarterScores) != 0 {
		t.Fatalf("unexpected migrated round: %+v", round)
	}
	wantTeams := []matchmaking.TeamAssignment{
		{TeamNumber: 1, Players: []matchmaking.Player{{ID: "u1", Name: "Ana", Tier: "A"}}},
		{TeamNumber: 2, Players: []matchmaking.Player{{ID: "guest-1", Name: "Bo", Tier: "C", IsGuest: true}}},
	}
	if diff := cmp.Diff(wantTeams, round.Teams); diff != "" {
		t.Fatalf("migrated teams mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePrefersRoundsOverLegacyTeamSet(t *testing.T) {
	var l Ledger
	l.AppendRound(testTeams(2), 2, testNow)
	l.AppendRound(testTeams(3), 3, testNow)
	data, err := Encode(l)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data, []byte(legacyTeamSet))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Origin != OriginCurrent || decoded.NeedsPersist() {
		t.Fatalf("expected current origin, got %v", decoded.Origin)
	}
	if diff := cmp.Diff(l.Rounds, decoded.Rounds); diff != "" {
		t.Fatalf("rounds changed across encode/decode (-want +got):\n%s", diff)
	}
}

func TestDecodeVersionOneUnifiesScoreMaps(t *testing.T) {
	raw := `[{
		"id":"round-1700000000000-1",
		"roundNumber":1,
		"teams":[{"teamNumber":1,"players":[]},{"teamNumber":2,"players":[]}],
		"quarterScores":[
			{"quarter":1,"matches":[{"team1":1,"team2":2,"score1":3,"score2":2}]},
			{"quarter":2,"scores":{"1":4,"2":6}}
		],
		"maxQuarter":1,
		"createdAt":"2024-05-01T10:00:00.000Z"
	}]`

	l, err := Decode([]byte(raw), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if l.Origin != OriginLegacyRounds || !l.NeedsPersist() {
		t.Fatalf("expected legacy rounds origin, got %v", l.Origin)
	}
	round := l.Rounds[0]
	q, ok := round.Quarter(2)
	if !ok {
		t.Fatal("quarter 2 missing")
	}
	if diff := cmp.Diff([]MatchScore{{Team1: 1, Team2: 2, Score1: 4, Score2: 6}}, q.Matches); diff != "" {
		t.Fatalf("score map not unified (-want +got):\n%s", diff)
	}
	if q.TeamScores != nil {
		t.Fatalf("expected score map cleared, got %v", q.TeamScores)
	}
	if round.MaxQuarter != 2 {
		t.Fatalf("expected max quarter raised to 2, got %d", round.MaxQuarter)
	}
	if round.TeamTotal(1) != 7 || round.TeamTotal(2) != 8 {
		t.Fatalf("unexpected totals %d/%d", round.TeamTotal(1), round.TeamTotal(2))
	}
}

func TestDecodeKeepsScoreMapsOfLargerRoundsReadOnly(t *testing.T) {
	raw := `[{
		"id":"r1","roundNumber":1,
		"teams":[{"teamNumber":1,"players":[]},{"teamNumber":2,"players":[]},{"teamNumber":3,"players":[]}],
		"quarterScores":[{"quarter":1,"scores":{"1":2,"3":5}}],
		"maxQuarter":1
	}]`

	l, err := Decode([]byte(raw), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	round := l.Rounds[0]
	if round.TeamTotal(3) != 5 {
		t.Fatalf("expected team 3 total 5, got %d", round.TeamTotal(3))
	}
	if _, err := l.SetMatchScore("r1", 1, 1, 2, 1, 1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected read-only legacy quarter, got %v", err)
	}
	want := []ScoreEntry{{TeamNumber: 1, Quarter: 1, Score: 2}, {TeamNumber: 3, Quarter: 1, Score: 5}}
	if diff := cmp.Diff(want, FlatScores(round)); diff != "" {
		t.Fatalf("flat scores mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCorruptContent(t *testing.T) {
	cases := []struct {
		name   string
		rounds string
		legacy string
	}{
		{"truncated rounds", `[{"id":`, ""},
		{"scalar rounds", `42`, ""},
		{"future version", `{"version":9,"rounds":[]}`, ""},
		{"truncated legacy", "", `[{"teamNumber":`},
		{"legacy object", "", `{"teamNumber":1}`},
	}
	for _, tc := range cases {
		l, err := Decode([]byte(tc.rounds), []byte(tc.legacy))
		if !errors.Is(err, apperr.ErrCorruptState) {
			t.Fatalf("%s: expected corrupt state, got %v (ledger %+v)", tc.name, err, l)
		}
	}
}

func TestEncodeEmptyLedgerWritesEnvelope(t *testing.T) {
	data, err := Encode(Ledger{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"version":2,"rounds":[]}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}
