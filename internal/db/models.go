package db

import (
	"database/sql"
	"time"
)

const (
	GameStatusScheduled = "scheduled"
	GameStatusFinished  = "finished"
	GameStatusCancelled = "cancelled"

	RoleManager = "manager"
	RoleMember  = "member"

	AttendanceAttending = "attending"
	AttendanceAbsent    = "absent"
)

type Game struct {
	ID              int64
	TeamID          int64
	Title           string
	ScheduledAt     time.Time
	Status          string
	TeamCount       int64
	PlayersPerTeam  int64
	RoundsJSON      sql.NullString
	LegacyTeamsJSON sql.NullString
	Revision        int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TeamMember struct {
	TeamID int64
	UserID int64
	Name   string
	Role   string
	Tier   string
}

type GameGuest struct {
	ID     int64
	GameID int64
	Name   string
	Tier   string
}

type AttendanceRow struct {
	GameID int64
	UserID int64
	Status string
}

// LegacyScore is a row of the scores table kept for pre-ledger clients.
type LegacyScore struct {
	GameID     int64
	TeamNumber int64
	Quarter    int64
	Score      int64
}

type MVPVote struct {
	GameID   int64
	VoterID  int64
	PlayerID string
}
