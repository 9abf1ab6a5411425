// Package cache holds the team statistics cache used by the games service.
package cache

import (
	"context"
	"strconv"
)

const statsKeyPrefix = "rollcall:stats:team:"

// Stats caches one JSON document per team. Get reports false on a miss.
type Stats interface {
	Get(ctx context.Context, teamID int64, dst any) (bool, error)
	Set(ctx context.Context, teamID int64, value any) error
	Invalidate(ctx context.Context, teamID int64) error
}

func StatsKey(teamID int64) string {
	return statsKeyPrefix + strconv.FormatInt(teamID, 10)
}

// Noop is used when redis is not configured; every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, int64, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, int64, any) error         { return nil }
func (Noop) Invalidate(context.Context, int64) error       { return nil }
