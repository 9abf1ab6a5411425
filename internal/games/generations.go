package games

import "sync"

// statsGenerations counts stats invalidations per team. A stats computation
// compares generations before and after caching its result to detect a score
// write that landed in between.
type statsGenerations struct {
	mu   sync.Mutex
	gens map[int64]uint64
}

func newStatsGenerations() *statsGenerations {
	return &statsGenerations{gens: make(map[int64]uint64)}
}

func (g *statsGenerations) current(teamID int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[teamID]
}

func (g *statsGenerations) bump(teamID int64) {
	g.mu.Lock()
	g.gens[teamID]++
	g.mu.Unlock()
}
