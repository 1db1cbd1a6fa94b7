package application

import "sync"

// GameLocks provides per-game mutual exclusion. Vote admission counter
// updates and the whole settlement transition for one game run under the same
// lock; different games proceed fully independently.
type GameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGameLocks() *GameLocks {
	return &GameLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for gameID is held and returns the release
// func. Lock entries are never evicted; the table grows with the number of
// distinct games seen by this process, which is bounded by the worker batch
// and API traffic.
func (g *GameLocks) Acquire(gameID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[gameID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
