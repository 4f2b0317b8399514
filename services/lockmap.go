package services

import "sync"

// matchLocks serializes all command processing per match: one writer per
// match, no lock shared across matches. Both the state machine and the ledger
// take the same lock so a transition and an append can never interleave on
// one fixture. Locks for finished matches are cheap enough to keep around.
type matchLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewMatchLocks() *matchLocks {
	return &matchLocks{locks: make(map[int]*sync.Mutex)}
}

// acquire blocks until the match's writer lock is held and returns the
// release func.
func (l *matchLocks) acquire(matchID int) func() {
	l.mu.Lock()
	lock, ok := l.locks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[matchID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
