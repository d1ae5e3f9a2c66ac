package tutor

import (
	"sync"

	"github.com/google/uuid"
)

// turnLocks serializes turns per session. Acquire is a try-lock: a
// second concurrent turn for the same session is refused, not queued.
type turnLocks struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newTurnLocks() *turnLocks {
	return &turnLocks{active: make(map[uuid.UUID]struct{})}
}

func (l *turnLocks) acquire(sessionID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[sessionID]; busy {
		return false
	}
	l.active[sessionID] = struct{}{}
	return true
}

func (l *turnLocks) release(sessionID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sessionID)
}
