package dispatcher

import "sync"

// userLocks serializes request handling per user. Events for different users
// proceed concurrently; events for the same user queue up FIFO.
type userLocks struct {
	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{users: make(map[string]*sync.Mutex)}
}

// lock acquires the user's mutex and returns its unlock function.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
