package store

import "sync"

// Guard hands out one exclusive critical section per username so that
// read-modify-write cycles against the same account are serialized.
// Entries are created lazily and never dropped; the set of usernames is
// small and bounded by registration.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGuard() *Guard {
	return &Guard{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the per-username lock and returns the release func.
func (g *Guard) Lock(username string) func() {
	g.mu.Lock()
	l, ok := g.locks[username]
	if !ok {
		l = &sync.Mutex{}
		g.locks[username] = l
	}
	g.mu.Unlock()
	l.Lock()
	return l.Unlock
}
