// ABOUTME: Per-conversation mutual exclusion for session exchanges
// ABOUTME: Refcounted keyed mutexes so idle conversations hold no memory

package session

import "sync"

// gate serializes work per conversation key. Locks are created on demand
// and dropped once the last holder releases them.
type gate struct {
	mu    sync.Mutex
	locks map[string]*gateLock
}

type gateLock struct {
	mu   sync.Mutex
	refs int
}

func newGate() *gate {
	return &gate{locks: make(map[string]*gateLock)}
}

// lock acquires the mutex for key and returns its release func.
func (g *gate) lock(key string) func() {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &gateLock{}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}
}
