package progress

import (
	"context"
	"fmt"
	"sync"
)

// keyedMutex serializes page-delta transactions per (user, book) pair.
// It is the SQLite stand-in for row-level SELECT ... FOR UPDATE:
// operations on different pairs never contend, two operations on the same
// pair queue, and a caller whose context expires while waiting gets
// ErrBusy with zero effect.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func lockKey(userID, bookID uint) string {
	return fmt.Sprintf("%d:%d", userID, bookID)
}

// acquire blocks until the key's lock is held or the context is done.
// The returned release function must be called exactly once.
func (m *keyedMutex) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			m.release(key, entry)
		}, nil
	case <-ctx.Done():
		m.release(key, entry)
		return nil, ErrBusy
	}
}

func (m *keyedMutex) release(key string, entry *lockEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
