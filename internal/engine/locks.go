package engine

import (
	"math/big"
	"sync"
)

// positionLocks serializes mutations per position id. Operations on
// disjoint positions proceed in parallel.
type positionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// acquire locks the position and returns its unlock function.
func (l *positionLocks) acquire(id *big.Int) func() {
	key := id.String()

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
