// Package services coordinates the lineage rules with storage and search.
package services

import "sync"

// TreeLocks serializes operations per tree. Operations on different trees
// run concurrently.
type TreeLocks struct {
	mu    sync.Mutex
	locks map[string]*treeLock
}

type treeLock struct {
	mu   sync.Mutex
	refs int
}

// NewTreeLocks creates an empty lock set.
func NewTreeLocks() *TreeLocks {
	return &TreeLocks{locks: make(map[string]*treeLock)}
}

// Lock blocks until the tree is free and returns the function releasing it.
func (l *TreeLocks) Lock(treeID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[treeID]
	if !ok {
		lock = &treeLock{}
		l.locks[treeID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, treeID)
		}
		l.mu.Unlock()
	}
}

// held returns the number of trees with a holder or waiter.
func (l *TreeLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
