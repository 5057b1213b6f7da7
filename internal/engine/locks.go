package engine

import "sync"

// lockTable hands out one mutex per entity ID so operations on
// different rooms (or tenants) never block each other, while
// read-check-write sequences on the same entity are serialized.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*sync.Mutex)}
}

func (t *lockTable) get(id int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// lock acquires the mutex for id and returns its unlock func.
func (t *lockTable) lock(id int64) func() {
	l := t.get(id)
	l.Lock()
	return l.Unlock
}

// lockPair acquires two entity locks in ascending ID order so that
// concurrent transfers between the same pair of rooms cannot deadlock.
// When both IDs are equal, the lock is taken once.
func (t *lockTable) lockPair(a, b int64) func() {
	if a == b {
		return t.lock(a)
	}
	if a > b {
		a, b = b, a
	}
	unlockA := t.lock(a)
	unlockB := t.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}
