package milk

import "sync"

type farmerKey struct {
	ownerID  string
	farmerID int64
}

type farmerLock struct {
	mu   sync.Mutex
	refs int
}

// farmerLocks serializes mutations of one farmer inside this process.
// Entries are dropped once nobody holds or waits for them.
type farmerLocks struct {
	mu    sync.Mutex
	locks map[farmerKey]*farmerLock
}

func newFarmerLocks() *farmerLocks {
	return &farmerLocks{locks: make(map[farmerKey]*farmerLock)}
}

func (l *farmerLocks) lock(ownerID string, farmerID int64) (unlock func()) {
	key := farmerKey{ownerID: ownerID, farmerID: farmerID}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &farmerLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *farmerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
