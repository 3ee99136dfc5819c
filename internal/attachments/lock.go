package attachments

import (
	"sync"

	"github.com/mrlokans/librarian/internal/entities"
)

// ownerLocks serialises attach and detach per owner within this process.
// Entries are reference counted and dropped once no caller holds them.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[entities.OwnerRef]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[entities.OwnerRef]*ownerLock)}
}

// lock blocks until the owner is free and returns the matching unlock.
func (l *ownerLocks) lock(owner entities.OwnerRef) func() {
	l.mu.Lock()
	ol, ok := l.locks[owner]
	if !ok {
		ol = &ownerLock{}
		l.locks[owner] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()

	return func() {
		ol.mu.Unlock()

		l.mu.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.locks, owner)
		}
		l.mu.Unlock()
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
