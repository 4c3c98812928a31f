package ledger

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker hands out exclusive, per-account locks. Accounts never contend with
// each other; entries are dropped once nobody holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*accountLock)}
}

// Acquire blocks until the account's lock is held or ctx is done. On success
// the returned func releases the lock and must be called exactly once. On
// failure the lock is not held.
func (l *Locker) Acquire(ctx context.Context, accountID string) (func(), error) {
	lk := l.ref(accountID)

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.unref(accountID, lk)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lk.sem.Release(1)
			l.unref(accountID, lk)
		})
	}, nil
}

func (l *Locker) ref(accountID string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, ok := l.locks[accountID]
	if !ok {
		lk = &accountLock{sem: semaphore.NewWeighted(1)}
		l.locks[accountID] = lk
	}
	lk.refs++
	return lk
}

func (l *Locker) unref(accountID string, lk *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, accountID)
	}
}

// size reports how many accounts currently have a lock entry.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
