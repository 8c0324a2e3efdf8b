// Package lock provides named advisory locks. Work on a review, whether it
// comes from an edit, a commit or a queued event, is serialised by holding
// the review's key.
package lock

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ReviewKeyPrefix prefixes review lock keys.
const ReviewKeyPrefix = "review-change-"

// ReviewKey returns the lock key for a review or change id.
func ReviewKey(id int64) string {
	return ReviewKeyPrefix + strconv.FormatInt(id, 10)
}

// Locker is a named mutual-exclusion lock. Lock blocks until the key is free
// or ctx is done. Unlock must be called exactly once per successful Lock.
type Locker interface {
	Lock(ctx context.Context, key string) error
	Unlock(ctx context.Context, key string) error
}

// WithLock runs fn while holding key and always releases it. An unlock
// failure is reported only when fn succeeded.
func WithLock(ctx context.Context, l Locker, key string,
	fn func() error) (err error) {

	if err := l.Lock(ctx, key); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}

	defer func() {
		unlockErr := l.Unlock(context.WithoutCancel(ctx), key)
		if unlockErr == nil {
			return
		}

		log.ErrorS(ctx, "Unable to release lock", unlockErr,
			"key", key)
		if err == nil {
			err = fmt.Errorf("release lock %s: %w", key, unlockErr)
		}
	}()

	return fn()
}

// Manager is an in-process Locker. Each key maps to a weighted semaphore of
// size one that lives only while someone holds or waits for it.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewManager returns an empty lock table.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*entry)}
}

// Lock blocks until key is held.
func (m *Manager) Lock(ctx context.Context, key string) error {
	e := m.ref(key)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		m.unref(key)
		return err
	}

	log.TraceS(ctx, "Lock acquired", "key", key)

	return nil
}

// Unlock releases key. Unlocking a key that is not held is an error.
func (m *Manager) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	e, ok := m.locks[key]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("lock %s is not held", key)
	}

	e.sem.Release(1)
	m.unref(key)

	log.TraceS(ctx, "Lock released", "key", key)

	return nil
}

// Held reports how many keys currently have holders or waiters.
func (m *Manager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.locks)
}

func (m *Manager) ref(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		m.locks[key] = e
	}
	e.refs++

	return e
}

func (m *Manager) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(m.locks, key)
	}
}

var _ Locker = (*Manager)(nil)
