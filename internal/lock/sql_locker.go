package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

const (
	// DefaultLease is how long a lock row stays valid. A holder that
	// crashes loses the lock once the lease lapses.
	DefaultLease = 10 * time.Minute

	defaultMinPoll = 25 * time.Millisecond
	defaultMaxPoll = time.Second
)

// SQLLocker coordinates lock holders across processes sharing a database.
// Waiters inside one process queue on a local Manager first so only one of
// them polls the lock row.
type SQLLocker struct {
	store *db.Store
	owner string
	lease time.Duration
	local *Manager

	now func() time.Time
}

// NewSQLLocker creates a locker with a fresh owner id.
func NewSQLLocker(store *db.Store, lease time.Duration) *SQLLocker {
	if lease <= 0 {
		lease = DefaultLease
	}

	return &SQLLocker{
		store: store,
		owner: uuid.NewString(),
		lease: lease,
		local: NewManager(),
		now:   time.Now,
	}
}

// Owner returns the id written into lock rows held by this locker.
func (s *SQLLocker) Owner() string {
	return s.owner
}

// Lock blocks until this process owns the key row.
func (s *SQLLocker) Lock(ctx context.Context, key string) error {
	if err := s.local.Lock(ctx, key); err != nil {
		return err
	}

	poll := defaultMinPoll
	for {
		acquired, err := s.tryAcquire(ctx, key)
		if err != nil {
			_ = s.local.Unlock(ctx, key)
			return err
		}
		if acquired {
			return nil
		}

		select {
		case <-time.After(poll):
		case <-ctx.Done():
			_ = s.local.Unlock(ctx, key)
			return ctx.Err()
		}

		poll *= 2
		if poll > defaultMaxPoll {
			poll = defaultMaxPoll
		}
	}
}

func (s *SQLLocker) tryAcquire(ctx context.Context, key string) (bool,
	error) {

	var rows int64
	err := s.store.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		now := s.now()

		var err error
		rows, err = q.TryAcquireLock(ctx, sqlc.TryAcquireLockParams{
			LockKey:    key,
			Owner:      s.owner,
			AcquiredAt: now.UnixNano(),
			ExpiresAt:  now.Add(s.lease).UnixNano(),
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("acquire lock row %s: %w", key, err)
	}

	return rows == 1, nil
}

// Unlock deletes the key row if this locker still owns it.
func (s *SQLLocker) Unlock(ctx context.Context, key string) error {
	defer func() {
		_ = s.local.Unlock(ctx, key)
	}()

	var rows int64
	err := s.store.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		var err error
		rows, err = q.ReleaseLock(ctx, sqlc.ReleaseLockParams{
			LockKey: key,
			Owner:   s.owner,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("release lock row %s: %w", key, err)
	}
	if rows == 0 {
		log.WarnS(ctx, "Lock lease lapsed before release", nil,
			"key", key, "owner", s.owner)
	}

	return nil
}

var _ Locker = (*SQLLocker)(nil)
