// Package queue is the durable task queue between review mutations and the
// worker pool. Delivery is at least once and tasks from different producers
// are not ordered relative to each other.
package queue

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

// NewTask describes a task to enqueue.
type NewTask struct {
	Type     TaskType
	EntityID string
	Payload  any

	// NotBefore delays delivery. Unset means deliver as soon as possible.
	NotBefore fn.Option[time.Time]

	// IdempotencyKey deduplicates producers that may retry. A random key
	// is used when empty.
	IdempotencyKey string
}

// Store provides access to the task queue. It wraps a db.Store which in
// turn uses db.TransactionExecutor with the sqlc generated queries.
type Store struct {
	dbStore *db.Store
	cfg     Config
	now     func() time.Time
}

// NewStore creates a queue over an open, migrated database.
func NewStore(dbStore *db.Store, cfg Config) *Store {
	return &Store{
		dbStore: dbStore,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Enqueue adds a task to the queue and returns its id. It returns
// ErrQueueFull if the number of undelivered tasks has reached MaxPending
// and ErrDuplicateTask if the idempotency key was seen before.
func (s *Store) Enqueue(ctx context.Context, t NewTask) (int64, error) {
	payload, err := MarshalPayload(t.Payload)
	if err != nil {
		return 0, err
	}

	key := t.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	now := s.now()
	notBefore := t.NotBefore.UnwrapOr(now)

	var id int64
	err = s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		count, err := q.CountPendingTasks(ctx)
		if err != nil {
			return fmt.Errorf("count pending: %w", err)
		}
		if int(count) >= s.cfg.MaxPending {
			return ErrQueueFull
		}

		id, err = q.EnqueueTask(ctx, sqlc.EnqueueTaskParams{
			IdempotencyKey: key,
			TaskType:       string(t.Type),
			EntityID:       t.EntityID,
			PayloadJson:    payload,
			NotBefore:      notBefore.Unix(),
			CreatedAt:      now.Unix(),
			ExpiresAt:      notBefore.Add(s.cfg.DefaultTTL).Unix(),
		})

		return err
	})
	switch {
	case db.IsUniqueConstraintError(err):
		return 0, fmt.Errorf("%w: %s", ErrDuplicateTask, key)

	case err != nil:
		return 0, fmt.Errorf("enqueue %s: %w", t.Type, err)
	}

	log.DebugS(ctx, "Enqueued task", "id", id, "type", t.Type,
		"entity", t.EntityID, "not_before", notBefore)

	return id, nil
}

// List returns up to limit undelivered tasks in due order without changing
// their status.
func (s *Store) List(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task

	err := s.dbStore.WithReadTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		rows, err := q.ListTasks(ctx, int64(limit))
		if err != nil {
			return err
		}
		tasks = tasksFromSqlc(rows)

		return nil
	})

	return tasks, err
}

// Drain atomically claims up to limit due tasks, marking them delivering,
// and returns them in due order. Concurrent drains never claim the same
// task.
func (s *Store) Drain(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task

	err := s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		rows, err := q.ClaimDueTasks(ctx, sqlc.ClaimDueTasksParams{
			Now:   s.now().Unix(),
			Limit: int64(limit),
		})
		if err != nil {
			return err
		}
		tasks = tasksFromSqlc(rows)

		return nil
	})
	if err != nil {
		return nil, err
	}

	// RETURNING does not promise any order.
	slices.SortFunc(tasks, func(a, b Task) int {
		if c := a.NotBefore.Compare(b.NotBefore); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return tasks, nil
}

// MarkDelivered marks a task as successfully delivered.
func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	return s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		return q.MarkTaskDelivered(ctx, id)
	})
}

// MarkFailed records a failed attempt. The task returns to pending until it
// has used up MaxAttempts, after which it is parked as failed.
func (s *Store) MarkFailed(ctx context.Context, id int64,
	errMsg string) error {

	return s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		return q.MarkTaskFailed(ctx, sqlc.MarkTaskFailedParams{
			LastError:   toSqlcNullString(errMsg),
			MaxAttempts: int64(s.cfg.MaxAttempts),
			ID:          id,
		})
	})
}

// Reschedule returns a claimed task to pending, due at notBefore. It does
// not count as a failed attempt.
func (s *Store) Reschedule(ctx context.Context, id int64,
	notBefore time.Time) error {

	return s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		return q.RescheduleTask(ctx, sqlc.RescheduleTaskParams{
			NotBefore: notBefore.Unix(),
			ID:        id,
		})
	})
}

// ResetDelivering returns tasks stranded in delivering, for example by a
// crash, to pending. It is meant to run once at startup.
func (s *Store) ResetDelivering(ctx context.Context) (int64, error) {
	var n int64

	err := s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		var err error
		n, err = q.ResetDeliveringTasks(ctx)

		return err
	})

	return n, err
}

// PurgeExpired removes undelivered tasks past their expiry and delivered
// tasks older than the retention window. Returns the number of purged rows.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	var purged int64

	now := s.now()
	err := s.dbStore.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		var err error
		purged, err = q.PurgeExpiredTasks(
			ctx, sqlc.PurgeExpiredTasksParams{
				Now: now.Unix(),
				DeliveredBefore: now.Add(
					-s.cfg.DeliveredRetention,
				).Unix(),
			},
		)

		return err
	})

	return purged, err
}

// Stats returns aggregate counts for all tasks in the queue.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.dbStore.WithReadTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		row, err := q.GetQueueStats(ctx)
		if err != nil {
			return err
		}
		stats = statsFromSqlc(row)

		return nil
	})

	return stats, err
}

// Count returns the number of undelivered tasks that still count against
// MaxPending.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64

	err := s.dbStore.WithReadTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		var err error
		count, err = q.CountPendingTasks(ctx)

		return err
	})

	return count, err
}

// EntityKey builds an idempotency key from a task type and the parts that
// identify one logical event.
func EntityKey(t TaskType, parts ...string) string {
	return string(t) + ":" + strings.Join(parts, ":")
}
