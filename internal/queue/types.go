package queue

import (
	"database/sql"
	"errors"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

// TaskType names the kind of work a task carries.
type TaskType string

const (
	// TypeReview processes a review mutation: activity, mail and
	// webhooks.
	TypeReview TaskType = "task.review"

	// TypeChange handles a change saved or shelved on the version
	// server.
	TypeChange TaskType = "task.change"

	// TypeComment records a comment on a review.
	TypeComment TaskType = "task.comment"

	// TypeMail delivers one mail task.
	TypeMail TaskType = "task.mail"

	// TypeDescription copies a change description onto its reviews.
	TypeDescription TaskType = "task.description"
)

// Status is the delivery state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Task is a queued unit of work.
type Task struct {
	ID             int64
	IdempotencyKey string
	Type           TaskType
	EntityID       string
	PayloadJSON    string
	NotBefore      time.Time
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Attempts       int
	LastError      string
	Status         Status
}

// Stats holds aggregate counts for queued tasks.
type Stats struct {
	PendingCount    int64
	DeliveringCount int64
	DeliveredCount  int64
	FailedCount     int64
	OldestPending   *time.Time
}

// Config holds configuration for the task queue.
type Config struct {
	// MaxPending is the maximum number of undelivered tasks allowed.
	MaxPending int

	// DefaultTTL is how long a task may wait before it expires.
	DefaultTTL time.Duration

	// MaxAttempts is how often a task may fail before it is parked as
	// failed.
	MaxAttempts int

	// DeliveredRetention is how long delivered tasks are kept.
	DeliveredRetention time.Duration
}

// DefaultConfig returns sensible defaults for the queue.
func DefaultConfig() Config {
	return Config{
		MaxPending:         10000,
		DefaultTTL:         7 * 24 * time.Hour,
		MaxAttempts:        5,
		DeliveredRetention: 24 * time.Hour,
	}
}

var (
	// ErrQueueFull is returned when the queue has reached its maximum
	// pending capacity.
	ErrQueueFull = errors.New("queue is full")

	// ErrDuplicateTask is returned when a task with the same idempotency
	// key was already enqueued.
	ErrDuplicateTask = errors.New("task already enqueued")
)

// taskFromSqlc converts a sqlc row to the domain type.
func taskFromSqlc(row sqlc.Task) Task {
	t := Task{
		ID:             row.ID,
		IdempotencyKey: row.IdempotencyKey,
		Type:           TaskType(row.TaskType),
		EntityID:       row.EntityID,
		PayloadJSON:    row.PayloadJson,
		NotBefore:      time.Unix(row.NotBefore, 0),
		CreatedAt:      time.Unix(row.CreatedAt, 0),
		ExpiresAt:      time.Unix(row.ExpiresAt, 0),
		Attempts:       int(row.Attempts),
		Status:         Status(row.Status),
	}
	if row.LastError.Valid {
		t.LastError = row.LastError.String
	}

	return t
}

func tasksFromSqlc(rows []sqlc.Task) []Task {
	out := make([]Task, len(rows))
	for i, row := range rows {
		out[i] = taskFromSqlc(row)
	}

	return out
}

// statsFromSqlc converts the stats row to the domain type.
func statsFromSqlc(row sqlc.GetQueueStatsRow) Stats {
	stats := Stats{
		PendingCount:    row.PendingCount,
		DeliveringCount: row.DeliveringCount,
		DeliveredCount:  row.DeliveredCount,
		FailedCount:     row.FailedCount,
	}

	// OldestPending comes as interface{} from the MIN aggregate.
	switch v := row.OldestPending.(type) {
	case int64:
		t := time.Unix(v, 0)
		stats.OldestPending = &t
	case float64:
		t := time.Unix(int64(v), 0)
		stats.OldestPending = &t
	}

	return stats
}

// toSqlcNullString converts a string to sql.NullString, treating empty
// strings as NULL.
func toSqlcNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
