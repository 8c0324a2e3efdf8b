package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/queue"
)

// ErrNoHandler is returned for tasks of a type nothing is registered for.
var ErrNoHandler = errors.New("no handler for task type")

// RescheduleError asks the consumer to put the task back until At instead
// of settling it.
type RescheduleError struct {
	At time.Time
}

// Error implements error.
func (e *RescheduleError) Error() string {
	return fmt.Sprintf("rescheduled until %s", e.At.Format(time.RFC3339))
}

// Handler processes one claimed task.
type Handler func(ctx context.Context, t queue.Task) error

// Typed adapts fn to a Handler that decodes the task payload as P first.
// Payloads that fail to decode are reported as errors so the task ends up
// failed rather than dropped.
func Typed[P any](fn func(ctx context.Context, t queue.Task,
	payload P) error) Handler {

	return func(ctx context.Context, t queue.Task) error {
		payload, err := queue.UnmarshalPayload[P](t)
		if err != nil {
			return err
		}

		return fn(ctx, t, payload)
	}
}

// Registry maps task types to their handlers.
type Registry struct {
	handlers map[queue.TaskType]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[queue.TaskType]Handler)}
}

// Register sets the handler for typ, replacing any earlier one.
func (r *Registry) Register(typ queue.TaskType, h Handler) {
	r.handlers[typ] = h
}

// Types lists the registered task types.
func (r *Registry) Types() []queue.TaskType {
	out := make([]queue.TaskType, 0, len(r.handlers))
	for typ := range r.handlers {
		out = append(out, typ)
	}

	return out
}

// Handle runs the handler registered for t's type.
func (r *Registry) Handle(ctx context.Context, t queue.Task) error {
	h, ok := r.handlers[t.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, t.Type)
	}

	return h(ctx, t)
}
