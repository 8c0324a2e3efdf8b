package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/queue"
)

// TaskMsg hands a claimed task to a runner.
type TaskMsg struct {
	actor.BaseMessage

	Task queue.Task
}

// MessageType implements actor.Message.
func (TaskMsg) MessageType() string { return "TaskMsg" }

// TaskResult is how a runner asks for a task to be settled.
type TaskResult struct {
	// Err is set when the handler failed. The task is retried until the
	// queue's attempt limit.
	Err error

	// RetryAt is set when the handler asked for the task to wait.
	RetryAt fn.Option[time.Time]
}

// runner is the behavior of one consumer pool member.
type runner struct {
	idx      int
	registry *Registry
}

// Receive runs the task's handler. Handler panics become task errors.
func (r *runner) Receive(ctx context.Context,
	msg TaskMsg) fn.Result[TaskResult] {

	return fn.Ok(r.run(ctx, msg.Task))
}

func (r *runner) run(ctx context.Context, t queue.Task) (res TaskResult) {
	defer func() {
		if p := recover(); p != nil {
			log.ErrorS(ctx, "Task handler panicked", nil,
				"task_id", t.ID, "type", t.Type, "runner", r.idx,
				"panic", p, "stack", string(debug.Stack()))

			res = TaskResult{Err: fmt.Errorf("handler panic: %v", p)}
		}
	}()

	log.DebugS(ctx, "Running task", "task_id", t.ID, "type", t.Type,
		"entity", t.EntityID, "attempt", t.Attempts+1, "runner", r.idx)

	err := r.registry.Handle(ctx, t)

	var resched *RescheduleError
	switch {
	case err == nil:
		return TaskResult{}

	case errors.As(err, &resched):
		return TaskResult{RetryAt: fn.Some(resched.At)}

	default:
		return TaskResult{Err: err}
	}
}

var _ actor.ActorBehavior[TaskMsg, TaskResult] = (*runner)(nil)
