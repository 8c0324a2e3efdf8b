// Package actor is a small typed actor runtime. Each actor owns a mailbox and
// processes messages one at a time on its own goroutine, replying to asks
// through futures.
package actor

import (
	"context"
	"errors"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrActorTerminated is returned to askers when the target actor stopped
// before it could answer.
var ErrActorTerminated = errors.New("actor terminated")

// BaseMessage is embedded by message types declared outside this package so
// they satisfy the sealed Message interface.
type BaseMessage struct{}

func (BaseMessage) messageMarker() {}

// Message is the sealed interface every actor message implements.
type Message interface {
	messageMarker()

	// MessageType names the message for logging and routing.
	MessageType() string
}

// Future is the read side of an asynchronous reply.
type Future[T any] interface {
	// Await blocks until the reply is available or ctx is done.
	Await(ctx context.Context) fn.Result[T]

	// OnComplete runs f once the reply is available. If ctx is done
	// first, f receives the context error.
	OnComplete(ctx context.Context, f func(fn.Result[T]))
}

// Promise is the write side of a Future. Only the first Complete wins.
type Promise[T any] interface {
	Future() Future[T]
	Complete(result fn.Result[T]) bool
}

// TellOnlyRef can only send fire-and-forget messages.
type TellOnlyRef[M Message] interface {
	ID() string

	Tell(ctx context.Context, msg M)
}

// ActorRef can both tell and ask.
type ActorRef[M Message, R any] interface {
	TellOnlyRef[M]

	Ask(ctx context.Context, msg M) Future[R]
}

// ActorBehavior is the message handler of an actor. The context passed to
// Receive is cancelled when the actor stops or, for asks, when the caller's
// context is done.
type ActorBehavior[M Message, R any] interface {
	Receive(ctx context.Context, msg M) fn.Result[R]
}

// Stoppable behaviors get a chance to release resources on shutdown.
type Stoppable interface {
	OnStop(ctx context.Context) error
}

// FuncBehavior adapts a plain function into an ActorBehavior.
type FuncBehavior[M Message, R any] func(ctx context.Context,
	msg M) fn.Result[R]

// Receive calls the wrapped function.
func (f FuncBehavior[M, R]) Receive(ctx context.Context,
	msg M) fn.Result[R] {

	return f(ctx, msg)
}
