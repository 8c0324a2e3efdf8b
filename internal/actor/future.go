package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// promise is a one-shot value cell shared by a Promise and its Future.
type promise[T any] struct {
	done   chan struct{}
	once   sync.Once
	result fn.Result[T]
}

// NewPromise returns an uncompleted promise.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

// Future returns the read side of the promise.
func (p *promise[T]) Future() Future[T] {
	return p
}

// Complete stores result if the promise has not been completed yet.
func (p *promise[T]) Complete(result fn.Result[T]) bool {
	completed := false
	p.once.Do(func() {
		p.result = result
		completed = true
		close(p.done)
	})

	return completed
}

// Await blocks for the result or ctx.
func (p *promise[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-p.done:
		return p.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// OnComplete runs f in a new goroutine once the result is known.
func (p *promise[T]) OnComplete(ctx context.Context,
	f func(fn.Result[T])) {

	go func() {
		f(p.Await(ctx))
	}()
}

// Completed returns a future that already holds result.
func Completed[T any](result fn.Result[T]) Future[T] {
	p := NewPromise[T]()
	p.Complete(result)

	return p.Future()
}
