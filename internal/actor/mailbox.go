package actor

import (
	"context"
	"iter"
	"sync"
)

// envelope carries a message plus the promise an asker is waiting on. Tells
// have a nil promise.
type envelope[M Message, R any] struct {
	msg       M
	promise   Promise[R]
	callerCtx context.Context
}

// mailbox is a bounded channel guarded so that sends never race a close.
type mailbox[M Message, R any] struct {
	ch chan envelope[M, R]

	mu     sync.RWMutex
	closed bool

	actorCtx context.Context
}

func newMailbox[M Message, R any](actorCtx context.Context,
	size int) *mailbox[M, R] {

	if size <= 0 {
		size = 1
	}

	return &mailbox[M, R]{
		ch:       make(chan envelope[M, R], size),
		actorCtx: actorCtx,
	}
}

// send blocks until env is queued, ctx is done or the actor stops.
func (m *mailbox[M, R]) send(ctx context.Context, env envelope[M, R]) bool {
	if ctx.Err() != nil || m.actorCtx.Err() != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false
	}

	select {
	case m.ch <- env:
		return true

	case <-ctx.Done():
		return false

	case <-m.actorCtx.Done():
		return false
	}
}

// receive yields envelopes until ctx is done or the mailbox is closed.
func (m *mailbox[M, R]) receive(ctx context.Context) iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for ctx.Err() == nil {
			select {
			case env, ok := <-m.ch:
				if !ok || !yield(env) {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *mailbox[M, R]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

// drain yields whatever is left after close.
func (m *mailbox[M, R]) drain() iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for env := range m.ch {
			if !yield(env) {
				return
			}
		}
	}
}
