package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Config describes a new actor.
type Config[M Message, R any] struct {
	// ID identifies the actor in logs.
	ID string

	// Behavior handles each message.
	Behavior ActorBehavior[M, R]

	// MailboxSize bounds the number of queued messages.
	MailboxSize int

	// Wg, if set, is incremented on Start and released when the
	// processing loop exits.
	Wg *sync.WaitGroup

	// CleanupTimeout bounds Stoppable.OnStop. Defaults to five seconds.
	CleanupTimeout fn.Option[time.Duration]
}

// Actor runs a behavior over a mailbox on a dedicated goroutine.
type Actor[M Message, R any] struct {
	id       string
	behavior ActorBehavior[M, R]
	mailbox  *mailbox[M, R]

	ctx    context.Context
	cancel context.CancelFunc

	wg             *sync.WaitGroup
	cleanupTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates an actor. Call Start to begin processing.
func New[M Message, R any](cfg Config[M, R]) *Actor[M, R] {
	ctx, cancel := context.WithCancel(context.Background())

	return &Actor[M, R]{
		id:             cfg.ID,
		behavior:       cfg.Behavior,
		mailbox:        newMailbox[M, R](ctx, cfg.MailboxSize),
		ctx:            ctx,
		cancel:         cancel,
		wg:             cfg.Wg,
		cleanupTimeout: cfg.CleanupTimeout.UnwrapOr(5 * time.Second),
	}
}

// Start launches the processing loop. Repeated calls are no-ops.
func (a *Actor[M, R]) Start() {
	a.startOnce.Do(func() {
		log.DebugS(a.ctx, "Starting actor", "actor_id", a.id)

		if a.wg != nil {
			a.wg.Add(1)
		}
		go a.run()
	})
}

// Stop cancels the actor. Queued asks fail with ErrActorTerminated.
func (a *Actor[M, R]) Stop() {
	a.stopOnce.Do(a.cancel)
}

func (a *Actor[M, R]) run() {
	if a.wg != nil {
		defer a.wg.Done()
	}

	for env := range a.mailbox.receive(a.ctx) {
		a.handle(env)
	}

	a.mailbox.close()

	dropped := 0
	for env := range a.mailbox.drain() {
		dropped++
		if env.promise != nil {
			env.promise.Complete(fn.Err[R](ErrActorTerminated))
		}
	}

	if s, ok := a.behavior.(Stoppable); ok {
		ctx, cancel := context.WithTimeout(
			context.Background(), a.cleanupTimeout,
		)
		if err := s.OnStop(ctx); err != nil {
			log.WarnS(ctx, "Actor cleanup failed", err,
				"actor_id", a.id)
		}
		cancel()
	}

	log.DebugS(a.ctx, "Actor terminated", "actor_id", a.id,
		"dropped_messages", dropped)
}

// handle runs the behavior for one envelope. A panicking behavior fails the
// ask instead of killing the actor.
func (a *Actor[M, R]) handle(env envelope[M, R]) {
	ctx, cancel := a.ctx, context.CancelFunc(func() {})
	if env.promise != nil {
		ctx, cancel = mergeContexts(a.ctx, env.callerCtx)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("actor %s panicked handling %s: %v",
				a.id, env.msg.MessageType(), r)
			log.ErrorS(ctx, "Actor behavior panicked", err)

			if env.promise != nil {
				env.promise.Complete(fn.Err[R](err))
			}
		}
	}()

	log.TraceS(ctx, "Actor processing message", "actor_id", a.id,
		"msg_type", env.msg.MessageType())

	result := a.behavior.Receive(ctx, env.msg)
	if env.promise != nil {
		env.promise.Complete(result)
	}
}

// mergeContexts returns a context cancelled when either parent is.
func mergeContexts(a, b context.Context) (context.Context,
	context.CancelFunc) {

	base := a
	if db, ok := b.Deadline(); ok {
		if da, ok := a.Deadline(); !ok || db.Before(da) {
			base = b
		}
	}

	merged, cancel := context.WithCancel(base)
	stop := context.AfterFunc(a, cancel)
	stop2 := context.AfterFunc(b, cancel)

	return merged, func() {
		stop()
		stop2()
		cancel()
	}
}

// Ref returns a reference for sending messages to the actor.
func (a *Actor[M, R]) Ref() ActorRef[M, R] {
	return &ref[M, R]{actor: a}
}

type ref[M Message, R any] struct {
	actor *Actor[M, R]
}

func (r *ref[M, R]) ID() string {
	return r.actor.id
}

// Tell queues msg without waiting for a reply.
func (r *ref[M, R]) Tell(ctx context.Context, msg M) {
	ok := r.actor.mailbox.send(ctx, envelope[M, R]{
		msg: msg, callerCtx: ctx,
	})
	if !ok {
		log.DebugS(ctx, "Tell dropped", "actor_id", r.actor.id,
			"msg_type", msg.MessageType())
	}
}

// Ask queues msg and returns a future for the reply.
func (r *ref[M, R]) Ask(ctx context.Context, msg M) Future[R] {
	p := NewPromise[R]()

	if r.actor.ctx.Err() != nil {
		p.Complete(fn.Err[R](ErrActorTerminated))
		return p.Future()
	}

	ok := r.actor.mailbox.send(ctx, envelope[M, R]{
		msg: msg, promise: p, callerCtx: ctx,
	})
	if !ok {
		err := ctx.Err()
		if err == nil || r.actor.ctx.Err() != nil {
			err = ErrActorTerminated
		}
		p.Complete(fn.Err[R](err))
	}

	return p.Future()
}
