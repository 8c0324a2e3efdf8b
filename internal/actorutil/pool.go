package actorutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// Pool spreads messages across a fixed set of actors in round-robin order.
type Pool[M actor.Message, R any] struct {
	id string

	refs   []actor.ActorRef[M, R]
	actors []*actor.Actor[M, R]

	next atomic.Uint64

	wg sync.WaitGroup
}

// PoolConfig holds configuration for creating a new actor pool.
type PoolConfig[M actor.Message, R any] struct {
	// ID is the identifier for the pool. Members are named ID-idx.
	ID string

	// Size is the number of actor instances to create.
	Size int

	// Factory creates the behavior for pool member idx.
	Factory func(idx int) actor.ActorBehavior[M, R]

	// MailboxSize is the buffer capacity for each actor's mailbox.
	MailboxSize int
}

// NewPool creates and starts Size actors.
func NewPool[M actor.Message, R any](cfg PoolConfig[M, R]) *Pool[M, R] {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 100
	}

	p := &Pool[M, R]{
		id:     cfg.ID,
		refs:   make([]actor.ActorRef[M, R], cfg.Size),
		actors: make([]*actor.Actor[M, R], cfg.Size),
	}

	for i := 0; i < cfg.Size; i++ {
		a := actor.New(actor.Config[M, R]{
			ID:          fmt.Sprintf("%s-%d", cfg.ID, i),
			Behavior:    cfg.Factory(i),
			MailboxSize: cfg.MailboxSize,
			Wg:          &p.wg,
		})
		a.Start()

		p.actors[i] = a
		p.refs[i] = a.Ref()
	}

	return p
}

// ID returns the identifier for this pool.
func (p *Pool[M, R]) ID() string {
	return p.id
}

// Ask sends msg to the next member and returns its future.
func (p *Pool[M, R]) Ask(ctx context.Context, msg M) actor.Future[R] {
	return p.pick().Ask(ctx, msg)
}

// Tell sends msg to the next member.
func (p *Pool[M, R]) Tell(ctx context.Context, msg M) {
	p.pick().Tell(ctx, msg)
}

func (p *Pool[M, R]) pick() actor.ActorRef[M, R] {
	idx := p.next.Add(1) % uint64(len(p.refs))
	return p.refs[idx]
}

// Size returns the number of actors in the pool.
func (p *Pool[M, R]) Size() int {
	return len(p.refs)
}

// Stop stops every member and waits for them to exit.
func (p *Pool[M, R]) Stop() {
	for _, a := range p.actors {
		a.Stop()
	}

	p.wg.Wait()
}

var _ actor.ActorRef[actor.Message, any] = (*Pool[actor.Message, any])(nil)
