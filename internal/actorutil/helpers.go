// Package actorutil holds helpers layered on the actor runtime.
package actorutil

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// AskAwait sends msg and blocks for the unpacked reply.
func AskAwait[M actor.Message, R any](ctx context.Context,
	ref actor.ActorRef[M, R], msg M) (R, error) {

	return ref.Ask(ctx, msg).Await(ctx).Unpack()
}

// AskAll sends one message per ref concurrently and collects the results in
// ref order.
func AskAll[M actor.Message, R any](ctx context.Context,
	refs []actor.ActorRef[M, R], msgs []M) []fn.Result[R] {

	if len(refs) != len(msgs) {
		panic("refs and msgs must have same length")
	}

	futures := make([]actor.Future[R], len(refs))
	for i, ref := range refs {
		futures[i] = ref.Ask(ctx, msgs[i])
	}

	results := make([]fn.Result[R], len(futures))
	for i, f := range futures {
		results[i] = f.Await(ctx)
	}

	return results
}
