package actorutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

type testMessage struct {
	actor.BaseMessage
	value int
}

func (testMessage) MessageType() string { return "testMessage" }

// countingBehavior records which member handled each message.
type countingBehavior struct {
	idx int

	mu   *sync.Mutex
	seen map[int]int
}

func (b *countingBehavior) Receive(_ context.Context,
	msg testMessage) fn.Result[int] {

	b.mu.Lock()
	b.seen[b.idx]++
	b.mu.Unlock()

	return fn.Ok(msg.value * 2)
}

func newCountingPool(t *testing.T, size int) (*Pool[testMessage, int],
	func() map[int]int) {

	t.Helper()

	var mu sync.Mutex
	seen := make(map[int]int)

	pool := NewPool(PoolConfig[testMessage, int]{
		ID:   "test-pool",
		Size: size,
		Factory: func(idx int) actor.ActorBehavior[testMessage, int] {
			return &countingBehavior{idx: idx, mu: &mu, seen: seen}
		},
	})
	t.Cleanup(pool.Stop)

	snapshot := func() map[int]int {
		mu.Lock()
		defer mu.Unlock()

		out := make(map[int]int, len(seen))
		for k, v := range seen {
			out[k] = v
		}
		return out
	}

	return pool, snapshot
}

// TestPoolRoundRobin checks every member receives an even share of asks.
func TestPoolRoundRobin(t *testing.T) {
	t.Parallel()

	pool, seen := newCountingPool(t, 3)
	require.Equal(t, 3, pool.Size())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 9; i++ {
		v, err := AskAwait[testMessage, int](
			ctx, pool, testMessage{value: i},
		)
		require.NoError(t, err)
		require.Equal(t, i*2, v)
	}

	counts := seen()
	require.Len(t, counts, 3)
	for idx, n := range counts {
		require.Equal(t, 3, n, "member %d", idx)
	}
}

// TestPoolStopTerminatesMembers fails asks once the pool is stopped.
func TestPoolStopTerminatesMembers(t *testing.T) {
	t.Parallel()

	pool, _ := newCountingPool(t, 2)
	pool.Stop()

	ctx := context.Background()
	_, err := AskAwait[testMessage, int](ctx, pool, testMessage{value: 1})
	require.ErrorIs(t, err, actor.ErrActorTerminated)
}

// TestAskAll preserves ref order in the results.
func TestAskAll(t *testing.T) {
	t.Parallel()

	pool, _ := newCountingPool(t, 2)

	refs := []actor.ActorRef[testMessage, int]{pool, pool, pool}
	msgs := []testMessage{{value: 1}, {value: 2}, {value: 3}}

	results := AskAll(context.Background(), refs, msgs)
	for i, r := range results {
		v, err := r.Unpack()
		require.NoError(t, err)
		require.Equal(t, msgs[i].value*2, v)
	}
}
