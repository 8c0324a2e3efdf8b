package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

type echoMsg struct {
	BaseMessage
	text  string
	panic bool
}

func (echoMsg) MessageType() string { return "echoMsg" }

func newEchoActor(t *testing.T) *Actor[echoMsg, string] {
	t.Helper()

	a := New(Config[echoMsg, string]{
		ID: "echo",
		Behavior: FuncBehavior[echoMsg, string](
			func(_ context.Context, m echoMsg) fn.Result[string] {
				if m.panic {
					panic("boom")
				}

				return fn.Ok("echo: " + m.text)
			},
		),
		MailboxSize: 4,
	})
	a.Start()
	t.Cleanup(a.Stop)

	return a
}

// TestAskReturnsReply checks the basic ask round trip.
func TestAskReturnsReply(t *testing.T) {
	t.Parallel()

	a := newEchoActor(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	reply, err := a.Ref().Ask(ctx, echoMsg{text: "hi"}).Await(ctx).Unpack()
	require.NoError(t, err)
	require.Equal(t, "echo: hi", reply)
}

// TestPanicFailsAsk makes sure a panicking behavior does not take the actor
// down with it.
func TestPanicFailsAsk(t *testing.T) {
	t.Parallel()

	a := newEchoActor(t)
	ctx := context.Background()

	_, err := a.Ref().Ask(ctx, echoMsg{panic: true}).Await(ctx).Unpack()
	require.ErrorContains(t, err, "panicked")

	reply, err := a.Ref().Ask(ctx, echoMsg{text: "ok"}).Await(ctx).Unpack()
	require.NoError(t, err)
	require.Equal(t, "echo: ok", reply)
}

// TestAskAfterStop fails with ErrActorTerminated.
func TestAskAfterStop(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	a := New(Config[echoMsg, string]{
		ID: "stopped",
		Behavior: FuncBehavior[echoMsg, string](
			func(context.Context, echoMsg) fn.Result[string] {
				return fn.Ok("")
			},
		),
		Wg: &wg,
	})
	a.Start()
	a.Stop()
	wg.Wait()

	ctx := context.Background()
	_, err := a.Ref().Ask(ctx, echoMsg{}).Await(ctx).Unpack()
	require.True(t, errors.Is(err, ErrActorTerminated))
}

// TestPromiseCompletesOnce keeps the first result.
func TestPromiseCompletesOnce(t *testing.T) {
	t.Parallel()

	p := NewPromise[int]()
	require.True(t, p.Complete(fn.Ok(1)))
	require.False(t, p.Complete(fn.Ok(2)))

	v, err := p.Future().Await(context.Background()).Unpack()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

// TestAwaitHonoursContext returns the context error for a pending future.
func TestAwaitHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPromise[int]().Future().Await(ctx).Unpack()
	require.ErrorIs(t, err, context.Canceled)
}
