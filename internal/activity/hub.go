package activity

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// Hub is the actor that pushes new activity to live stream subscribers.
// All state is owned by Receive, which the actor runs serially, so no locks
// are needed.
type Hub struct {
	// subscribers maps stream names to their subscribers.
	subscribers map[string][]subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]subscriber),
	}
}

// Receive implements actor.ActorBehavior.
func (h *Hub) Receive(_ context.Context,
	msg HubRequest) fn.Result[HubResponse] {

	switch m := msg.(type) {
	case SubscribeMsg:
		return fn.Ok[HubResponse](h.handleSubscribe(m))

	case UnsubscribeMsg:
		return fn.Ok[HubResponse](h.handleUnsubscribe(m))

	case PublishMsg:
		return fn.Ok[HubResponse](h.handlePublish(m))

	default:
		return fn.Err[HubResponse](fmt.Errorf(
			"unknown message type: %T", msg,
		))
	}
}

func (h *Hub) handleSubscribe(msg SubscribeMsg) SubscribeResponse {
	subs := h.subscribers[msg.Stream]
	for _, s := range subs {
		if s.id == msg.SubscriberID {
			return SubscribeResponse{Success: true}
		}
	}

	h.subscribers[msg.Stream] = append(subs, subscriber{
		id:           msg.SubscriberID,
		deliveryChan: msg.DeliveryChan,
	})

	return SubscribeResponse{Success: true}
}

func (h *Hub) handleUnsubscribe(msg UnsubscribeMsg) UnsubscribeResponse {
	subs := h.subscribers[msg.Stream]
	for i, s := range subs {
		if s.id != msg.SubscriberID {
			continue
		}

		h.subscribers[msg.Stream] = append(subs[:i], subs[i+1:]...)
		if len(h.subscribers[msg.Stream]) == 0 {
			delete(h.subscribers, msg.Stream)
		}

		break
	}

	// Unknown subscribers are not an error.
	return UnsubscribeResponse{Success: true}
}

// handlePublish delivers the record once per subscriber even when the
// subscriber follows several of its streams. Full channels are skipped so a
// slow reader cannot stall the hub.
func (h *Hub) handlePublish(msg PublishMsg) PublishResponse {
	delivered := make(map[string]struct{})
	for _, stream := range msg.Record.Streams {
		for _, s := range h.subscribers[stream] {
			if _, done := delivered[s.id]; done {
				continue
			}

			select {
			case s.deliveryChan <- msg.Record:
				delivered[s.id] = struct{}{}
			default:
			}
		}
	}

	return PublishResponse{DeliveredCount: len(delivered)}
}

// SubscriberCount returns the number of subscribers of stream. Only safe to
// call when the hub is not running inside an actor.
func (h *Hub) SubscriberCount(stream string) int {
	return len(h.subscribers[stream])
}

// HubRef is the typed actor reference for the hub.
type HubRef = actor.ActorRef[HubRequest, HubResponse]

// NewHubActor creates the hub actor.
func NewHubActor() *actor.Actor[HubRequest, HubResponse] {
	return actor.New(actor.Config[HubRequest, HubResponse]{
		ID:          "activity-hub",
		Behavior:    NewHub(),
		MailboxSize: 100,
	})
}

// Ensure Hub implements ActorBehavior.
var _ actor.ActorBehavior[HubRequest, HubResponse] = (*Hub)(nil)
