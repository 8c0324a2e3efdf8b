package activity

import "github.com/wangchlxt/Swarm-sub001/internal/actor"

// HubRequest is the union type for all stream hub requests.
type HubRequest interface {
	actor.Message
	isHubRequest()
}

// HubResponse is the union type for all stream hub responses.
type HubResponse interface {
	isHubResponse()
}

// Ensure all request types implement HubRequest.
func (SubscribeMsg) isHubRequest()   {}
func (UnsubscribeMsg) isHubRequest() {}
func (PublishMsg) isHubRequest()     {}

// Ensure all response types implement HubResponse.
func (SubscribeResponse) isHubResponse()   {}
func (UnsubscribeResponse) isHubResponse() {}
func (PublishResponse) isHubResponse()     {}

// SubscribeMsg registers a subscriber for a stream.
type SubscribeMsg struct {
	actor.BaseMessage

	// Stream is the feed to follow, e.g. "review-12" or "personal-bob".
	Stream string

	// SubscriberID is a unique identifier for this subscriber.
	SubscriberID string

	// DeliveryChan receives each record published to the stream.
	DeliveryChan chan<- Record
}

// MessageType implements actor.Message.
func (SubscribeMsg) MessageType() string { return "SubscribeMsg" }

// SubscribeResponse is the response to SubscribeMsg.
type SubscribeResponse struct {
	Success bool
}

// UnsubscribeMsg removes a subscriber from a stream.
type UnsubscribeMsg struct {
	actor.BaseMessage

	Stream       string
	SubscriberID string
}

// MessageType implements actor.Message.
func (UnsubscribeMsg) MessageType() string { return "UnsubscribeMsg" }

// UnsubscribeResponse is the response to UnsubscribeMsg.
type UnsubscribeResponse struct {
	Success bool
}

// PublishMsg pushes a stored record to the subscribers of its streams.
type PublishMsg struct {
	actor.BaseMessage

	Record Record
}

// MessageType implements actor.Message.
func (PublishMsg) MessageType() string { return "PublishMsg" }

// PublishResponse is the response to PublishMsg.
type PublishResponse struct {
	// DeliveredCount is the number of subscribers that received the
	// record.
	DeliveredCount int
}

// subscriber holds information about a single subscription.
type subscriber struct {
	id           string
	deliveryChan chan<- Record
}
