package activity

import "github.com/wangchlxt/Swarm-sub001/internal/actor"

// ActivityRequest is the sealed interface for activity service requests.
type ActivityRequest interface {
	actor.Message
	isActivityRequest()
}

// ActivityResponse is the sealed interface for activity service responses.
type ActivityResponse interface {
	isActivityResponse()
}

// RecordRequest stores a record and pushes it to live subscribers.
type RecordRequest struct {
	actor.BaseMessage

	Record Record
}

// MessageType implements actor.Message.
func (RecordRequest) MessageType() string { return "RecordRequest" }
func (RecordRequest) isActivityRequest()  {}

// RecordResponse is the response to a RecordRequest.
type RecordResponse struct {
	ID    int64
	Error error
}

func (RecordResponse) isActivityResponse() {}

// ListRecentRequest lists recent activity across all streams.
type ListRecentRequest struct {
	actor.BaseMessage

	// Limit is the maximum number of records to return.
	Limit int
}

// MessageType implements actor.Message.
func (ListRecentRequest) MessageType() string { return "ListRecentRequest" }
func (ListRecentRequest) isActivityRequest()  {}

// ListStreamRequest lists the activity of one stream.
type ListStreamRequest struct {
	actor.BaseMessage

	Stream string
	Limit  int
}

// MessageType implements actor.Message.
func (ListStreamRequest) MessageType() string { return "ListStreamRequest" }
func (ListStreamRequest) isActivityRequest()  {}

// ListResponse is the response to both list requests.
type ListResponse struct {
	Records []Record
	Error   error
}

func (ListResponse) isActivityResponse() {}
