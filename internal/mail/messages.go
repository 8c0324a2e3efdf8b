package mail

import (
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// MailRequest is the union type for all mail actor requests.
type MailRequest interface {
	actor.Message
	isMailRequest()
}

// MailResponse is the union type for all mail actor responses.
type MailResponse interface {
	isMailResponse()
}

func (DeliverRequest) isMailRequest() {}

func (DeliverResponse) isMailResponse() {}

// DeliverRequest renders and sends one task.
type DeliverRequest struct {
	actor.BaseMessage

	Task   Task
	Record activity.Record
}

// MessageType implements actor.Message.
func (DeliverRequest) MessageType() string { return "DeliverRequest" }

// DeliverResponse reports how many addresses a task was sent to. Quiet
// tasks report zero.
type DeliverResponse struct {
	Sent  int
	Error error
}
