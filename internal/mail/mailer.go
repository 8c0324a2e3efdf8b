package mail

import (
	"context"
	"time"
)

// Message is a fully addressed mail ready for delivery.
type Message struct {
	From      string
	To        []string
	Subject   string
	MessageID string
	InReplyTo string
	Date      time.Time
	Body      Body
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs messages instead of sending them.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.InfoS(ctx, "Mail sent", "subject", msg.Subject, "to", len(msg.To),
		"message_id", msg.MessageID, "in_reply_to", msg.InReplyTo)

	return nil
}
