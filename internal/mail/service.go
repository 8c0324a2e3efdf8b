package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// ServiceConfig configures mail delivery.
type ServiceConfig struct {
	Mailer   Mailer
	Renderer *Renderer

	// Sender is the From address.
	Sender string

	// Domain completes user ids that are not already addresses.
	Domain string

	Now func() time.Time
}

// Service renders mail tasks and hands them to the mailer.
type Service struct {
	cfg ServiceConfig
}

// NewService returns a delivery service. A nil Mailer logs instead of
// sending.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Mailer == nil {
		cfg.Mailer = LogMailer{}
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NewRenderer("")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{cfg: cfg}
}

// Receive implements actor.ActorBehavior.
func (s *Service) Receive(ctx context.Context,
	msg MailRequest) fn.Result[MailResponse] {

	switch m := msg.(type) {
	case DeliverRequest:
		sent, err := s.Deliver(ctx, m.Task, m.Record)

		return fn.Ok[MailResponse](DeliverResponse{
			Sent: sent, Error: err,
		})

	default:
		return fn.Err[MailResponse](fmt.Errorf("%w: %T",
			ErrUnknownRequestType, msg))
	}
}

// Deliver sends t unless it is quiet and returns the number of addresses
// it went to.
func (s *Service) Deliver(ctx context.Context, t Task,
	rec activity.Record) (int, error) {

	if t.Quiet() {
		log.DebugS(ctx, "Skipping quiet mail", "review_id", t.ReviewID(),
			"action", rec.Action)
		return 0, nil
	}

	to := s.addresses(t)
	if len(to) == 0 {
		return 0, ErrNoRecipients
	}

	body, err := s.cfg.Renderer.Render(t, rec)
	if err != nil {
		return 0, err
	}

	msg := Message{
		From:      s.cfg.Sender,
		To:        to,
		Subject:   t.Subject(),
		MessageID: t.MessageID(),
		InReplyTo: t.InReplyTo(),
		Date:      s.cfg.Now(),
		Body:      body,
	}
	if err := s.cfg.Mailer.Send(ctx, msg); err != nil {
		return 0, fmt.Errorf("send review %d mail: %w", t.ReviewID(),
			err)
	}

	return len(to), nil
}

func (s *Service) addresses(t Task) []string {
	var to []string
	for _, u := range t.Recipients() {
		if !strings.Contains(u, "@") && s.cfg.Domain != "" {
			u += "@" + s.cfg.Domain
		}
		to = append(to, u)
	}

	return sortedUnique(append(to, t.Addresses()...))
}

// MailActorRef is the typed actor reference for mail delivery.
type MailActorRef = actor.ActorRef[MailRequest, MailResponse]

// ActorConfig holds configuration for creating a mail actor.
type ActorConfig struct {
	// ID is the unique identifier for the actor.
	ID string

	Service ServiceConfig

	// MailboxSize is the buffer capacity for the actor's mailbox.
	MailboxSize int
}

// NewMailActor creates a new mail actor with the given configuration.
func NewMailActor(cfg ActorConfig) *actor.Actor[MailRequest, MailResponse] {
	mailboxSize := cfg.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 100
	}

	actorID := cfg.ID
	if actorID == "" {
		actorID = "mail-service"
	}

	return actor.New(actor.Config[MailRequest, MailResponse]{
		ID:          actorID,
		Behavior:    NewService(cfg.Service),
		MailboxSize: mailboxSize,
	})
}

// Ensure Service implements ActorBehavior.
var _ actor.ActorBehavior[MailRequest, MailResponse] = (*Service)(nil)
