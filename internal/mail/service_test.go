package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)

	return nil
}

func sampleRecord() activity.Record {
	return activity.Record{
		User:        "bob",
		Action:      activity.ActionUpdatedFiles,
		Target:      "review 7",
		Preposition: "for",
		Change:      12,
		Description: "Fix the widget\n<script>alert(1)</script>",
		Details:     map[string]any{"files": "1 file edited"},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	body, err := NewRenderer("https://swarm.test/").Render(
		NewTask(7), sampleRecord(),
	)
	require.NoError(t, err)

	require.Contains(t, body.Text, "**bob** updated files in "+
		"[review 7](https://swarm.test/reviews/7) for change 12")
	require.Contains(t, body.Text, "> Fix the widget")
	require.Contains(t, body.Text, "Files: 1 file edited")

	require.Contains(t, body.HTML, "<strong>bob</strong>")
	require.Contains(t, body.HTML,
		`href="https://swarm.test/reviews/7"`)
	require.Contains(t, body.HTML, "<blockquote>")
	require.NotContains(t, body.HTML, "<script>")
}

func TestDeliver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mailer := &recordingMailer{}
	svc := NewService(ServiceConfig{
		Mailer: mailer,
		Sender: "swarm@swarm.test",
		Domain: "example.com",
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	})

	task := NewTask(7).
		WithRecipients("bob", "carol@elsewhere.test").
		WithAddresses("list@lists.test").
		WithSubject("Review @7").
		WithThreading("<m@x>", "<root@x>")

	sent, err := svc.Deliver(ctx, task, sampleRecord())
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	require.Equal(t, []string{
		"bob@example.com", "carol@elsewhere.test", "list@lists.test",
	}, msg.To)
	require.Equal(t, "swarm@swarm.test", msg.From)
	require.Equal(t, "<root@x>", msg.InReplyTo)
	require.Equal(t, time.Unix(1700000000, 0), msg.Date)

	// Quiet tasks are skipped without error.
	sent, err = svc.Deliver(ctx, task.WithQuiet(true), sampleRecord())
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Len(t, mailer.sent, 1)

	_, err = svc.Deliver(ctx, NewTask(7), sampleRecord())
	require.ErrorIs(t, err, ErrNoRecipients)

	mailer.err = errors.New("smtp down")
	_, err = svc.Deliver(ctx, task, sampleRecord())
	require.ErrorContains(t, err, "smtp down")
}

func TestMailActor(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mailer := &recordingMailer{}
	a := NewMailActor(ActorConfig{
		Service: ServiceConfig{Mailer: mailer},
	})
	a.Start()
	t.Cleanup(a.Stop)

	resp, err := actorutil.AskAwait(ctx, a.Ref(), MailRequest(
		DeliverRequest{
			Task:   NewTask(7).WithRecipients("bob@x.test"),
			Record: sampleRecord(),
		},
	))
	require.NoError(t, err)

	deliver, ok := resp.(DeliverResponse)
	require.True(t, ok)
	require.NoError(t, deliver.Error)
	require.Equal(t, 1, deliver.Sent)
}
