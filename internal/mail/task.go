package mail

import (
	"encoding/json"
	"slices"
)

// Task is one outbound mail produced by the dispatcher. Tasks are values:
// the With methods return a modified copy and never touch the receiver, so
// a task can be shared between goroutines and queued as is.
type Task struct {
	reviewID   int64
	recipients []string
	addresses  []string
	projects   []string
	private    bool
	quiet      bool
	subject    string
	messageID  string
	inReplyTo  string
}

// NewTask starts a task for review id.
func NewTask(reviewID int64) Task {
	return Task{reviewID: reviewID}
}

func (t Task) clone() Task {
	t.recipients = slices.Clone(t.recipients)
	t.addresses = slices.Clone(t.addresses)
	t.projects = slices.Clone(t.projects)

	return t
}

// WithRecipients sets the user ids to mail.
func (t Task) WithRecipients(users ...string) Task {
	out := t.clone()
	out.recipients = sortedUnique(users)

	return out
}

// WithAddresses adds raw addresses such as project mailing lists.
func (t Task) WithAddresses(addrs ...string) Task {
	out := t.clone()
	out.addresses = sortedUnique(append(out.addresses, addrs...))

	return out
}

// WithProjects scopes the task to project ids.
func (t Task) WithProjects(private bool, ids ...string) Task {
	out := t.clone()
	out.projects = sortedUnique(ids)
	out.private = private

	return out
}

// WithQuiet marks the task as suppressed.
func (t Task) WithQuiet(quiet bool) Task {
	out := t.clone()
	out.quiet = quiet

	return out
}

// WithSubject sets the subject line.
func (t Task) WithSubject(subject string) Task {
	out := t.clone()
	out.subject = subject

	return out
}

// WithThreading sets the message id and, for replies, the root it answers.
func (t Task) WithThreading(messageID, inReplyTo string) Task {
	out := t.clone()
	out.messageID = messageID
	out.inReplyTo = inReplyTo

	return out
}

func (t Task) ReviewID() int64 { return t.reviewID }

func (t Task) Recipients() []string { return slices.Clone(t.recipients) }

func (t Task) Addresses() []string { return slices.Clone(t.addresses) }

func (t Task) Projects() []string { return slices.Clone(t.projects) }

// Private reports whether the task is scoped to one private project.
func (t Task) Private() bool { return t.private }

func (t Task) Quiet() bool { return t.quiet }

func (t Task) Subject() string { return t.subject }

func (t Task) MessageID() string { return t.messageID }

func (t Task) InReplyTo() string { return t.inReplyTo }

// taskJSON is the queued form of a task.
type taskJSON struct {
	ReviewID   int64    `json:"reviewId"`
	Recipients []string `json:"recipients,omitempty"`
	Addresses  []string `json:"addresses,omitempty"`
	Projects   []string `json:"projects,omitempty"`
	Private    bool     `json:"private,omitempty"`
	Quiet      bool     `json:"quiet,omitempty"`
	Subject    string   `json:"subject"`
	MessageID  string   `json:"messageId"`
	InReplyTo  string   `json:"inReplyTo,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		ReviewID:   t.reviewID,
		Recipients: t.recipients,
		Addresses:  t.addresses,
		Projects:   t.projects,
		Private:    t.private,
		Quiet:      t.quiet,
		Subject:    t.subject,
		MessageID:  t.messageID,
		InReplyTo:  t.inReplyTo,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Task) UnmarshalJSON(b []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*t = Task{
		reviewID:   raw.ReviewID,
		recipients: raw.Recipients,
		addresses:  raw.Addresses,
		projects:   raw.Projects,
		private:    raw.Private,
		quiet:      raw.Quiet,
		subject:    raw.Subject,
		messageID:  raw.MessageID,
		inReplyTo:  raw.InReplyTo,
	}

	return nil
}

func sortedUnique(in []string) []string {
	out := slices.DeleteFunc(slices.Clone(in), func(s string) bool {
		return s == ""
	})
	slices.Sort(out)

	return slices.Compact(out)
}
