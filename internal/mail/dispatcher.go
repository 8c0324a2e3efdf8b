// Package mail turns review notices into outbound mail: it splits the
// audience by project privacy, threads messages per review, renders bodies
// and hands them to a Mailer.
package mail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

const subjectLimit = 80

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Directory directory.Directory

	// Host is the domain part of generated message ids.
	Host string

	// Now defaults to time.Now.
	Now func() time.Time

	// NewID returns the token that keeps update message ids unique.
	// Defaults to a random uuid.
	NewID func() string
}

// Dispatcher fans a notice out into mail tasks.
type Dispatcher struct {
	dir   directory.Directory
	host  string
	now   func() time.Time
	newID func() string
}

// NewDispatcher returns a dispatcher for cfg.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		dir:   cfg.Directory,
		host:  cfg.Host,
		now:   cfg.Now,
		newID: cfg.NewID,
	}
	if d.host == "" {
		d.host = "localhost"
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}

	return d
}

// Dispatch builds the mail tasks for notice n about review r. Each private
// project gets a task addressed to its own members, owners and moderators
// only; those users are then left out of the single task covering the
// public projects. A review without projects yields one general task.
// Quiet tasks are returned with Quiet set so callers can log them.
func (d *Dispatcher) Dispatch(ctx context.Context, n activity.Notice,
	r *review.Review) []Task {

	messageID, inReplyTo := d.threading(n, r)
	base := NewTask(r.ID).
		WithThreading(messageID, inReplyTo).
		WithQuiet(quiet(n))

	var projects []directory.Project
	for _, id := range r.ProjectIDs() {
		p, ok := d.dir.Project(id)
		if !ok {
			log.WarnS(ctx, "Review names unknown project", nil,
				"review_id", r.ID, "project", id)
			continue
		}
		projects = append(projects, p)
	}

	if len(projects) == 0 {
		return []Task{
			base.WithSubject(Subject(r, nil)).
				WithRecipients(n.Recipients...),
		}
	}

	pool := make(map[string]struct{}, len(n.Recipients))
	for _, u := range n.Recipients {
		pool[u] = struct{}{}
	}

	var (
		tasks  []Task
		public []string
		lists  []string
	)
	for _, p := range projects {
		if !p.Private {
			if p.EmailDisabled {
				continue
			}
			public = append(public, p.ID)
			if p.MailingList != "" {
				lists = append(lists, p.MailingList)
			}
			continue
		}

		var insiders []string
		for _, u := range n.Recipients {
			if d.insider(p, u) {
				insiders = append(insiders, u)
				delete(pool, u)
			}
		}

		if p.EmailDisabled {
			log.DebugS(ctx, "Mail disabled for private project",
				"review_id", r.ID, "project", p.ID)
			continue
		}

		t := base.WithProjects(true, p.ID).
			WithSubject(Subject(r, []string{p.ID})).
			WithRecipients(insiders...)
		if p.MailingList != "" {
			t = t.WithAddresses(p.MailingList)
		}
		if t.empty() {
			continue
		}
		tasks = append(tasks, t)
	}

	if len(public) > 0 {
		var rest []string
		for _, u := range n.Recipients {
			if _, ok := pool[u]; ok {
				rest = append(rest, u)
			}
		}

		t := base.WithProjects(false, public...).
			WithSubject(Subject(r, public)).
			WithRecipients(rest...).
			WithAddresses(lists...)
		if !t.empty() {
			tasks = append(tasks, t)
		}
	}

	log.DebugS(ctx, "Dispatched review mail", "review_id", r.ID,
		"tasks", len(tasks), "quiet", base.Quiet())

	return tasks
}

func (t Task) empty() bool {
	return len(t.recipients) == 0 && len(t.addresses) == 0
}

// insider reports whether user may see mail about private project p.
func (d *Dispatcher) insider(p directory.Project, user string) bool {
	if directory.IsMember(d.dir, p, user) {
		return true
	}
	for _, b := range p.Branches {
		if directory.IsModerator(d.dir, b, user) {
			return true
		}
	}

	return false
}

// quiet applies the notice's suppression. Otherwise a passing test run is
// only mailed straight after a failing one.
func quiet(n activity.Notice) bool {
	if n.Quiet {
		return true
	}
	if n.TestStatus == review.StatusPass {
		return n.PreviousTestStatus != review.StatusFail
	}

	return false
}

// threading returns the message id and in-reply-to header. A new review
// starts the thread at a root id derived from its topic; later mail gets a
// fresh id and replies to the root.
func (d *Dispatcher) threading(n activity.Notice,
	r *review.Review) (string, string) {

	root := fmt.Sprintf("<topic-%s@%s>", slug(r.Topic()), d.host)
	if n.IsAdd {
		return root, ""
	}

	id := d.newID()
	if len(id) > 8 {
		id = id[:8]
	}

	messageID := fmt.Sprintf("<action-%s-%s-%s.%s@%s>",
		slug(n.Record.Action), slug(r.Topic()),
		strconv.FormatInt(d.now().Unix(), 10), id, d.host)

	return messageID, root
}

// slug lowercases s and replaces runs of anything but letters and digits
// with a single dash.
func slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return strings.Join(fields, "-")
}

// Subject is the subject line of mail about r sent to followers of the
// given projects.
func Subject(r *review.Review, projects []string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(
		review.StripKeywords(r.Description),
	), "\n")

	if runes := []rune(line); len(runes) > subjectLimit {
		line = string(runes[:subjectLimit-3]) + "..."
	}

	subject := "Review @" + strconv.FormatInt(r.ID, 10)
	if line != "" {
		subject += " - " + line
	}
	if len(projects) > 0 {
		subject += " (" + strings.Join(projects, ", ") + ")"
	}

	return subject
}
