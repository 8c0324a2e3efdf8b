package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/mail"
	"github.com/wangchlxt/Swarm-sub001/internal/queue"
	"github.com/wangchlxt/Swarm-sub001/internal/reconcile"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
	"github.com/wangchlxt/Swarm-sub001/internal/webhook"
)

// Enqueuer adds tasks to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.NewTask) (int64, error)
}

// ReviewLoader reads reviews directly. handleReview reads while holding the
// review lock, which service actors busy on that review would wait for.
type ReviewLoader interface {
	Get(ctx context.Context, id int64) (*review.Review, error)
}

// HandlersConfig holds the collaborators the task handlers use.
type HandlersConfig struct {
	// Reviews receives every review mutation and lookup.
	Reviews review.ServiceRef

	// Loader serves reads made under the review lock.
	Loader ReviewLoader

	Versions  versionstore.Store
	Directory directory.Directory
	Locker    lock.Locker

	Composer   *activity.Composer
	Reconcile  *reconcile.Engine
	Activity   activity.ActivityActorRef
	Dispatcher *mail.Dispatcher
	Mail       mail.MailActorRef

	// Webhooks is optional. Without it no project hooks are called.
	Webhooks *webhook.Client

	Queue Enqueuer

	// ImportUser is the service account that imports changes from other
	// systems. Its changes are held back by ImportDelay once so the
	// import can finish first.
	ImportUser  string
	ImportDelay time.Duration

	// DescriptionDelay is how long after a change is saved its
	// description is copied onto linked reviews.
	DescriptionDelay time.Duration

	// MaxFiles caps the file listing summarized for new versions.
	MaxFiles int

	Now func() time.Time
}

// Handlers implements the handler of every task type.
type Handlers struct {
	cfg HandlersConfig
}

// NewHandlers returns handlers over cfg.
func NewHandlers(cfg HandlersConfig) *Handlers {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Handlers{cfg: cfg}
}

// Register adds every handler to reg.
func (h *Handlers) Register(reg *Registry) {
	reg.Register(queue.TypeReview, Typed(h.handleReview))
	reg.Register(queue.TypeChange, Typed(h.handleChange))
	reg.Register(queue.TypeComment, Typed(h.handleComment))
	reg.Register(queue.TypeMail, Typed(h.handleMail))
	reg.Register(queue.TypeDescription, Typed(h.handleDescription))
}

// handleReview turns a review event into activity and mail. The review is
// read and the notice composed under the review lock so the file summary
// matches the versions the event describes.
func (h *Handlers) handleReview(ctx context.Context, t queue.Task,
	ev queue.ReviewPayload) error {

	var (
		r      *review.Review
		notice activity.Notice
	)
	err := lock.WithLock(ctx, h.cfg.Locker, lock.ReviewKey(ev.ReviewID),
		func() error {
			var err error
			r, err = h.cfg.Loader.Get(ctx, ev.ReviewID)
			if err != nil {
				return err
			}

			notice = h.cfg.Composer.Compose(r, ev)
			if ev.UpdateFromChange != 0 {
				h.summarizeFiles(ctx, r, ev, &notice.Record)
			}

			return nil
		},
	)
	if errors.Is(err, review.ErrNotFound) {
		log.WarnS(ctx, "Dropping event for missing review", err,
			"review_id", ev.ReviewID, "task_id", t.ID)
		return nil
	}
	if err != nil {
		return err
	}

	id, err := h.record(ctx, notice.Record)
	if err != nil {
		return err
	}
	notice.Record.ID = id

	if err := h.enqueueMail(ctx, t, notice, r); err != nil {
		return err
	}

	h.triggerHooks(ctx, r, ev)

	return nil
}

// summarizeFiles describes the files the new version touched, against the
// version before it when there is one.
func (h *Handlers) summarizeFiles(ctx context.Context, r *review.Review,
	ev review.Event, rec *activity.Record) {

	// The event added the version right after the previous head, unless
	// versions changed again since.
	num := 1
	if ev.Previous != nil {
		num = len(ev.Previous.Versions) + 1
	}
	if num > len(r.Versions) ||
		r.Versions[num-1].Change != ev.UpdateFromChange {

		num = r.VersionOf(ev.UpdateFromChange)
	}
	if num == 0 {
		log.DebugS(ctx, "Version gone before summary", "review_id",
			r.ID, "change", ev.UpdateFromChange)
		return
	}

	right := r.Versions[num-1].DiffChange()
	left := fn.None[int64]()
	if num > 1 {
		if prev := r.Versions[num-2].DiffChange(); prev != right {
			left = fn.Some(prev)
		}
	}

	files, err := h.cfg.Reconcile.AffectedFiles(
		ctx, r, right, left, h.cfg.MaxFiles,
	)
	if err != nil {
		log.WarnS(ctx, "Affected files unavailable", err,
			"review_id", r.ID, "change", ev.UpdateFromChange)
		return
	}

	truncated := h.cfg.MaxFiles > 0 && len(files) > h.cfg.MaxFiles
	if truncated {
		files = files[:h.cfg.MaxFiles]
	}

	if rec.Details == nil {
		rec.Details = make(map[string]any)
	}
	rec.Details["files"] = reconcile.Summary(files, truncated)
}

// record stores rec through the activity actor.
func (h *Handlers) record(ctx context.Context,
	rec activity.Record) (int64, error) {

	resp, err := actorutil.AskAwait(
		ctx, h.cfg.Activity,
		activity.ActivityRequest(activity.RecordRequest{Record: rec}),
	)
	if err != nil {
		return 0, fmt.Errorf("record activity: %w", err)
	}

	rr, ok := resp.(activity.RecordResponse)
	if !ok {
		return 0, fmt.Errorf("unexpected activity response %T", resp)
	}
	if rr.Error != nil {
		return 0, fmt.Errorf("record activity: %w", rr.Error)
	}

	return rr.ID, nil
}

// enqueueMail splits the notice into mail tasks and queues the audible
// ones. Keys derive from the parent task so a redelivered parent does not
// queue the same mail twice.
func (h *Handlers) enqueueMail(ctx context.Context, parent queue.Task,
	n activity.Notice, r *review.Review) error {

	tasks := h.cfg.Dispatcher.Dispatch(ctx, n, r)

	queued := 0
	for i, mt := range tasks {
		if mt.Quiet() {
			continue
		}

		_, err := h.cfg.Queue.Enqueue(ctx, queue.NewTask{
			Type:     queue.TypeMail,
			EntityID: strconv.FormatInt(r.ID, 10),
			Payload: queue.MailPayload{
				Task:   mt,
				Record: n.Record,
			},
			IdempotencyKey: queue.EntityKey(
				queue.TypeMail, strconv.FormatInt(parent.ID, 10),
				strconv.Itoa(i),
			),
		})
		switch {
		case errors.Is(err, queue.ErrDuplicateTask):
			continue
		case err != nil:
			return fmt.Errorf("enqueue mail: %w", err)
		}
		queued++
	}

	log.DebugS(ctx, "Mail dispatched", "review_id", r.ID,
		"tasks", len(tasks), "queued", queued)

	return nil
}

// triggerHooks calls the tests hooks for new versions and the deploy hooks
// when the review became approved.
func (h *Handlers) triggerHooks(ctx context.Context, r *review.Review,
	ev review.Event) {

	if h.cfg.Webhooks == nil {
		return
	}

	if ev.IsAdd || ev.UpdateFromChange != 0 {
		h.cfg.Webhooks.Trigger(ctx, h.cfg.Directory, webhook.KindTests, r)
	}

	wasApproved := ev.Previous != nil &&
		ev.Previous.State == review.StateApproved
	if ev.IsStateChange && r.State == review.StateApproved && !wasApproved {
		h.cfg.Webhooks.Trigger(ctx, h.cfg.Directory, webhook.KindDeploy, r)
	}
}

// handleChange attaches a saved change to a review when its description
// asks for one or when it already belongs to one.
func (h *Handlers) handleChange(ctx context.Context, t queue.Task,
	p queue.ChangePayload) error {

	c, err := h.cfg.Versions.FetchChange(ctx, p.Change)
	if errors.Is(err, versionstore.ErrChangeNotFound) {
		log.WarnS(ctx, "Dropping task for missing change", err,
			"change", p.Change, "task_id", t.ID)
		return nil
	}
	if err != nil {
		return err
	}

	// Imported changes wait once for the importer to settle. A task whose
	// NotBefore is past its creation time has already waited.
	delayed := t.NotBefore.After(t.CreatedAt)
	if h.cfg.ImportUser != "" && c.User == h.cfg.ImportUser && !delayed {
		at := h.cfg.Now().Add(h.cfg.ImportDelay)
		log.DebugS(ctx, "Holding back imported change", "change", c.ID,
			"until", at)

		return &RescheduleError{At: at}
	}

	if err := h.scheduleDescriptionSync(ctx, t, c.ID); err != nil {
		return err
	}

	kw := review.ParseKeyword(c.Description)
	ids, err := review.AskReviewsForChange(ctx, h.cfg.Reviews, c.ID)
	if err != nil {
		return err
	}
	if kw.IsNone() && len(ids) == 0 {
		log.DebugS(ctx, "Change requests no review", "change", c.ID)
		return nil
	}

	target := fn.None[int64]()
	kw.WhenSome(func(k review.Keyword) {
		target = k.Review
	})

	user := p.User
	if user == "" {
		user = c.User
	}

	r, err := review.AskAttach(ctx, h.cfg.Reviews, review.AttachRequest{
		Change: c.ID,
		Review: target,
		User:   user,
	})
	switch {
	case errors.Is(err, review.ErrValidation),
		errors.Is(err, review.ErrForbidden),
		errors.Is(err, review.ErrNotFound):

		log.WarnS(ctx, "Change not attached", err, "change", c.ID,
			"user", user)
		return nil

	case err != nil:
		return err
	}

	log.InfoS(ctx, "Change attached", "change", c.ID, "review_id", r.ID,
		"versions", len(r.Versions))

	return nil
}

func (h *Handlers) scheduleDescriptionSync(ctx context.Context,
	parent queue.Task, change int64) error {

	_, err := h.cfg.Queue.Enqueue(ctx, queue.NewTask{
		Type:      queue.TypeDescription,
		EntityID:  strconv.FormatInt(change, 10),
		Payload:   queue.DescriptionPayload{Change: change},
		NotBefore: fn.Some(h.cfg.Now().Add(h.cfg.DescriptionDelay)),
		IdempotencyKey: queue.EntityKey(
			queue.TypeDescription,
			strconv.FormatInt(parent.ID, 10),
		),
	})
	if err != nil && !errors.Is(err, queue.ErrDuplicateTask) {
		return fmt.Errorf("schedule description sync: %w", err)
	}

	return nil
}

// handleComment records comment activity and mails the participants.
func (h *Handlers) handleComment(ctx context.Context, t queue.Task,
	p queue.CommentPayload) error {

	r, err := review.AskGet(ctx, h.cfg.Reviews, p.ReviewID)
	if errors.Is(err, review.ErrNotFound) {
		log.WarnS(ctx, "Dropping comment on missing review", err,
			"review_id", p.ReviewID, "task_id", t.ID)
		return nil
	}
	if err != nil {
		return err
	}

	notice := h.cfg.Composer.ComposeComment(r, p.User, p.Body)

	id, err := h.record(ctx, notice.Record)
	if err != nil {
		return err
	}
	notice.Record.ID = id

	return h.enqueueMail(ctx, t, notice, r)
}

// handleMail delivers one mail task through the mail actor.
func (h *Handlers) handleMail(ctx context.Context, t queue.Task,
	p queue.MailPayload) error {

	resp, err := actorutil.AskAwait(
		ctx, h.cfg.Mail, mail.MailRequest(mail.DeliverRequest{
			Task:   p.Task,
			Record: p.Record,
		}),
	)
	if err != nil {
		return fmt.Errorf("deliver mail: %w", err)
	}

	dr, ok := resp.(mail.DeliverResponse)
	if !ok {
		return fmt.Errorf("unexpected mail response %T", resp)
	}

	switch {
	case errors.Is(dr.Error, mail.ErrNoRecipients):
		log.DebugS(ctx, "Mail task has no recipients", "task_id", t.ID,
			"review_id", p.Task.ReviewID())
		return nil

	case dr.Error != nil:
		return dr.Error
	}

	log.DebugS(ctx, "Mail delivered", "task_id", t.ID,
		"review_id", p.Task.ReviewID(), "sent", dr.Sent)

	return nil
}

// handleDescription copies a change description onto its reviews.
func (h *Handlers) handleDescription(ctx context.Context, t queue.Task,
	p queue.DescriptionPayload) error {

	ids, err := review.AskSyncDescription(ctx, h.cfg.Reviews, p.Change)
	if errors.Is(err, versionstore.ErrChangeNotFound) {
		log.WarnS(ctx, "Dropping sync for missing change", err,
			"change", p.Change, "task_id", t.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if len(ids) > 0 {
		log.InfoS(ctx, "Synced review descriptions", "change", p.Change,
			"reviews", ids)
	}

	return nil
}
