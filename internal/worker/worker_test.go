package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/mail"
	"github.com/wangchlxt/Swarm-sub001/internal/queue"
	"github.com/wangchlxt/Swarm-sub001/internal/reconcile"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
	"github.com/wangchlxt/Swarm-sub001/internal/store"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
	"github.com/wangchlxt/Swarm-sub001/internal/webhook"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)

	return nil
}

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]mail.Message(nil), m.sent...)
}

func newQueue(t *testing.T) *queue.Store {
	t.Helper()

	dbStore, err := db.Open(
		context.Background(), filepath.Join(t.TempDir(), "swarm.db"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	return queue.NewStore(dbStore, queue.DefaultConfig())
}

type harness struct {
	queue     *queue.Store
	reviews   *review.Service
	versions  *versionstore.Memory
	activity  activity.ActivityActorRef
	mailer    *recordingMailer
	publisher *Publisher
	consumer  *Consumer
	hookHits  atomic.Int32
}

type harnessOpts struct {
	importUser  string
	importDelay time.Duration
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	h := &harness{
		queue:    newQueue(t),
		versions: versionstore.NewMemory(),
		mailer:   &recordingMailer{},
	}
	h.publisher = NewPublisher(h.queue)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			h.hookHits.Add(1)
			w.WriteHeader(http.StatusOK)
		},
	))
	t.Cleanup(srv.Close)

	dir := directory.NewStatic(directory.File{
		Users: []string{"alice", "bob", "carol", "importer"},
		Projects: []directory.Project{{
			ID:          "web",
			Members:     []string{"bob"},
			MailingList: "web@lists.test",
			Branches: []directory.Branch{{
				ID:    "main",
				Paths: []string{"//depot/web/..."},
			}},
			Tests: directory.Webhook{
				Enabled: true,
				URL:     srv.URL + "/run?review={review}",
			},
		}},
	})

	locks := lock.NewManager()
	h.reviews = review.NewService(review.ServiceConfig{
		Store:     store.NewMockStore(),
		Versions:  h.versions,
		Directory: dir,
		Locker:    locks,
		Publisher: h.publisher,
	})

	reviewPool := review.NewServicePool(h.reviews, 2)
	t.Cleanup(reviewPool.Stop)

	activityActor := activity.NewActivityActor(activity.ServiceConfig{
		Store: store.NewMockStore(),
	})
	activityActor.Start()
	t.Cleanup(activityActor.Stop)
	h.activity = activityActor.Ref()

	mailActor := mail.NewMailActor(mail.ActorConfig{
		Service: mail.ServiceConfig{
			Mailer: h.mailer,
			Sender: "swarm@swarm.test",
			Domain: "swarm.test",
		},
	})
	mailActor.Start()
	t.Cleanup(mailActor.Stop)

	handlers := NewHandlers(HandlersConfig{
		Reviews:   reviewPool,
		Loader:    h.reviews,
		Versions:  h.versions,
		Directory: dir,
		Locker:    locks,
		Composer:  activity.NewComposer(dir, nil),
		Reconcile: reconcile.NewEngine(h.versions),
		Activity:  h.activity,
		Dispatcher: mail.NewDispatcher(mail.DispatcherConfig{
			Directory: dir,
			Host:      "swarm.test",
		}),
		Mail: mailActor.Ref(),
		Webhooks: webhook.NewClient(webhook.Config{
			CallbackBase: "https://swarm.test",
		}),
		Queue:       h.queue,
		ImportUser:  opts.importUser,
		ImportDelay: opts.importDelay,
		MaxFiles:    100,
	})

	reg := NewRegistry()
	handlers.Register(reg)

	h.consumer = NewConsumer(ConsumerConfig{
		Queue:    h.queue,
		Registry: reg,
		Workers:  2,
	})
	t.Cleanup(h.consumer.Stop)

	return h
}

// drain runs the consumer until no task is due.
func (h *harness) drain(t *testing.T) {
	t.Helper()

	for range 20 {
		n, err := h.consumer.DrainOnce(context.Background())
		require.NoError(t, err)
		if n == 0 {
			return
		}
	}
	t.Fatal("queue did not settle")
}

func (h *harness) shelve(id int64, user, desc string,
	files ...versionstore.File) {

	h.versions.PutChange(versionstore.Change{
		ID:          id,
		User:        user,
		Description: desc,
		Status:      versionstore.StatusShelved,
		Time:        time.Unix(1700000000+id, 0),
		Files:       files,
	})
}

func (h *harness) recent(t *testing.T) []activity.Record {
	t.Helper()

	resp, err := actorutil.AskAwait(
		context.Background(), h.activity,
		activity.ActivityRequest(activity.ListRecentRequest{Limit: 50}),
	)
	require.NoError(t, err)

	list, ok := resp.(activity.ListResponse)
	require.True(t, ok)
	require.NoError(t, list.Error)

	return list.Records
}

func file(path, action, digest string) versionstore.File {
	return versionstore.File{
		DepotFile: path,
		Action:    action,
		Type:      "text",
		Rev:       1,
		Digest:    digest,
	}
}

// TestChangeKeywordCreatesReview follows a shelved change with a review
// keyword through every task it causes.
func TestChangeKeywordCreatesReview(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	h.shelve(100, "alice", "Fix the widget #review",
		file("//depot/web/widget.go", "edit", "d1"))

	_, err := h.publisher.PublishChange(ctx, 100, "")
	require.NoError(t, err)
	h.drain(t)

	ids, err := h.reviews.ReviewsForChange(ctx, 100)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	r, err := h.reviews.Get(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, []string{"web"}, r.ProjectIDs())

	records := h.recent(t)
	require.Len(t, records, 1)
	require.Equal(t, activity.ActionRequested, records[0].Action)
	require.Equal(t, "alice", records[0].User)
	require.Equal(t, "Fix the widget", records[0].Description)
	require.Contains(t, records[0].Details, "files")

	sent := h.mailer.messages()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].To, "web@lists.test")
	require.Contains(t, sent[0].To, "alice@swarm.test")
	require.True(t, strings.HasPrefix(sent[0].Subject, "Review @"))

	require.EqualValues(t, 1, h.hookHits.Load())

	stats, err := h.queue.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
	require.Zero(t, stats.FailedCount)
}

// TestChangeWithoutKeyword leaves changes nobody asked a review for alone.
func TestChangeWithoutKeyword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	h.shelve(100, "alice", "Just a shelf",
		file("//depot/web/widget.go", "edit", "d1"))

	_, err := h.publisher.PublishChange(ctx, 100, "")
	require.NoError(t, err)
	h.drain(t)

	ids, err := h.reviews.ReviewsForChange(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Empty(t, h.recent(t))
	require.Empty(t, h.mailer.messages())
}

// TestMissingChangeDropped settles tasks for changes that vanished.
func TestMissingChangeDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	_, err := h.publisher.PublishChange(ctx, 404, "alice")
	require.NoError(t, err)
	h.drain(t)

	stats, err := h.queue.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.DeliveredCount)
	require.Zero(t, stats.PendingCount)
}

// TestImportedChangeHeldBack reschedules the import account's changes once.
func TestImportedChangeHeldBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{
		importUser:  "importer",
		importDelay: time.Hour,
	})

	h.shelve(100, "importer", "Imported #review",
		file("//depot/web/widget.go", "add", "d1"))

	_, err := h.publisher.PublishChange(ctx, 100, "")
	require.NoError(t, err)

	n, err := h.consumer.DrainOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ids, err := h.reviews.ReviewsForChange(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, ids)

	tasks, err := h.queue.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, queue.StatusPending, tasks[0].Status)
	require.Zero(t, tasks[0].Attempts)
	require.True(t, tasks[0].NotBefore.After(tasks[0].CreatedAt))

	// Not due yet.
	n, err = h.consumer.DrainOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

// TestNewVersionSummarizesFiles reports the files a new version changed
// relative to the version before it.
func TestNewVersionSummarizesFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	h.shelve(100, "alice", "Widget",
		file("//depot/web/widget.go", "edit", "d1"),
		file("//depot/web/same.go", "edit", "s1"))
	r, err := h.reviews.CreateOrAttach(ctx, review.AttachRequest{
		Change: 100, User: "alice",
	})
	require.NoError(t, err)
	h.drain(t)

	h.shelve(101, "alice", "Widget v2",
		file("//depot/web/widget.go", "edit", "d2"),
		file("//depot/web/same.go", "edit", "s1"),
		file("//depot/web/new.go", "add", "n1"))
	_, err = h.reviews.CreateOrAttach(ctx, review.AttachRequest{
		Change: 101, Review: fn.Some(r.ID), User: "alice",
	})
	require.NoError(t, err)
	h.drain(t)

	records := h.recent(t)
	require.Len(t, records, 2)

	latest := records[0]
	require.Equal(t, activity.ActionUpdatedFiles, latest.Action)
	require.EqualValues(t, 101, latest.Change)
	require.Equal(t, reconcile.Summary([]reconcile.FileDiff{
		{DepotFile: "//depot/web/new.go", Action: reconcile.ActionAdd},
		{DepotFile: "//depot/web/widget.go", Action: reconcile.ActionEdit},
	}, false), latest.Details["files"])

	// Both versions triggered the tests hook.
	require.EqualValues(t, 2, h.hookHits.Load())
}

// TestReshelvedVersionSummarizesFiles diffs a re-shelve of the same change
// against its earlier revision.
func TestReshelvedVersionSummarizesFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	h.shelve(100, "alice", "Widget",
		file("//depot/web/widget.go", "edit", "d1"))
	_, err := h.reviews.CreateOrAttach(ctx, review.AttachRequest{
		Change: 100, User: "alice",
	})
	require.NoError(t, err)
	h.drain(t)

	h.versions.PutChange(versionstore.Change{
		ID:          100,
		User:        "alice",
		Description: "Widget",
		Status:      versionstore.StatusShelved,
		Time:        time.Unix(1800000000, 0),
		Files: []versionstore.File{
			file("//depot/web/widget.go", "edit", "d2"),
			file("//depot/web/extra.go", "add", "e1"),
		},
	})
	r, err := h.reviews.CreateOrAttach(ctx, review.AttachRequest{
		Change: 100, User: "alice",
	})
	require.NoError(t, err)
	require.Len(t, r.Versions, 2)
	h.drain(t)

	latest := h.recent(t)[0]
	require.Equal(t, activity.ActionUpdatedFiles, latest.Action)
	require.Equal(t, reconcile.Summary([]reconcile.FileDiff{
		{DepotFile: "//depot/web/extra.go", Action: reconcile.ActionAdd},
		{DepotFile: "//depot/web/widget.go", Action: reconcile.ActionEdit},
	}, false), latest.Details["files"])
}

// TestCommentNotifiesParticipants records comment activity and mails it.
func TestCommentNotifiesParticipants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, harnessOpts{})

	h.shelve(100, "alice", "Widget",
		file("//depot/web/widget.go", "edit", "d1"))
	r, err := h.reviews.CreateOrAttach(ctx, review.AttachRequest{
		Change: 100, User: "alice",
	})
	require.NoError(t, err)
	h.drain(t)
	before := len(h.mailer.messages())

	_, err = h.publisher.PublishComment(ctx, r.ID, "bob", "Looks good")
	require.NoError(t, err)
	h.drain(t)

	records := h.recent(t)
	require.Equal(t, activity.ActionCommentedOn, records[0].Action)
	require.Equal(t, "bob", records[0].User)
	require.Equal(t, "Looks good", records[0].Description)

	require.Len(t, h.mailer.messages(), before+1)
}

// TestConsumerSettlesOutcomes maps every handler outcome to its queue
// transition.
func TestConsumerSettlesOutcomes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := newQueue(t)
	later := time.Now().Add(time.Hour).Truncate(time.Second)

	reg := NewRegistry()
	reg.Register(queue.TypeChange, func(context.Context, queue.Task) error {
		return nil
	})
	reg.Register(queue.TypeComment, func(context.Context,
		queue.Task) error {

		return errors.New("boom")
	})
	reg.Register(queue.TypeMail, func(context.Context, queue.Task) error {
		panic("mailer exploded")
	})
	reg.Register(queue.TypeDescription, func(context.Context,
		queue.Task) error {

		return &RescheduleError{At: later}
	})

	ids := make(map[queue.TaskType]int64)
	for _, typ := range []queue.TaskType{
		queue.TypeChange, queue.TypeComment, queue.TypeMail,
		queue.TypeDescription, queue.TypeReview,
	} {
		id, err := q.Enqueue(ctx, queue.NewTask{
			Type:     typ,
			EntityID: "7",
			Payload:  queue.DescriptionPayload{Change: 7},
		})
		require.NoError(t, err)
		ids[typ] = id
	}

	c := NewConsumer(ConsumerConfig{Queue: q, Registry: reg, Workers: 3})
	t.Cleanup(c.Stop)

	n, err := c.DrainOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	tasks, err := q.List(ctx, 10)
	require.NoError(t, err)

	byID := make(map[int64]queue.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}

	_, ok := byID[ids[queue.TypeChange]]
	require.False(t, ok, "delivered task still listed")

	failed := byID[ids[queue.TypeComment]]
	require.Equal(t, queue.StatusPending, failed.Status)
	require.EqualValues(t, 1, failed.Attempts)
	require.Equal(t, "boom", failed.LastError)

	panicked := byID[ids[queue.TypeMail]]
	require.EqualValues(t, 1, panicked.Attempts)
	require.Contains(t, panicked.LastError, "mailer exploded")

	rescheduled := byID[ids[queue.TypeDescription]]
	require.Zero(t, rescheduled.Attempts)
	require.Equal(t, later.Unix(), rescheduled.NotBefore.Unix())

	unhandled := byID[ids[queue.TypeReview]]
	require.Contains(t, unhandled.LastError, ErrNoHandler.Error())
}

// TestConsumerRunStops drives the poll loop until cancellation.
func TestConsumerRunStops(t *testing.T) {
	t.Parallel()

	q := newQueue(t)

	var handled atomic.Int32
	reg := NewRegistry()
	reg.Register(queue.TypeChange, func(context.Context, queue.Task) error {
		handled.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := q.Enqueue(ctx, queue.NewTask{
		Type:    queue.TypeChange,
		Payload: queue.ChangePayload{Change: 1},
	})
	require.NoError(t, err)

	c := NewConsumer(ConsumerConfig{
		Queue:        q,
		Registry:     reg,
		PollInterval: 10 * time.Millisecond,
	})
	t.Cleanup(c.Stop)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// TestTypedRejectsBadPayload fails tasks whose payload does not decode.
func TestTypedRejectsBadPayload(t *testing.T) {
	t.Parallel()

	h := Typed(func(context.Context, queue.Task,
		queue.CommentPayload) error {

		return nil
	})

	err := h(context.Background(), queue.Task{
		ID:          3,
		Type:        queue.TypeComment,
		PayloadJSON: "{not json",
	})
	require.Error(t, err)
}
