// Package app assembles the engine from a configuration: storage, queue,
// locks, actors, the review service and the task consumer.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/config"
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
	"github.com/wangchlxt/Swarm-sub001/internal/worker"
	"golang.org/x/sync/errgroup"
)

// Deps overrides collaborators New would otherwise build from the config.
type Deps struct {
	Versions  versionstore.Store
	Directory directory.Directory
	Mailer    mail.Mailer
}

// App holds the wired engine.
type App struct {
	cfg config.Config

	DB        *db.Store
	Queue     *queue.Store
	Locker    lock.Locker
	Directory directory.Directory
	Versions  versionstore.Store
	Reviews   *review.Service
	Publisher *worker.Publisher
	Reconcile *reconcile.Engine

	// ReviewActor runs the review service. Callers outside the worker's
	// locked read path go through it.
	ReviewActor review.ServiceRef

	Activity activity.ActivityActorRef
	Hub      activity.HubRef
	Mail     mail.MailActorRef

	reloader *directory.Reloader
	handlers *worker.Handlers

	reviewPool    *actorutil.Pool[review.Request, review.Response]
	hubActor      *actor.Actor[activity.HubRequest, activity.HubResponse]
	activityActor *actor.Actor[activity.ActivityRequest, activity.ActivityResponse]
	mailActor     *actor.Actor[mail.MailRequest, mail.MailResponse]
}

// New opens the database and starts the actors. Call Close when done.
func New(ctx context.Context, cfg config.Config, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbStore, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{cfg: cfg, DB: dbStore}
	if err := a.wire(deps); err != nil {
		dbStore.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) wire(deps Deps) error {
	cfg := a.cfg

	a.Queue = queue.NewStore(a.DB, queue.Config{
		MaxPending:         cfg.Queue.MaxPending,
		DefaultTTL:         cfg.Queue.TTL.D(),
		MaxAttempts:        cfg.Queue.MaxAttempts,
		DeliveredRetention: cfg.Queue.DeliveredRetention.D(),
	})

	switch cfg.Lock.Backend {
	case config.LockSQLite:
		a.Locker = lock.NewSQLLocker(a.DB, cfg.Lock.Lease.D())
	default:
		a.Locker = lock.NewManager()
	}

	switch {
	case deps.Directory != nil:
		a.Directory = deps.Directory

	case cfg.Directory.Path != "":
		r, err := directory.NewReloader(cfg.Directory.Path)
		if err != nil {
			return err
		}
		a.reloader = r
		a.Directory = r

	default:
		a.Directory = directory.NewStatic(directory.File{})
	}

	switch {
	case deps.Versions != nil:
		a.Versions = deps.Versions

	case cfg.Versions.Fixtures != "":
		m, err := versionstore.LoadFixtures(cfg.Versions.Fixtures)
		if err != nil {
			return err
		}
		a.Versions = m

	default:
		a.Versions = versionstore.NewMemory()
	}

	a.Publisher = worker.NewPublisher(a.Queue)
	a.Reconcile = reconcile.NewEngine(a.Versions)
	a.Reviews = review.NewService(review.ServiceConfig{
		Store:     store.NewSqlcStore(a.DB),
		Versions:  a.Versions,
		Directory: a.Directory,
		Locker:    a.Locker,
		Publisher: a.Publisher,
		Options: review.Options{
			DisableCommit:      cfg.Review.DisableCommit,
			DisableSelfApprove: cfg.Review.DisableSelfApprove,
			AllowAuthorChange:  cfg.Review.AllowAuthorChange,
		},
	})

	a.reviewPool = review.NewServicePool(a.Reviews, cfg.Worker.Count)
	a.ReviewActor = a.reviewPool

	a.hubActor = activity.NewHubActor()
	a.hubActor.Start()
	a.Hub = a.hubActor.Ref()

	a.activityActor = activity.NewActivityActor(activity.ServiceConfig{
		Store: store.NewSqlcStore(a.DB),
		Hub:   fn.Some[actor.TellOnlyRef[activity.HubRequest]](a.Hub),
	})
	a.activityActor.Start()
	a.Activity = a.activityActor.Ref()

	a.mailActor = mail.NewMailActor(mail.ActorConfig{
		Service: mail.ServiceConfig{
			Mailer:   deps.Mailer,
			Renderer: mail.NewRenderer(cfg.Mail.BaseURL),
			Sender:   cfg.Mail.Sender,
			Domain:   cfg.Mail.Domain,
		},
	})
	a.mailActor.Start()
	a.Mail = a.mailActor.Ref()

	a.handlers = worker.NewHandlers(worker.HandlersConfig{
		Reviews:   a.ReviewActor,
		Loader:    a.Reviews,
		Versions:  a.Versions,
		Directory: a.Directory,
		Locker:    a.Locker,
		Composer:  activity.NewComposer(a.Directory, nil),
		Reconcile: a.Reconcile,
		Activity:  a.Activity,
		Dispatcher: mail.NewDispatcher(mail.DispatcherConfig{
			Directory: a.Directory,
			Host:      cfg.Mail.Host,
		}),
		Mail: a.Mail,
		Webhooks: webhook.NewClient(webhook.Config{
			CallbackBase: cfg.Webhook.CallbackBase,
			Timeout:      cfg.Webhook.Timeout.D(),
		}),
		Queue:            a.Queue,
		ImportUser:       cfg.Import.User,
		ImportDelay:      cfg.Import.Delay.D(),
		DescriptionDelay: cfg.Review.DescriptionSyncDelay.D(),
		MaxFiles:         cfg.Review.MaxFiles,
	})

	return nil
}

// Run consumes the queue, and watches the directory file when configured,
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	reg := worker.NewRegistry()
	a.handlers.Register(reg)

	consumer := worker.NewConsumer(worker.ConsumerConfig{
		Queue:         a.Queue,
		Registry:      reg,
		Workers:       a.cfg.Worker.Count,
		PollInterval:  a.cfg.Worker.PollInterval.D(),
		BatchSize:     a.cfg.Worker.BatchSize,
		PurgeInterval: a.cfg.Worker.PurgeInterval.D(),
	})
	defer consumer.Stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, stream := range a.cfg.Activity.Follow {
		records, stop, err := a.Follow(ctx, stream)
		if err != nil {
			return err
		}
		defer stop()

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case rec := <-records:
					log.InfoS(ctx, rec.Text(), "stream", stream,
						"activity_id", rec.ID)
				}
			}
		})
	}

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	if a.reloader != nil && a.cfg.Directory.Watch {
		g.Go(func() error {
			return a.reloader.Watch(ctx)
		})
	}

	return g.Wait()
}

// Follow subscribes to a stream's new records. The returned function
// unsubscribes.
func (a *App) Follow(ctx context.Context,
	stream string) (<-chan activity.Record, func(), error) {

	id := "follow-" + uuid.NewString()
	records := make(chan activity.Record, 64)

	_, err := a.Hub.Ask(ctx, activity.SubscribeMsg{
		Stream:       stream,
		SubscriberID: id,
		DeliveryChan: records,
	}).Await(ctx).Unpack()
	if err != nil {
		return nil, nil, fmt.Errorf("follow %s: %w", stream, err)
	}

	stop := func() {
		a.Hub.Tell(context.Background(), activity.UnsubscribeMsg{
			Stream:       stream,
			SubscriberID: id,
		})
	}

	return records, stop, nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Close stops the actors and closes the database.
func (a *App) Close() error {
	a.mailActor.Stop()
	a.activityActor.Stop()
	a.hubActor.Stop()
	a.reviewPool.Stop()

	return a.DB.Close()
}
