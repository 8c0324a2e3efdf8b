// Package worker drains the task queue and runs a handler per task type on
// a pool of runner actors.
package worker

import (
	"context"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/queue"
	"golang.org/x/sync/errgroup"
)

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Queue    *queue.Store
	Registry *Registry

	// Workers is the number of runner actors, and so the number of tasks
	// handled at once.
	Workers int

	// PollInterval is how often the queue is drained.
	PollInterval time.Duration

	// BatchSize is the most tasks claimed per drain.
	BatchSize int

	// PurgeInterval is how often expired tasks are removed.
	PurgeInterval time.Duration
}

// DefaultConsumerConfig returns the consumer defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:       4,
		PollInterval:  time.Second,
		BatchSize:     32,
		PurgeInterval: 10 * time.Minute,
	}
}

// Consumer pulls due tasks from the queue and settles each one according
// to its handler's outcome. Delivery is at least once: a task claimed by a
// consumer that dies is reset to pending on the next start.
type Consumer struct {
	cfg  ConsumerConfig
	pool *actorutil.Pool[TaskMsg, TaskResult]
}

// NewConsumer starts the runner pool. Call Stop to release it.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	defaults := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = defaults.PurgeInterval
	}

	pool := actorutil.NewPool(actorutil.PoolConfig[TaskMsg, TaskResult]{
		ID:   "task-runner",
		Size: cfg.Workers,
		Factory: func(idx int) actor.ActorBehavior[TaskMsg, TaskResult] {
			return &runner{idx: idx, registry: cfg.Registry}
		},
		MailboxSize: cfg.BatchSize,
	})

	return &Consumer{cfg: cfg, pool: pool}
}

// Run drains the queue every poll interval until ctx is cancelled. Tasks
// left delivering by an earlier run are returned to pending first.
func (c *Consumer) Run(ctx context.Context) error {
	reset, err := c.cfg.Queue.ResetDelivering(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		log.InfoS(ctx, "Reset interrupted tasks", "count", reset)
	}

	log.InfoS(ctx, "Task consumer started", "workers", c.pool.Size(),
		"poll_interval", c.cfg.PollInterval,
		"types", c.cfg.Registry.Types())

	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	purge := time.NewTicker(c.cfg.PurgeInterval)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			log.InfoS(ctx, "Task consumer stopping")
			return nil

		case <-poll.C:
			// Keep draining while full batches come back so a
			// backlog does not wait a poll interval per batch.
			for {
				n, err := c.DrainOnce(ctx)
				if err != nil {
					log.ErrorS(ctx, "Drain failed", err)
					break
				}
				if n < c.cfg.BatchSize || ctx.Err() != nil {
					break
				}
			}

		case <-purge.C:
			n, err := c.cfg.Queue.PurgeExpired(ctx)
			if err != nil {
				log.ErrorS(ctx, "Purge failed", err)
				continue
			}
			if n > 0 {
				log.InfoS(ctx, "Purged expired tasks", "count", n)
			}
		}
	}
}

// DrainOnce claims one batch of due tasks, runs them on the pool and
// settles every one before returning the batch size.
func (c *Consumer) DrainOnce(ctx context.Context) (int, error) {
	tasks, err := c.cfg.Queue.Drain(ctx, c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.SetLimit(c.pool.Size())

	for _, t := range tasks {
		g.Go(func() error {
			c.process(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return len(tasks), nil
}

// Stop stops the runner pool.
func (c *Consumer) Stop() {
	c.pool.Stop()
}

func (c *Consumer) process(ctx context.Context, t queue.Task) {
	res, err := actorutil.AskAwait(ctx, c.pool, TaskMsg{Task: t})
	if err != nil {
		// The task stays delivering and is picked up again after a
		// restart.
		log.WarnS(ctx, "Task not run", err, "task_id", t.ID,
			"type", t.Type)
		return
	}

	if res.RetryAt.IsSome() {
		at := res.RetryAt.UnwrapOr(time.Time{})
		err := c.cfg.Queue.Reschedule(ctx, t.ID, at)
		if err != nil {
			log.ErrorS(ctx, "Reschedule failed", err, "task_id", t.ID)
			return
		}

		log.DebugS(ctx, "Task rescheduled", "task_id", t.ID,
			"type", t.Type, "not_before", at)
		return
	}

	if res.Err != nil {
		log.WarnS(ctx, "Task failed", res.Err, "task_id", t.ID,
			"type", t.Type, "attempt", t.Attempts+1)

		err := c.cfg.Queue.MarkFailed(ctx, t.ID, res.Err.Error())
		if err != nil {
			log.ErrorS(ctx, "Mark failed failed", err, "task_id", t.ID)
		}
		return
	}

	if err := c.cfg.Queue.MarkDelivered(ctx, t.ID); err != nil {
		log.ErrorS(ctx, "Mark delivered failed", err, "task_id", t.ID)
		return
	}

	log.DebugS(ctx, "Task delivered", "task_id", t.ID, "type", t.Type)
}
