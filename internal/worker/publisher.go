package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wangchlxt/Swarm-sub001/internal/queue"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// Publisher is the producer side of the queue. It implements
// review.Publisher and queues change and comment events from outside the
// engine.
type Publisher struct {
	queue Enqueuer
}

// NewPublisher returns a publisher writing to q.
func NewPublisher(q Enqueuer) *Publisher {
	return &Publisher{queue: q}
}

// PublishReviewEvent queues ev as a task.review task.
func (p *Publisher) PublishReviewEvent(ctx context.Context,
	ev review.Event) error {

	id, err := p.queue.Enqueue(ctx, queue.NewTask{
		Type:     queue.TypeReview,
		EntityID: strconv.FormatInt(ev.ReviewID, 10),
		Payload:  queue.ReviewPayload(ev),
	})
	if err != nil {
		return fmt.Errorf("queue review event: %w", err)
	}

	log.DebugS(ctx, "Queued review event", "task_id", id,
		"review_id", ev.ReviewID, "fields", ev.Fields)

	return nil
}

// PublishChange queues a saved or shelved change.
func (p *Publisher) PublishChange(ctx context.Context, change int64,
	user string) (int64, error) {

	return p.queue.Enqueue(ctx, queue.NewTask{
		Type:     queue.TypeChange,
		EntityID: strconv.FormatInt(change, 10),
		Payload:  queue.ChangePayload{Change: change, User: user},
	})
}

// PublishComment queues a comment on a review.
func (p *Publisher) PublishComment(ctx context.Context, reviewID int64,
	user, body string) (int64, error) {

	return p.queue.Enqueue(ctx, queue.NewTask{
		Type:     queue.TypeComment,
		EntityID: strconv.FormatInt(reviewID, 10),
		Payload: queue.CommentPayload{
			ReviewID: reviewID,
			User:     user,
			Body:     body,
		},
	})
}

var _ review.Publisher = (*Publisher)(nil)
