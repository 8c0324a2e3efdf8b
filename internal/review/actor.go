package review

import (
	"context"
	"fmt"

	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
)

// ServiceRef is the typed actor reference for the review service.
type ServiceRef = actor.ActorRef[Request, Response]

// NewServicePool starts size actors that all run svc. Mutations still
// serialise on the review lock, so members only run different reviews in
// parallel.
func NewServicePool(svc *Service,
	size int) *actorutil.Pool[Request, Response] {

	return actorutil.NewPool(actorutil.PoolConfig[Request, Response]{
		ID:   "review-service",
		Size: size,
		Factory: func(int) actor.ActorBehavior[Request, Response] {
			return svc
		},
		MailboxSize: 100,
	})
}

// ask sends msg and narrows the reply to T.
func ask[T Response](ctx context.Context, ref ServiceRef,
	msg Request) (T, error) {

	var zero T

	resp, err := actorutil.AskAwait(ctx, ref, msg)
	if err != nil {
		return zero, err
	}

	typed, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected review response %T", resp)
	}

	return typed, nil
}

// AskAttach runs CreateOrAttach through ref.
func AskAttach(ctx context.Context, ref ServiceRef,
	req AttachRequest) (*Review, error) {

	resp, err := ask[ReviewResp](ctx, ref, AttachMsg{AttachRequest: req})

	return resp.Review, err
}

// AskEdit runs Edit through ref.
func AskEdit(ctx context.Context, ref ServiceRef,
	req EditRequest) (*EditResult, error) {

	resp, err := ask[EditResp](ctx, ref, EditMsg{EditRequest: req})

	return resp.EditResult, err
}

// AskCommit runs Commit through ref.
func AskCommit(ctx context.Context, ref ServiceRef,
	req CommitRequest) (*CommitResult, error) {

	resp, err := ask[CommitResp](ctx, ref, CommitMsg{CommitRequest: req})

	return resp.CommitResult, err
}

// AskStatus reports a test or deploy status through ref.
func AskStatus(ctx context.Context, ref ServiceRef,
	msg StatusMsg) (*Review, error) {

	resp, err := ask[ReviewResp](ctx, ref, msg)

	return resp.Review, err
}

// AskRemoveVersion runs RemoveVersion through ref.
func AskRemoveVersion(ctx context.Context, ref ServiceRef,
	req RemoveVersionRequest) (*Review, error) {

	resp, err := ask[ReviewResp](
		ctx, ref, RemoveVersionMsg{RemoveVersionRequest: req},
	)

	return resp.Review, err
}

// AskSyncDescription runs SyncDescription through ref.
func AskSyncDescription(ctx context.Context, ref ServiceRef,
	change int64) ([]int64, error) {

	resp, err := ask[IDsResp](ctx, ref, SyncDescriptionMsg{Change: change})

	return resp.IDs, err
}

// AskReviewsForChange runs ReviewsForChange through ref.
func AskReviewsForChange(ctx context.Context, ref ServiceRef,
	change int64) ([]int64, error) {

	resp, err := ask[IDsResp](ctx, ref, ChangeReviewsMsg{Change: change})

	return resp.IDs, err
}

// AskGet loads one review through ref.
func AskGet(ctx context.Context, ref ServiceRef, id int64) (*Review, error) {
	resp, err := ask[ReviewResp](ctx, ref, GetReviewMsg{ID: id})

	return resp.Review, err
}

// AskGetMany loads several reviews at once. The lookups are spread over
// the pool behind ref and the reviews come back in ids order. The first
// failure is returned.
func AskGetMany(ctx context.Context, ref ServiceRef,
	ids []int64) ([]*Review, error) {

	refs := make([]actor.ActorRef[Request, Response], len(ids))
	msgs := make([]Request, len(ids))
	for i, id := range ids {
		refs[i] = ref
		msgs[i] = GetReviewMsg{ID: id}
	}

	results := actorutil.AskAll(ctx, refs, msgs)

	reviews := make([]*Review, len(ids))
	for i, res := range results {
		resp, err := res.Unpack()
		if err != nil {
			return nil, err
		}

		rr, ok := resp.(ReviewResp)
		if !ok {
			return nil, fmt.Errorf("unexpected review response %T",
				resp)
		}
		reviews[i] = rr.Review
	}

	return reviews, nil
}

// AskList pages through reviews through ref.
func AskList(ctx context.Context, ref ServiceRef, limit,
	offset int) ([]*Review, error) {

	resp, err := ask[ListResp](
		ctx, ref, ListMsg{Limit: limit, Offset: offset},
	)

	return resp.Reviews, err
}
