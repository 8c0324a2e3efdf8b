package review

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
)

// Request is the union type for all review service requests.
type Request interface {
	actor.Message
	isReviewRequest()
}

// Response is the union type for all review service responses.
type Response interface {
	isReviewResponse()
}

// Ensure all request types implement Request.
func (AttachMsg) isReviewRequest()          {}
func (EditMsg) isReviewRequest()            {}
func (CommitMsg) isReviewRequest()          {}
func (StatusMsg) isReviewRequest()          {}
func (GetReviewMsg) isReviewRequest()       {}
func (ListMsg) isReviewRequest()            {}
func (RemoveVersionMsg) isReviewRequest()   {}
func (SyncDescriptionMsg) isReviewRequest() {}
func (ChangeReviewsMsg) isReviewRequest()   {}

// Ensure all response types implement Response.
func (ReviewResp) isReviewResponse() {}
func (EditResp) isReviewResponse()   {}
func (CommitResp) isReviewResponse() {}
func (ListResp) isReviewResponse()   {}
func (IDsResp) isReviewResponse()    {}

// AttachMsg asks the service to create or attach a review.
type AttachMsg struct {
	actor.BaseMessage
	AttachRequest
}

// MessageType implements actor.Message.
func (AttachMsg) MessageType() string { return "AttachMsg" }

// EditMsg edits a review.
type EditMsg struct {
	actor.BaseMessage
	EditRequest
}

// MessageType implements actor.Message.
func (EditMsg) MessageType() string { return "EditMsg" }

// CommitMsg commits a review.
type CommitMsg struct {
	actor.BaseMessage
	CommitRequest
}

// MessageType implements actor.Message.
func (CommitMsg) MessageType() string { return "CommitMsg" }

// StatusKind picks the status a StatusMsg reports.
type StatusKind uint8

const (
	StatusKindTest StatusKind = iota
	StatusKindDeploy
)

// StatusMsg reports a test or deploy status.
type StatusMsg struct {
	actor.BaseMessage

	Kind    StatusKind
	ID      int64
	Token   string
	Status  string
	Details StatusDetails
}

// MessageType implements actor.Message.
func (StatusMsg) MessageType() string { return "StatusMsg" }

// GetReviewMsg loads one review.
type GetReviewMsg struct {
	actor.BaseMessage
	ID int64
}

// MessageType implements actor.Message.
func (GetReviewMsg) MessageType() string { return "GetReviewMsg" }

// ListMsg lists reviews newest first.
type ListMsg struct {
	actor.BaseMessage
	Limit  int
	Offset int
}

// MessageType implements actor.Message.
func (ListMsg) MessageType() string { return "ListMsg" }

// RemoveVersionMsg drops one version from a review.
type RemoveVersionMsg struct {
	actor.BaseMessage
	RemoveVersionRequest
}

// MessageType implements actor.Message.
func (RemoveVersionMsg) MessageType() string { return "RemoveVersionMsg" }

// SyncDescriptionMsg copies a change description onto its reviews.
type SyncDescriptionMsg struct {
	actor.BaseMessage
	Change int64
}

// MessageType implements actor.Message.
func (SyncDescriptionMsg) MessageType() string { return "SyncDescriptionMsg" }

// ChangeReviewsMsg looks up the reviews holding a change.
type ChangeReviewsMsg struct {
	actor.BaseMessage
	Change int64
}

// MessageType implements actor.Message.
func (ChangeReviewsMsg) MessageType() string { return "ChangeReviewsMsg" }

// ReviewResp carries a single review.
type ReviewResp struct {
	Review *Review
}

// EditResp carries an edit result.
type EditResp struct {
	*EditResult
}

// CommitResp carries a commit result.
type CommitResp struct {
	*CommitResult
}

// ListResp carries a page of reviews.
type ListResp struct {
	Reviews []*Review
}

// IDsResp carries review ids.
type IDsResp struct {
	IDs []int64
}

// Ensure Service implements ActorBehavior.
var _ actor.ActorBehavior[Request, Response] = (*Service)(nil)

// Receive implements actor.ActorBehavior by dispatching to the service
// operations.
func (s *Service) Receive(ctx context.Context,
	msg Request) fn.Result[Response] {

	switch m := msg.(type) {
	case AttachMsg:
		r, err := s.CreateOrAttach(ctx, m.AttachRequest)
		return respond[Response](ReviewResp{Review: r}, err)

	case EditMsg:
		res, err := s.Edit(ctx, m.EditRequest)
		return respond[Response](EditResp{EditResult: res}, err)

	case CommitMsg:
		res, err := s.Commit(ctx, m.CommitRequest)
		return respond[Response](CommitResp{CommitResult: res}, err)

	case StatusMsg:
		set := s.TestStatus
		if m.Kind == StatusKindDeploy {
			set = s.DeployStatus
		}
		r, err := set(ctx, m.ID, m.Token, m.Status, m.Details)
		return respond[Response](ReviewResp{Review: r}, err)

	case GetReviewMsg:
		r, err := s.Get(ctx, m.ID)
		return respond[Response](ReviewResp{Review: r}, err)

	case ListMsg:
		rs, err := s.List(ctx, m.Limit, m.Offset)
		return respond[Response](ListResp{Reviews: rs}, err)

	case RemoveVersionMsg:
		r, err := s.RemoveVersion(ctx, m.RemoveVersionRequest)
		return respond[Response](ReviewResp{Review: r}, err)

	case SyncDescriptionMsg:
		ids, err := s.SyncDescription(ctx, m.Change)
		return respond[Response](IDsResp{IDs: ids}, err)

	case ChangeReviewsMsg:
		ids, err := s.ReviewsForChange(ctx, m.Change)
		return respond[Response](IDsResp{IDs: ids}, err)

	default:
		return fn.Err[Response](fmt.Errorf(
			"unknown message type: %T", msg,
		))
	}
}

func respond[R any](resp R, err error) fn.Result[R] {
	if err != nil {
		return fn.Err[R](err)
	}

	return fn.Ok(resp)
}
