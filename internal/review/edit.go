package review

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// EditRequest is a set of field changes made by User. Unset options are
// left alone.
type EditRequest struct {
	ID   int64
	User string

	State       fn.Option[State]
	Author      fn.Option[string]
	Description fn.Option[string]

	// Reviewers replaces every non-author participant.
	Reviewers fn.Option[map[string]RequiredFlag]

	// Join and Leave add or remove the caller.
	Join  bool
	Leave bool

	// Required makes the caller's own vote required or optional.
	Required fn.Option[bool]

	// Vote is the caller's vote: VoteUp, VoteDown or VoteClear.
	Vote fn.Option[int]

	// DisableNotifications toggles mail for the caller.
	DisableNotifications fn.Option[bool]

	// MarkRead marks the head version read or unread for the caller.
	MarkRead fn.Option[bool]

	// Commit is used when State is approved:commit.
	Commit CommitOptions

	// Quiet asks for activity without email.
	Quiet bool
}

func (req EditRequest) onlyMarksRead() bool {
	return req.MarkRead.IsSome() && req.State.IsNone() &&
		req.Author.IsNone() && req.Description.IsNone() &&
		req.Reviewers.IsNone() && !req.Join && !req.Leave &&
		req.Required.IsNone() && req.Vote.IsNone() &&
		req.DisableNotifications.IsNone()
}

// EditResult is the edited review plus what the caller may do next.
type EditResult struct {
	Review *Review

	Transitions   []State
	CanTransition bool

	CanEditReviewers bool
	CanEditAuthor    bool

	// Committed is the submitted change when the edit committed.
	Committed fn.Option[int64]
}

// CanEditReviewers reports whether role may change the reviewer list. On
// reviews without projects anyone signed in may.
func CanEditReviewers(r *Review, role Role) bool {
	if !role.IsAuthenticated {
		return false
	}
	if len(r.Projects) == 0 {
		return true
	}

	return role.IsAuthor || role.IsMember || role.IsModerator ||
		role.IsSuper
}

// CanEditAuthor reports whether role may reassign the review.
func CanEditAuthor(role Role, opts Options) bool {
	return opts.AllowAuthorChange && role.IsAuthenticated &&
		(role.IsSuper || role.IsAuthor)
}

// canEditDescription reports whether role may change the description.
func canEditDescription(role Role) bool {
	return role.IsAuthor || role.IsModerator || role.IsSuper
}

// Edit applies req to a review. Every field is validated before anything
// is changed. A request for approved:commit also commits the review.
func (s *Service) Edit(ctx context.Context, req EditRequest) (*EditResult,
	error) {

	if req.User == "" {
		return nil, fmt.Errorf("edit review %d: %w", req.ID,
			ErrForbidden)
	}

	var result *EditResult
	err := s.withReview(ctx, req.ID, func(r *Review) error {
		prev := r.Clone()
		role := s.Role(req.User, r)

		if err := s.validateEdit(r, role, req); err != nil {
			return err
		}

		applyEdit(r, req)

		// A finished commit attempt is only reported until the next
		// edit.
		if !r.CommitStatus.InProgress() && !req.onlyMarksRead() {
			r.CommitStatus = CommitStatus{}
		}

		result = &EditResult{Review: r}

		if req.State == fn.Some(StateApprovedCommit) {
			committed, err := s.commitLocked(ctx, prev, r,
				CommitRequest{
					ID:            req.ID,
					User:          req.User,
					CommitOptions: req.Commit,
				},
			)
			if err != nil {
				return err
			}
			result.Committed = fn.Some(committed)

			return nil
		}

		// Read markers are private to the caller.
		if req.onlyMarksRead() {
			return s.persist(ctx, r)
		}

		return s.saveAndPublish(ctx, prev, r, editEvent(prev, r, req))
	})
	if err != nil {
		return nil, err
	}

	role := s.Role(req.User, result.Review)
	result.Transitions, result.CanTransition = Transitions(
		result.Review, role, s.cfg.Directory, s.cfg.Options,
	)
	result.CanEditReviewers = CanEditReviewers(result.Review, role)
	result.CanEditAuthor = CanEditAuthor(role, s.cfg.Options)

	return result, nil
}

func (s *Service) validateEdit(r *Review, role Role, req EditRequest) error {
	dir := s.cfg.Directory

	if target, ok := req.State.UnwrapOr(""), req.State.IsSome(); ok {
		states, allowed := Transitions(r, role, dir, s.cfg.Options)
		if !allowed {
			return fmt.Errorf("transition review %d: %w", r.ID,
				ErrForbidden)
		}
		if !slices.Contains(states, target) {
			return invalid("state", "Cannot move review from %s "+
				"to %s", r.State, target)
		}
	}

	if author, ok := req.Author.UnwrapOr(""), req.Author.IsSome(); ok {
		if !CanEditAuthor(role, s.cfg.Options) {
			return fmt.Errorf("change author of review %d: %w",
				r.ID, ErrForbidden)
		}
		if !dir.UserExists(author) {
			return invalid("author", "Unknown user: %s", author)
		}
	}

	if req.Description.IsSome() && !canEditDescription(role) {
		return fmt.Errorf("change description of review %d: %w", r.ID,
			ErrForbidden)
	}

	if req.Reviewers.IsSome() {
		if !CanEditReviewers(r, role) {
			return fmt.Errorf("edit reviewers of review %d: %w",
				r.ID, ErrForbidden)
		}

		reviewers := req.Reviewers.UnwrapOr(nil)
		if err := s.validateReviewers(reviewers); err != nil {
			return err
		}
	}

	if req.Join && req.Leave {
		return invalid("join", "Cannot join and leave at once")
	}
	if req.Leave && role.IsAuthor {
		return invalid("leave", "Authors cannot leave their review")
	}

	if req.MarkRead.IsSome() && !req.Join {
		if _, ok := r.Participants.Get(req.User); !ok {
			return invalid("read", "Only participants can mark "+
				"review %d read", r.ID)
		}
	}

	if vote, ok := req.Vote.UnwrapOr(0), req.Vote.IsSome(); ok {
		if vote < VoteDown || vote > VoteUp {
			return invalid("vote", "Invalid vote value %d", vote)
		}
		if role.IsAuthor {
			return invalid("vote", "Authors cannot vote on their "+
				"own review")
		}
	}

	return nil
}

// applyEdit mutates r. The request has been validated.
func applyEdit(r *Review, req EditRequest) {
	user := req.User

	req.Reviewers.WhenSome(func(reviewers map[string]RequiredFlag) {
		kept := Participants{}
		for _, p := range r.Participants {
			_, listed := reviewers[p.ID]
			if listed || p.ID == r.Author {
				kept = append(kept, p)
			}
		}
		r.Participants = kept

		for id, flag := range reviewers {
			data, _ := r.Participants.Get(id)
			data.Required = flag
			r.Participants = r.Participants.Set(id, data)
		}
		r.Participants = sortedAfterAuthor(r.Participants, r.Author)
	})

	if req.Join {
		r.Participants = r.Participants.Add(user)
	}
	if req.Leave {
		r.Participants = r.Participants.Remove(user)
	}

	req.Required.WhenSome(func(required bool) {
		data, _ := r.Participants.Get(user)
		data.Required = RequiredNone
		if required {
			data.Required = RequiredAll
		}
		r.Participants = r.Participants.Set(user, data)
	})

	req.DisableNotifications.WhenSome(func(disabled bool) {
		data, _ := r.Participants.Get(user)
		data.NotificationsDisabled = disabled
		r.Participants = r.Participants.Set(user, data)
	})

	req.Vote.WhenSome(func(value int) {
		castVote(r, user, value)
	})

	req.MarkRead.WhenSome(func(read bool) {
		head := len(r.Versions)
		data, _ := r.Participants.Get(user)
		data.ReadBy = slices.DeleteFunc(
			slices.Clone(data.ReadBy),
			func(v int) bool { return v == head },
		)
		if read {
			data.ReadBy = append(data.ReadBy, head)
			slices.Sort(data.ReadBy)
		}
		r.Participants = r.Participants.Set(user, data)
	})

	req.Author.WhenSome(func(author string) {
		r.Author = author
		r.Participants = r.Participants.Add(author)
	})

	req.Description.WhenSome(func(desc string) {
		r.Description = desc
	})

	req.State.WhenSome(func(target State) {
		// Approving casts the approver's vote.
		if target.IsApproval() && user != r.Author {
			castVote(r, user, VoteUp)
		}
		if target != StateApprovedCommit {
			r.State = target
		}
	})
}

// castVote records user's vote against the head version.
func castVote(r *Review, user string, value int) {
	data, _ := r.Participants.Get(user)
	if value == VoteClear {
		data.Vote = fn.None[Vote]()
	} else {
		data.Vote = fn.Some(Vote{
			Value:   value,
			Version: len(r.Versions),
		})
	}
	r.Participants = r.Participants.Set(user, data)
}

// sortedAfterAuthor keeps the author first and the rest in id order.
func sortedAfterAuthor(ps Participants, author string) Participants {
	out := make(Participants, 0, len(ps))
	if data, ok := ps.Get(author); ok {
		out = append(out, Participant{ID: author, Data: data})
	}

	rest := ps.Remove(author)
	slices.SortFunc(rest, func(a, b Participant) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return append(out, rest...)
}

func editEvent(prev, r *Review, req EditRequest) Event {
	ev := Event{
		User:                req.User,
		IsStateChange:       prev.State != r.State,
		IsAuthorChange:      prev.Author != r.Author,
		IsDescriptionChange: prev.Description != r.Description,
		IsReviewersChange: req.Reviewers.IsSome() || req.Join ||
			req.Leave || req.Required.IsSome() ||
			req.DisableNotifications.IsSome(),
		Quiet: req.Quiet,
	}
	req.Vote.WhenSome(func(v int) {
		ev.Vote = &v
	})

	return ev
}
