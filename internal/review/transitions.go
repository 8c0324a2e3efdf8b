package review

import (
	"slices"

	"github.com/wangchlxt/Swarm-sub001/internal/directory"
)

// Options are the administrative switches of the workflow.
type Options struct {
	// DisableCommit hides approved:commit everywhere.
	DisableCommit bool

	// DisableSelfApprove stops authors approving their own reviews.
	DisableSelfApprove bool

	// AllowAuthorChange lets authors and super users reassign a review.
	AllowAuthorChange bool
}

// baseTransitions is the role independent transition table.
var baseTransitions = map[State][]State{
	StateNeedsReview: {
		StateNeedsRevision, StateApproved, StateApprovedCommit,
		StateRejected, StateArchived,
	},
	StateNeedsRevision: {
		StateNeedsReview, StateApproved, StateApprovedCommit,
		StateRejected, StateArchived,
	},
	StateApproved: {
		StateNeedsReview, StateNeedsRevision, StateApprovedCommit,
		StateRejected, StateArchived,
	},
	StateRejected: {
		StateNeedsReview, StateNeedsRevision, StateApproved,
		StateApprovedCommit, StateArchived,
	},
	StateArchived: {
		StateNeedsReview, StateNeedsRevision, StateApproved,
		StateApprovedCommit, StateRejected,
	},
}

// Transitions lists the states role may move r to. The boolean is false
// when the caller may not transition the review at all.
func Transitions(r *Review, role Role, dir directory.Directory,
	opts Options) ([]State, bool) {

	if !role.IsAuthenticated {
		return nil, false
	}

	states := slices.Clone(baseTransitions[r.State])
	alreadyApproved := r.State == StateApproved

	if opts.DisableCommit || !r.Pending {
		states = without(states, StateApprovedCommit)
	}

	blockApproval := HasOutstandingVotes(r, dir, role.User, r.Author) ||
		(opts.DisableSelfApprove && role.IsAuthor && !alreadyApproved)
	if blockApproval {
		states = without(states, StateApproved, StateApprovedCommit)
	}

	switch {
	case moderated(r, dir):
		if role.IsSuper || role.IsModerator {
			break
		}

		var allowed []State
		switch {
		case role.IsAuthor:
			allowed = []State{
				StateNeedsReview, StateNeedsRevision,
				StateArchived,
			}
		case role.IsMember:
			allowed = []State{StateNeedsReview, StateNeedsRevision}
		default:
			return nil, false
		}
		if alreadyApproved {
			allowed = append(
				allowed, StateApproved, StateApprovedCommit,
			)
		}

		states = slices.DeleteFunc(states, func(s State) bool {
			return !slices.Contains(allowed, s)
		})

	case len(r.Projects) > 0:
		if !role.IsMember && !role.IsAuthor && !role.IsSuper {
			return nil, false
		}
	}

	return states, true
}

// CanTransition reports whether role may move r to target.
func CanTransition(r *Review, role Role, dir directory.Directory,
	opts Options, target State) bool {

	states, ok := Transitions(r, role, dir, opts)

	return ok && slices.Contains(states, target)
}

func without(states []State, drop ...State) []State {
	return slices.DeleteFunc(states, func(s State) bool {
		return slices.Contains(drop, s)
	})
}
