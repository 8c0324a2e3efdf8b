package review

import (
	"slices"

	"github.com/wangchlxt/Swarm-sub001/internal/directory"
)

// HasOutstandingVotes reports whether required votes still block approval.
//
// The ids in assumeUp are treated as having voted up: callers pass the
// acting user, since approving casts their vote, and the author, who cannot
// vote on their own review.
//
// A required user must vote up. Every member of a required group must vote
// up. A quorum-one group needs an up vote from any one member.
func HasOutstandingVotes(r *Review, dir directory.Directory,
	assumeUp ...string) bool {

	up := make(map[string]struct{})
	for _, id := range r.Participants.UpVoters() {
		up[id] = struct{}{}
	}
	for _, id := range assumeUp {
		if id != "" {
			up[id] = struct{}{}
		}
	}

	votedUp := func(user string) bool {
		_, ok := up[user]
		return ok
	}

	for _, p := range r.Participants {
		if p.Data.Required == RequiredNone {
			continue
		}

		if !p.IsGroup() {
			if !votedUp(p.ID) {
				return true
			}
			continue
		}

		members := dir.GroupMembers(directory.GroupID(p.ID))
		switch p.Data.Required {
		case RequiredQuorumOne:
			if !slices.ContainsFunc(members, votedUp) {
				return true
			}

		default:
			for _, m := range members {
				if !votedUp(m) {
					return true
				}
			}
		}
	}

	return false
}
