// Package review holds the review aggregate and the workflow rules around
// it: which state transitions a caller may make, whether required votes are
// outstanding, and the lock-protected service that mutates reviews.
package review

import (
	"maps"
	"slices"
	"time"
)

// State is the workflow state of a review.
type State string

const (
	StateNeedsReview   State = "needsReview"
	StateNeedsRevision State = "needsRevision"
	StateApproved      State = "approved"
	StateRejected      State = "rejected"
	StateArchived      State = "archived"

	// StateApprovedCommit requests approval together with a commit. It
	// is never stored; a successful commit leaves the review approved.
	StateApprovedCommit State = "approved:commit"
)

// Valid reports whether s can be stored on a review.
func (s State) Valid() bool {
	switch s {
	case StateNeedsReview, StateNeedsRevision, StateApproved,
		StateRejected, StateArchived:

		return true
	}

	return false
}

// IsApproval reports whether s is one of the approved states.
func (s State) IsApproval() bool {
	return s == StateApproved || s == StateApprovedCommit
}

// Type says where a review's changes come from.
type Type string

const (
	TypeDefault Type = "default"
	TypeGit     Type = "git"
)

// Version is one change recorded against a review. Its externally visible
// number is its index plus one.
type Version struct {
	Change        int64     `json:"change"`
	ArchiveChange int64     `json:"archiveChange,omitempty"`
	Pending       bool      `json:"pending"`
	User          string    `json:"user,omitempty"`
	Time          time.Time `json:"time"`
}

// DiffChange is the change to read files from for this version.
func (v Version) DiffChange() int64 {
	if v.ArchiveChange != 0 {
		return v.ArchiveChange
	}

	return v.Change
}

// StatusDetails is the bookkeeping kept with a test or deploy status.
type StatusDetails struct {
	URL      string    `json:"url,omitempty"`
	Version  int       `json:"version,omitempty"`
	Started  time.Time `json:"started,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
}

// Commit status values.
const (
	CommitCommitting = "Committing"
	CommitCommitted  = "Committed"
)

// CommitStatus tracks the last commit attempt. It is kept apart from the
// review state: a failed attempt rolls the state back but leaves its error
// here until the next edit.
type CommitStatus struct {
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
	Change    int64     `json:"change,omitempty"`
	Status    string    `json:"status,omitempty"`
	Committer string    `json:"committer,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// IsZero reports whether no commit was attempted.
func (c CommitStatus) IsZero() bool {
	return c == CommitStatus{}
}

// InProgress reports whether a commit is running.
func (c CommitStatus) InProgress() bool {
	return c.Status == CommitCommitting && c.End.IsZero()
}

// Review is the review aggregate.
type Review struct {
	ID          int64
	Type        Type
	State       State
	Author      string
	Description string

	// Pending is set while the review has uncommitted work.
	Pending bool

	Participants Participants
	Versions     []Version

	// Projects maps project id to the affected branch ids.
	Projects map[string][]string

	Changes []int64
	Commits []int64

	TestStatus    string
	TestDetails   StatusDetails
	DeployStatus  string
	DeployDetails StatusDetails

	// Token authorises the test and deploy callbacks.
	Token string

	CommitStatus CommitStatus

	Created time.Time
	Updated time.Time
}

// Clone returns a deep copy.
func (r *Review) Clone() *Review {
	out := *r
	out.Participants = r.Participants.Clone()
	out.Versions = slices.Clone(r.Versions)
	out.Changes = slices.Clone(r.Changes)
	out.Commits = slices.Clone(r.Commits)
	out.Projects = cloneProjects(r.Projects)

	return &out
}

func cloneProjects(p map[string][]string) map[string][]string {
	if p == nil {
		return nil
	}

	out := make(map[string][]string, len(p))
	for id, branches := range p {
		out[id] = slices.Clone(branches)
	}

	return out
}

// HeadVersion returns the newest version.
func (r *Review) HeadVersion() (Version, bool) {
	if len(r.Versions) == 0 {
		return Version{}, false
	}

	return r.Versions[len(r.Versions)-1], true
}

// VersionOf returns the 1-based version number holding change, or 0.
func (r *Review) VersionOf(change int64) int {
	for i := len(r.Versions) - 1; i >= 0; i-- {
		v := r.Versions[i]
		if v.Change == change || v.ArchiveChange == change {
			return i + 1
		}
	}

	return 0
}

// HasChange reports whether change is one of the review's changes or
// commits.
func (r *Review) HasChange(change int64) bool {
	return slices.Contains(r.Changes, change) ||
		slices.Contains(r.Commits, change)
}

// ChangeIDs lists every change id indexed for the review.
func (r *Review) ChangeIDs() []int64 {
	ids := slices.Concat(r.Changes, r.Commits)
	for _, v := range r.Versions {
		ids = append(ids, v.Change)
		if v.ArchiveChange != 0 {
			ids = append(ids, v.ArchiveChange)
		}
	}
	slices.Sort(ids)

	return slices.Compact(ids)
}

// ProjectIDs lists the affected project ids in sorted order.
func (r *Review) ProjectIDs() []string {
	return slices.Sorted(maps.Keys(r.Projects))
}

// Topic is the comment and mail threading topic of the review.
func (r *Review) Topic() string {
	return TopicFor(r.ID)
}

// Snapshot captures the fields later notifications compare against.
func (r *Review) Snapshot() Snapshot {
	return Snapshot{
		State:        r.State,
		Author:       r.Author,
		Description:  r.Description,
		Participants: r.Participants.Clone(),
		Versions:     slices.Clone(r.Versions),
		TestStatus:   r.TestStatus,
		DeployStatus: r.DeployStatus,
		Projects:     cloneProjects(r.Projects),
	}
}

// Snapshot is the immutable "before" picture carried in queued events.
type Snapshot struct {
	State        State               `json:"state"`
	Author       string              `json:"author"`
	Description  string              `json:"description"`
	Participants Participants        `json:"participants"`
	Versions     []Version           `json:"versions"`
	TestStatus   string              `json:"testStatus,omitempty"`
	DeployStatus string              `json:"deployStatus,omitempty"`
	Projects     map[string][]string `json:"projects,omitempty"`
}
