package activity

import (
	"slices"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// Actions.
const (
	ActionRequested            = "requested"
	ActionUpdated              = "updated"
	ActionUpdatedFiles         = "updated files in"
	ActionJoined               = "joined"
	ActionLeft                 = "left"
	ActionMadeRequired         = "made their vote required on"
	ActionMadeOptional         = "made their vote optional on"
	ActionEditedReviewers      = "edited reviewers on"
	ActionDisabledNotify       = "disabled notifications on"
	ActionEnabledNotify        = "re-enabled notifications on"
	ActionVotedUp              = "voted up"
	ActionVotedDown            = "voted down"
	ActionClearedVote          = "cleared their vote on"
	ActionCommitted            = "committed"
	ActionApprovedAndCommitted = "approved and committed"
	ActionChangedAuthor        = "changed author of"
	ActionUpdatedDescription   = "updated description of"
	ActionPassedTests          = "reported passing tests for"
	ActionFailedTests          = "reported failing tests for"
	ActionStartedTests         = "started tests for"
	ActionDeployed             = "reported a successful deploy of"
	ActionDeployFailed         = "reported a failed deploy of"
	ActionCommentedOn          = "commented on"
)

// stateActions names a move into each state.
var stateActions = map[review.State]string{
	review.StateNeedsReview:   "requested further review of",
	review.StateNeedsRevision: "requested revisions to",
	review.StateApproved:      "approved",
	review.StateRejected:      "rejected",
	review.StateArchived:      "archived",
}

var testActions = map[string]string{
	review.StatusPass:    ActionPassedTests,
	review.StatusFail:    ActionFailedTests,
	review.StatusRunning: ActionStartedTests,
}

var deployActions = map[string]string{
	review.StatusPass: ActionDeployed,
	review.StatusFail: ActionDeployFailed,
}

// disregardedFields change without anyone needing mail about it.
var disregardedFields = map[string]struct{}{
	"commitStatus":  {},
	"testDetails":   {},
	"deployDetails": {},
}

// Notice is a composed activity plus what mail delivery needs to know.
type Notice struct {
	Record Record

	// Quiet suppresses mail but not the activity record.
	Quiet bool

	// Recipients are the users to mail, groups expanded.
	Recipients []string

	IsAdd bool

	// TestStatus and PreviousTestStatus let mail delivery keep flapping
	// test results audible.
	TestStatus         string
	PreviousTestStatus string
}

// Composer derives activity from review events.
type Composer struct {
	dir      directory.Directory
	sanitize *bluemonday.Policy
	now      func() time.Time
}

// NewComposer returns a composer resolving groups through dir.
func NewComposer(dir directory.Directory, now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}

	return &Composer{
		dir:      dir,
		sanitize: bluemonday.StrictPolicy(),
		now:      now,
	}
}

// refinement is the action and details a refiner sets.
type refinement struct {
	action  string
	details map[string]any
}

type refiner func(r *review.Review, ev review.Event) (refinement, bool)

var refiners = []refiner{
	refineReviewers, refineVote, refineState, refineAuthor,
	refineDescription, refineStatus,
}

// Compose builds the notice for ev applied to r. Refinements run in a fixed
// order and later ones win: reviewers, vote, state, author, description,
// then test status.
func (c *Composer) Compose(r *review.Review, ev review.Event) Notice {
	rec := Record{
		Type:     TypeReview,
		User:     ev.User,
		Action:   ActionUpdated,
		Target:   "review " + strconv.FormatInt(r.ID, 10),
		Topic:    r.Topic(),
		Time:     c.now(),
		Projects: r.Projects,
	}

	switch {
	case ev.IsAdd:
		rec.Action = ActionRequested
	case ev.UpdateFromChange != 0:
		rec.Action = ActionUpdatedFiles
	}
	if ev.UpdateFromChange != 0 {
		rec.Preposition = "for"
		rec.Change = ev.UpdateFromChange
	}

	for _, refine := range refiners {
		if ref, ok := refine(r, ev); ok {
			rec.Action = ref.action
			rec.Details = ref.details
		}
	}

	if ev.IsCommit {
		rec.Preposition = "for"
		rec.Change = ev.CommitChange
	}

	rec.Description = c.description(r, ev)
	rec.Followers = directory.Expand(c.dir, r.Participants.IDs())
	rec.Streams = c.streams(r, ev, rec.Followers)

	n := Notice{
		Record:     rec,
		Quiet:      quiet(ev),
		Recipients: c.recipients(r),
		IsAdd:      ev.IsAdd,
		TestStatus: ev.TestStatus,
	}
	if ev.Previous != nil {
		n.PreviousTestStatus = ev.Previous.TestStatus
	}

	return n
}

// ComposeComment builds the notice for a comment on r.
func (c *Composer) ComposeComment(r *review.Review, user,
	body string) Notice {

	rec := Record{
		Type:        TypeComment,
		User:        user,
		Action:      ActionCommentedOn,
		Target:      "review " + strconv.FormatInt(r.ID, 10),
		Description: c.sanitize.Sanitize(body),
		Topic:       r.Topic(),
		Time:        c.now(),
		Projects:    r.Projects,
	}
	rec.Followers = directory.Expand(c.dir, r.Participants.IDs())
	rec.Streams = c.streams(r, review.Event{User: user}, rec.Followers)

	return Notice{
		Record:     rec,
		Recipients: c.recipients(r),
	}
}

// refineReviewers describes participant changes. Single self-initiated
// changes get their own phrase; anything else is reported bucket by bucket.
// The notification toggle applies when no single-user phrase did.
func refineReviewers(r *review.Review, ev review.Event) (refinement, bool) {
	if ev.Previous == nil {
		return refinement{}, false
	}
	prev := ev.Previous.Participants

	if ev.IsReviewersChange {
		delta := review.Diff(prev, r.Participants)
		if who, ok := delta.Only(); ok && who == ev.User {
			return refinement{action: singleAction(delta)}, true
		}

		if delta.Size() > 0 {
			toggle, ok := notificationToggle(prev, r.Participants)
			if ok {
				return toggle, true
			}

			return refinement{
				action:  ActionEditedReviewers,
				details: map[string]any{"reviewers": delta},
			}, true
		}
	}

	return notificationToggle(prev, r.Participants)
}

func singleAction(d review.Delta) string {
	switch {
	case len(d.AddedRequired) > 0, len(d.AddedOptional) > 0:
		return ActionJoined
	case len(d.Removed) > 0:
		return ActionLeft
	case len(d.MadeRequired) > 0:
		return ActionMadeRequired
	default:
		return ActionMadeOptional
	}
}

func notificationToggle(prev, cur review.Participants) (refinement, bool) {
	before, after := prev.Unsubscribed(), cur.Unsubscribed()
	switch {
	case after > before:
		return refinement{action: ActionDisabledNotify}, true
	case after < before:
		return refinement{action: ActionEnabledNotify}, true
	default:
		return refinement{}, false
	}
}

func refineVote(_ *review.Review, ev review.Event) (refinement, bool) {
	if ev.Vote == nil {
		return refinement{}, false
	}

	switch *ev.Vote {
	case review.VoteUp:
		return refinement{action: ActionVotedUp}, true
	case review.VoteDown:
		return refinement{action: ActionVotedDown}, true
	default:
		return refinement{action: ActionClearedVote}, true
	}
}

func refineState(r *review.Review, ev review.Event) (refinement, bool) {
	switch {
	case ev.IsCommit && ev.IsStateChange:
		return refinement{action: ActionApprovedAndCommitted}, true

	case ev.IsCommit:
		return refinement{action: ActionCommitted}, true

	case !ev.IsStateChange:
		return refinement{}, false
	}

	action, ok := stateActions[r.State]
	if !ok {
		return refinement{}, false
	}

	ref := refinement{action: action}
	if ev.Previous != nil {
		ref.details = map[string]any{"state": map[string]string{
			"old": string(ev.Previous.State),
			"new": string(r.State),
		}}
	}

	return ref, true
}

func refineAuthor(r *review.Review, ev review.Event) (refinement, bool) {
	if !ev.IsAuthorChange {
		return refinement{}, false
	}

	ref := refinement{action: ActionChangedAuthor}
	if ev.Previous != nil {
		ref.details = map[string]any{"author": map[string]string{
			"old": ev.Previous.Author,
			"new": r.Author,
		}}
	}

	return ref, true
}

func refineDescription(_ *review.Review,
	ev review.Event) (refinement, bool) {

	if !ev.IsDescriptionChange {
		return refinement{}, false
	}

	return refinement{action: ActionUpdatedDescription}, true
}

func refineStatus(_ *review.Review, ev review.Event) (refinement, bool) {
	if action, ok := testActions[ev.TestStatus]; ok {
		return refinement{action: action}, true
	}
	if action, ok := deployActions[ev.DeployStatus]; ok {
		return refinement{action: action}, true
	}

	return refinement{}, false
}

// description picks the text shown with the activity. Review keywords are
// removed and markup is stripped.
func (c *Composer) description(r *review.Review, ev review.Event) string {
	desc := ev.Description
	if desc == "" {
		desc = r.Description
	}

	if r.Type == review.TypeGit && ev.UpdateFromChange != 0 {
		desc = review.StripGitInfo(desc)
	}

	return c.sanitize.Sanitize(review.StripKeywords(desc))
}

// quiet reports whether ev should produce activity without mail.
func quiet(ev review.Event) bool {
	if ev.Quiet || ev.IsCommit {
		return true
	}
	if ev.Previous == nil {
		return false
	}
	if ev.TestStatus != "" || ev.DeployStatus != "" {
		return false
	}

	for _, f := range ev.Fields {
		if _, skip := disregardedFields[f]; !skip {
			return false
		}
	}

	return true
}

// recipients are the participants, groups expanded, that still want mail.
func (c *Composer) recipients(r *review.Review) []string {
	var ids []string
	for _, p := range r.Participants {
		if !p.Data.NotificationsDisabled {
			ids = append(ids, p.ID)
		}
	}

	return directory.Expand(c.dir, ids)
}

func (c *Composer) streams(r *review.Review, ev review.Event,
	followers []string) []string {

	streams := []string{ReviewStream(r.ID)}
	if ev.User != "" {
		streams = append(streams, UserStream(ev.User))
	}
	for _, f := range followers {
		streams = append(streams, PersonalStream(f))
	}
	for _, p := range r.ProjectIDs() {
		streams = append(streams, ProjectStream(p))
	}

	slices.Sort(streams)

	return slices.Compact(streams)
}
