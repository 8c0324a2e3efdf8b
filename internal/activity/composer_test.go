package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

func testComposer() *Composer {
	dir := directory.NewStatic(directory.File{
		Users: []string{"alice", "bob", "carol", "dave"},
		Groups: []directory.Group{
			{ID: "qa", Users: []string{"carol", "dave"}},
		},
	})
	now := time.Unix(1700000000, 0)

	return NewComposer(dir, func() time.Time { return now })
}

func participants(ids ...string) review.Participants {
	ps := make(review.Participants, len(ids))
	for i, id := range ids {
		ps[i] = review.Participant{ID: id}
	}

	return ps
}

// testReview has alice as author and the given participants after alice.
func testReview(ids ...string) *review.Review {
	return &review.Review{
		ID:           7,
		State:        review.StateNeedsReview,
		Author:       "alice",
		Description:  "Fix the widget",
		Type:         review.TypeDefault,
		Participants: participants(append([]string{"alice"}, ids...)...),
		Projects:     map[string][]string{"web": {"main"}},
	}
}

// withPrevious attaches r's current snapshot as the event's previous
// state, after applying change to a copy.
func withPrevious(r *review.Review, ev review.Event,
	change func(r *review.Review)) (*review.Review, review.Event) {

	snap := r.Snapshot()
	ev.Previous = &snap

	next := r.Clone()
	change(next)

	return next, ev
}

func TestComposeReviewerActions(t *testing.T) {
	t.Parallel()

	c := testComposer()

	tests := []struct {
		name    string
		review  *review.Review
		event   review.Event
		change  func(r *review.Review)
		action  string
		details bool
	}{
		{
			name:   "joined",
			review: testReview("bob"),
			event: review.Event{
				User: "carol", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Add("carol")
			},
			action: ActionJoined,
		},
		{
			name:   "left",
			review: testReview("bob"),
			event: review.Event{
				User: "bob", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Remove("bob")
			},
			action: ActionLeft,
		},
		{
			name:   "made own vote required",
			review: testReview("bob"),
			event: review.Event{
				User: "bob", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Set("bob",
					review.ParticipantData{
						Required: review.RequiredAll,
					})
			},
			action: ActionMadeRequired,
		},
		{
			name: "made own vote optional",
			review: func() *review.Review {
				r := testReview()
				r.Participants = r.Participants.Set("bob",
					review.ParticipantData{
						Required: review.RequiredAll,
					})

				return r
			}(),
			event: review.Event{
				User: "bob", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Set("bob",
					review.ParticipantData{})
			},
			action: ActionMadeOptional,
		},
		{
			name:   "two users edited",
			review: testReview("bob"),
			event: review.Event{
				User: "alice", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.
					Add("carol").Add("dave")
			},
			action:  ActionEditedReviewers,
			details: true,
		},
		{
			name:   "one user added by someone else",
			review: testReview("bob"),
			event: review.Event{
				User: "alice", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Add("carol")
			},
			action:  ActionEditedReviewers,
			details: true,
		},
		{
			name:   "reviewer change not flagged",
			review: testReview("bob"),
			event:  review.Event{User: "carol"},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Add("carol")
			},
			action: ActionUpdated,
		},
		{
			name:   "notifications disabled",
			review: testReview("bob"),
			event: review.Event{
				User: "bob", IsReviewersChange: true,
			},
			change: func(r *review.Review) {
				r.Participants = r.Participants.Set("bob",
					review.ParticipantData{
						NotificationsDisabled: true,
					})
			},
			action: ActionDisabledNotify,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, ev := withPrevious(tc.review, tc.event, tc.change)
			n := c.Compose(r, ev)

			require.Equal(t, tc.action, n.Record.Action)
			if tc.details {
				require.Contains(t, n.Record.Details,
					"reviewers")
			} else {
				require.Empty(t, n.Record.Details)
			}
		})
	}
}

func TestComposeEditedReviewersDetails(t *testing.T) {
	t.Parallel()

	prev := testReview("bob")
	r, ev := withPrevious(prev, review.Event{
		User: "alice", IsReviewersChange: true,
	}, func(r *review.Review) {
		r.Participants = r.Participants.Remove("bob").Set("carol",
			review.ParticipantData{Required: review.RequiredAll})
	})

	n := testComposer().Compose(r, ev)
	require.Equal(t, ActionEditedReviewers, n.Record.Action)
	require.Equal(t, review.Delta{
		Removed:       []string{"bob"},
		AddedRequired: []string{"carol"},
	}, n.Record.Details["reviewers"])
}

func TestComposePriority(t *testing.T) {
	t.Parallel()

	c := testComposer()
	up := review.VoteUp

	r, ev := withPrevious(testReview("bob"), review.Event{
		User:          "bob",
		Vote:          &up,
		IsStateChange: true,
		Fields:        []string{"state", "participants"},
	}, func(r *review.Review) {
		r.State = review.StateApproved
	})
	n := c.Compose(r, ev)
	require.Equal(t, "approved", n.Record.Action)
	require.Equal(t, map[string]any{"state": map[string]string{
		"old": "needsReview", "new": "approved",
	}}, n.Record.Details)

	ev.IsStateChange = false
	require.Equal(t, ActionVotedUp, c.Compose(r, ev).Record.Action)

	ev.IsDescriptionChange = true
	ev.TestStatus = review.StatusFail
	require.Equal(t, ActionFailedTests, c.Compose(r, ev).Record.Action)

	ev.TestStatus = ""
	require.Equal(t, ActionUpdatedDescription,
		c.Compose(r, ev).Record.Action)
}

func TestComposeBaseActions(t *testing.T) {
	t.Parallel()

	c := testComposer()
	r := testReview("bob")

	n := c.Compose(r, review.Event{
		User: "alice", IsAdd: true, UpdateFromChange: 100,
	})
	require.Equal(t, ActionRequested, n.Record.Action)
	require.Equal(t, "alice requested review 7 for change 100",
		n.Record.Text())
	require.False(t, n.Quiet)
	require.True(t, n.IsAdd)
	require.Equal(t, "reviews/7", n.Record.Topic)
	require.Equal(t, time.Unix(1700000000, 0), n.Record.Time)

	next, ev := withPrevious(r, review.Event{
		User: "alice", UpdateFromChange: 101,
		Fields: []string{"versions", "changes"},
	}, func(*review.Review) {})
	n = c.Compose(next, ev)
	require.Equal(t, ActionUpdatedFiles, n.Record.Action)
	require.Equal(t, int64(101), n.Record.Change)
	require.False(t, n.Quiet)

	next, ev = withPrevious(r, review.Event{
		User: "bob", IsCommit: true, IsStateChange: true,
		CommitChange: 201,
		Fields:       []string{"state", "commits"},
	}, func(r *review.Review) {
		r.State = review.StateApproved
	})
	n = c.Compose(next, ev)
	require.Equal(t, ActionApprovedAndCommitted, n.Record.Action)
	require.Equal(t, "bob approved and committed review 7 for change 201",
		n.Record.Text())
	require.True(t, n.Quiet)
}

func TestComposeDescription(t *testing.T) {
	t.Parallel()

	c := testComposer()

	r := testReview()
	r.Description = "Fix <b>it</b> #review-12 [review]\nfor real"
	n := c.Compose(r, review.Event{User: "alice", IsAdd: true})
	require.Equal(t, "Fix it\nfor real", n.Record.Description)

	n = c.Compose(r, review.Event{
		User: "alice", Description: "<script>x()</script>Override",
	})
	require.Equal(t, "Override", n.Record.Description)

	git := testReview()
	git.Type = review.TypeGit
	git.Description = "Tidy imports\n\nImported from Git\n Author: a\n"
	n = c.Compose(git, review.Event{User: "alice", UpdateFromChange: 5})
	require.Equal(t, "Tidy imports", n.Record.Description)

	// Only updates from the change itself drop the git block.
	n = c.Compose(git, review.Event{User: "alice"})
	require.Contains(t, n.Record.Description, "Imported from Git")
}

func TestComposeQuiet(t *testing.T) {
	t.Parallel()

	c := testComposer()
	r := testReview("bob")
	snap := r.Snapshot()

	tests := []struct {
		name string
		ev   review.Event
		want bool
	}{
		{
			name: "new review",
			ev:   review.Event{IsAdd: true},
			want: false,
		},
		{
			name: "explicit",
			ev: review.Event{
				Previous: &snap, Quiet: true,
				Fields: []string{"state"},
			},
			want: true,
		},
		{
			name: "only disregarded fields",
			ev: review.Event{
				Previous: &snap,
				Fields:   []string{"commitStatus", "testDetails"},
			},
			want: true,
		},
		{
			name: "nothing changed",
			ev:   review.Event{Previous: &snap},
			want: true,
		},
		{
			name: "real change",
			ev: review.Event{
				Previous: &snap,
				Fields:   []string{"commitStatus", "state"},
			},
			want: false,
		},
		{
			name: "test status always notifies",
			ev: review.Event{
				Previous:   &snap,
				TestStatus: review.StatusPass,
				Fields:     []string{"testDetails"},
			},
			want: false,
		},
		{
			name: "commit",
			ev: review.Event{
				Previous: &snap, IsCommit: true,
				Fields: []string{"state"},
			},
			want: true,
		},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, c.Compose(r, tc.ev).Quiet, tc.name)
	}
}

func TestComposeAudience(t *testing.T) {
	t.Parallel()

	r := testReview("bob", "swarm-group-qa")
	r.Participants = r.Participants.Set("bob", review.ParticipantData{
		NotificationsDisabled: true,
	})

	n := testComposer().Compose(r, review.Event{User: "bob"})
	require.Equal(t, []string{"alice", "carol", "dave"}, n.Recipients)
	require.Equal(t, []string{"alice", "bob", "carol", "dave"},
		n.Record.Followers)
	require.Equal(t, []string{
		"personal-alice", "personal-bob", "personal-carol",
		"personal-dave", "project-web", "review-7", "user-bob",
	}, n.Record.Streams)
}

func TestComposeComment(t *testing.T) {
	t.Parallel()

	n := testComposer().ComposeComment(
		testReview("bob"), "bob", "Looks <i>good</i>",
	)
	require.Equal(t, TypeComment, n.Record.Type)
	require.Equal(t, "bob commented on review 7", n.Record.Text())
	require.Equal(t, "Looks good", n.Record.Description)
	require.Contains(t, n.Record.Streams, "review-7")
}
