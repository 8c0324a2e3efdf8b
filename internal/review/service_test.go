package review

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/actorutil"
	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/store"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
)

// create puts change up for review by alice with reviewers.
func (h *testHarness) create(t *testing.T, change int64,
	reviewers map[string]RequiredFlag) *Review {

	t.Helper()

	r, err := h.svc.CreateOrAttach(context.Background(), AttachRequest{
		Change:    change,
		User:      "alice",
		Reviewers: reviewers,
	})
	require.NoError(t, err)

	return r
}

func (h *testHarness) reload(t *testing.T, id int64) *Review {
	t.Helper()

	r, err := h.svc.Get(context.Background(), id)
	require.NoError(t, err)

	return r
}

func TestCreateReview(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	h.shelve(100, "alice", "//depot/core/a.c", "//depot/web/b.js")

	r := h.create(t, 100, map[string]RequiredFlag{
		"bob":   RequiredAll,
		qaGroup: RequiredQuorumOne,
	})

	require.NotZero(t, r.ID)
	require.Equal(t, StateNeedsReview, r.State)
	require.Equal(t, "alice", r.Author)
	require.Equal(t, "change by alice", r.Description)
	require.True(t, r.Pending)
	require.NotEmpty(t, r.Token)
	require.Equal(t, []int64{100}, r.Changes)
	require.Empty(t, r.Commits)
	require.Len(t, r.Versions, 1)
	require.Equal(t, map[string][]string{
		"core": {"main"},
		"web":  {"main"},
	}, r.Projects)
	require.Equal(t,
		[]string{"alice", "bob", qaGroup}, r.Participants.IDs(),
	)

	ev := h.publisher.last()
	require.True(t, ev.IsAdd)
	require.Equal(t, r.ID, ev.ReviewID)
	require.Equal(t, int64(100), ev.UpdateFromChange)
	require.Nil(t, ev.Previous)

	ids, err := h.svc.ReviewsForChange(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, []int64{r.ID}, ids)

	stored := h.reload(t, r.ID)
	require.Equal(t, r.Participants, stored.Participants)
	require.True(t, h.store.IsConsistent())
	require.Zero(t, h.locks.Held())
}

func TestAttachChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	h.shelve(100, "alice", "//depot/core/a.c")
	r := h.create(t, 100, nil)

	// Replaying the same shelf does not add a version.
	again := h.create(t, 100, nil)
	require.Equal(t, r.ID, again.ID)
	require.Len(t, again.Versions, 1)
	require.Zero(t, h.publisher.last().UpdateFromChange)

	// A re-shelve with a new time does.
	h.versions.PutChange(versionstore.Change{
		ID:     100,
		User:   "alice",
		Status: versionstore.StatusShelved,
		Time:   time.Unix(1800000000, 0),
		Files: []versionstore.File{{
			DepotFile: "//depot/core/a.c", Action: "edit",
		}},
	})
	updated := h.create(t, 100, nil)
	require.Len(t, updated.Versions, 2)
	require.Equal(t, []int64{100}, updated.Changes)

	// Each pending version reads from its own archived shelf.
	v1, v2 := updated.Versions[0], updated.Versions[1]
	require.NotZero(t, v1.ArchiveChange)
	require.NotEqual(t, v1.DiffChange(), v2.DiffChange())
	ids, err := h.svc.ReviewsForChange(ctx, v2.ArchiveChange)
	require.NoError(t, err)
	require.Equal(t, []int64{r.ID}, ids)

	// Another change can be attached explicitly.
	h.shelve(101, "bob", "//depot/web/x.js")
	attached, err := h.svc.CreateOrAttach(ctx, AttachRequest{
		Change: 101,
		Review: fn.Some(r.ID),
		User:   "bob",
	})
	require.NoError(t, err)
	require.Equal(t, r.ID, attached.ID)
	require.Equal(t, []int64{100, 101}, attached.Changes)
	require.Contains(t, attached.Projects, "web")
	require.Equal(t, int64(101), h.publisher.last().UpdateFromChange)
	require.Contains(t, h.publisher.last().Fields, "versions")

	// But not into a second review once it belongs to the first.
	h.shelve(102, "carol", "//depot/core/c.c")
	other := h.create(t, 102, nil)
	_, err = h.svc.CreateOrAttach(ctx, AttachRequest{
		Change: 101,
		Review: fn.Some(other.ID),
		User:   "carol",
	})
	require.ErrorIs(t, err, ErrValidation)

	require.True(t, h.store.IsConsistent())
	require.Zero(t, h.locks.Held())
}

func TestAttachCommittedChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.versions.PutChange(versionstore.Change{
		ID:     300,
		User:   "bob",
		Status: versionstore.StatusSubmitted,
		Time:   time.Unix(1700000300, 0),
		Files: []versionstore.File{{
			DepotFile: "//depot/core/z.c", Action: "add",
		}},
	})

	r := h.create(t, 300, nil)
	require.False(t, r.Pending)
	require.Equal(t, []int64{300}, r.Commits)
	require.Empty(t, r.Changes)
	require.Equal(t, "bob", r.Author)
}

func TestCreateOrAttachErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	h.shelve(100, "alice", "//depot/core/a.c")

	tests := []struct {
		name    string
		req     AttachRequest
		wantErr error
	}{
		{
			name:    "anonymous",
			req:     AttachRequest{Change: 100},
			wantErr: ErrForbidden,
		},
		{
			name:    "missing change",
			req:     AttachRequest{Change: 999, User: "alice"},
			wantErr: ErrNotFound,
		},
		{
			name: "unknown reviewer",
			req: AttachRequest{
				Change: 100, User: "alice",
				Reviewers: map[string]RequiredFlag{
					"mallory": RequiredAll,
				},
			},
			wantErr: ErrValidation,
		},
		{
			name: "unknown group",
			req: AttachRequest{
				Change: 100, User: "alice",
				Reviewers: map[string]RequiredFlag{
					"swarm-group-ghosts": RequiredNone,
				},
			},
			wantErr: ErrValidation,
		},
		{
			name: "quorum flag on a user",
			req: AttachRequest{
				Change: 100, User: "alice",
				Reviewers: map[string]RequiredFlag{
					"bob": RequiredQuorumOne,
				},
			},
			wantErr: ErrValidation,
		},
	}

	for _, tc := range tests {
		_, err := h.svc.CreateOrAttach(ctx, tc.req)
		require.ErrorIs(t, err, tc.wantErr, tc.name)
	}

	reviews, err := h.svc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Empty(t, reviews)
	require.Zero(t, h.publisher.count())

	var verr *ValidationError
	_, err = h.svc.CreateOrAttach(ctx, tests[2].req)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "reviewers")
}

func TestEditModeratedApproval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	h.shelve(100, "alice", "//depot/core/a.c")
	r := h.create(t, 100, nil)

	// A plain member cannot approve a moderated branch.
	_, err := h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "bob", State: fn.Some(StateApproved),
	})
	require.ErrorIs(t, err, ErrValidation)

	// An outsider cannot transition at all.
	_, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "erin", State: fn.Some(StateNeedsRevision),
	})
	require.ErrorIs(t, err, ErrForbidden)

	res, err := h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "carol", State: fn.Some(StateApproved),
	})
	require.NoError(t, err)
	require.Equal(t, StateApproved, res.Review.State)
	require.True(t, res.CanTransition)
	require.Contains(t, res.Transitions, StateApprovedCommit)

	data, ok := res.Review.Participants.Get("carol")
	require.True(t, ok)
	require.True(t, data.VotedUp())

	ev := h.publisher.last()
	require.True(t, ev.IsStateChange)
	require.NotNil(t, ev.Previous)
	require.Equal(t, StateNeedsReview, ev.Previous.State)
	require.Contains(t, ev.Fields, "state")
	require.Contains(t, ev.Fields, "participants")

	// Once approved a member may move it back.
	res, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "bob", State: fn.Some(StateNeedsRevision),
	})
	require.NoError(t, err)
	require.Equal(t, StateNeedsRevision, res.Review.State)
}

func TestEditValidationLeavesReviewUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	h.shelve(100, "alice", "//depot/core/a.c")
	r := h.create(t, 100, nil)
	published := h.publisher.count()

	tests := []struct {
		name    string
		req     EditRequest
		wantErr error
	}{
		{
			name: "non-author edits description",
			req: EditRequest{
				User:        "bob",
				Description: fn.Some("new"),
				Vote:        fn.Some(5),
			},
			wantErr: ErrForbidden,
		},
		{
			name: "author votes",
			req: EditRequest{
				User: "alice",
				Vote: fn.Some(VoteUp),
			},
			wantErr: ErrValidation,
		},
		{
			name: "vote out of range",
			req: EditRequest{
				User:        "alice",
				Description: fn.Some("new"),
				Required:    fn.Some(true),
				Vote:        fn.Some(2),
			},
			wantErr: ErrValidation,
		},
		{
			name: "join and leave",
			req: EditRequest{
				User: "bob", Join: true, Leave: true,
			},
			wantErr: ErrValidation,
		},
		{
			name: "author leaves",
			req: EditRequest{
				User: "alice", Leave: true,
			},
			wantErr: ErrValidation,
		},
		{
			name: "author change disabled",
			req: EditRequest{
				User: "alice", Author: fn.Some("bob"),
			},
			wantErr: ErrForbidden,
		},
		{
			name: "outsider edits reviewers",
			req: EditRequest{
				User: "erin",
				Reviewers: fn.Some(map[string]RequiredFlag{
					"bob": RequiredAll,
				}),
			},
			wantErr: ErrForbidden,
		},
		{
			name: "anonymous",
			req: EditRequest{
				Join: true,
			},
			wantErr: ErrForbidden,
		},
	}

	for _, tc := range tests {
		tc.req.ID = r.ID
		_, err := h.svc.Edit(ctx, tc.req)
		require.ErrorIs(t, err, tc.wantErr, tc.name)
	}

	_, err := h.svc.Edit(ctx, EditRequest{ID: 4040, User: "bob", Join: true})
	require.ErrorIs(t, err, ErrNotFound)

	stored := h.reload(t, r.ID)
	require.Equal(t, r.Description, stored.Description)
	require.Equal(t, r.Participants, stored.Participants)
	require.Equal(t, published, h.publisher.count())
	require.Zero(t, h.locks.Held())
}

func TestEditParticipants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{AllowAuthorChange: true})
	h.shelve(100, "alice", "//depot/web/a.js")
	r := h.create(t, 100, map[string]RequiredFlag{"dave": RequiredNone})

	res, err := h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "bob", Join: true,
		Required: fn.Some(true),
	})
	require.NoError(t, err)
	data, _ := res.Review.Participants.Get("bob")
	require.Equal(t, RequiredAll, data.Required)
	require.True(t, h.publisher.last().IsReviewersChange)

	res, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "bob", Vote: fn.Some(VoteDown),
	})
	require.NoError(t, err)
	data, _ = res.Review.Participants.Get("bob")
	require.Equal(t, fn.Some(Vote{Value: VoteDown, Version: 1}),
		data.Vote)
	require.NotNil(t, h.publisher.last().Vote)
	require.Equal(t, VoteDown, *h.publisher.last().Vote)

	res, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "dave",
		Reviewers: fn.Some(map[string]RequiredFlag{
			"erin":  RequiredAll,
			qaGroup: RequiredQuorumOne,
		}),
	})
	require.NoError(t, err)
	require.Equal(t,
		[]string{"alice", "erin", qaGroup},
		res.Review.Participants.IDs(),
	)

	res, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "alice", Author: fn.Some("erin"),
		Description: fn.Some("handed over"),
	})
	require.NoError(t, err)
	require.Equal(t, "erin", res.Review.Author)
	require.Equal(t, "handed over", res.Review.Description)
	ev := h.publisher.last()
	require.True(t, ev.IsAuthorChange)
	require.True(t, ev.IsDescriptionChange)

	res, err = h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "alice", DisableNotifications: fn.Some(true),
		Quiet: true,
	})
	require.NoError(t, err)
	data, _ = res.Review.Participants.Get("alice")
	require.True(t, data.NotificationsDisabled)
	require.True(t, h.publisher.last().Quiet)
}

// shelveWeb creates change 200 by alice on the unmoderated web project.
func shelveWeb(h *testHarness, unresolved bool) {
	h.versions.PutChange(versionstore.Change{
		ID:          200,
		User:        "alice",
		Description: "web tweak",
		Status:      versionstore.StatusShelved,
		Time:        time.Unix(1700000200, 0),
		Files: []versionstore.File{{
			DepotFile:  "//depot/web/index.html",
			Action:     "edit",
			Rev:        3,
			Unresolved: unresolved,
		}},
	})
}

func TestCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	shelveWeb(h, false)
	r := h.create(t, 200, nil)

	res, err := h.svc.Commit(ctx, CommitRequest{
		ID:   r.ID,
		User: "dave",
		CommitOptions: CommitOptions{
			Jobs:      []string{"job000001"},
			FixStatus: "closed",
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(201), res.Change)

	got := res.Review
	require.Equal(t, StateApproved, got.State)
	require.False(t, got.Pending)
	require.Equal(t, []int64{201}, got.Commits)
	require.Equal(t, CommitCommitted, got.CommitStatus.Status)
	require.Equal(t, "dave", got.CommitStatus.Committer)
	require.Len(t, got.Versions, 2)
	require.False(t, got.Versions[1].Pending)

	data, _ := got.Participants.Get("dave")
	require.True(t, data.VotedUp())

	ev := h.publisher.last()
	require.True(t, ev.IsCommit)
	require.True(t, ev.IsStateChange)
	require.Equal(t, int64(201), ev.CommitChange)

	ids, err := h.svc.ReviewsForChange(ctx, 201)
	require.NoError(t, err)
	require.Equal(t, []int64{r.ID}, ids)

	// Nothing is left to commit.
	_, err = h.svc.Commit(ctx, CommitRequest{ID: r.ID, User: "dave"})
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, h.locks.Held())
}

func TestCommitViaEdit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	shelveWeb(h, false)
	r := h.create(t, 200, nil)

	res, err := h.svc.Edit(context.Background(), EditRequest{
		ID:     r.ID,
		User:   "dave",
		State:  fn.Some(StateApprovedCommit),
		Commit: CommitOptions{Description: "ship it"},
	})
	require.NoError(t, err)
	require.Equal(t, fn.Some(int64(201)), res.Committed)
	require.Equal(t, StateApproved, res.Review.State)
	require.NotContains(t, res.Transitions, StateApprovedCommit)

	submitted, err := h.versions.FetchChange(context.Background(), 201)
	require.NoError(t, err)
	require.Equal(t, "ship it", submitted.Description)
	require.Equal(t, "dave", submitted.User)
}

// TestCommitConflictRollsBack checks that a failed submit leaves the state
// and votes as they were and records the failure.
func TestCommitConflictRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	shelveWeb(h, true)
	r := h.create(t, 200, nil)
	published := h.publisher.count()

	_, err := h.svc.Commit(ctx, CommitRequest{ID: r.ID, User: "dave"})
	require.ErrorIs(t, err, ErrConflictOnCommit)
	require.Contains(t, err.Error(), "out of date")

	stored := h.reload(t, r.ID)
	require.Equal(t, StateNeedsReview, stored.State)
	require.True(t, stored.Pending)
	require.Equal(t, r.Participants, stored.Participants)
	require.Empty(t, stored.Commits)
	require.Len(t, stored.Versions, 1)
	require.False(t, stored.CommitStatus.InProgress())
	require.NotEmpty(t, stored.CommitStatus.Error)
	require.Equal(t, published, h.publisher.count())

	// The next edit clears the reported failure.
	res, err := h.svc.Edit(ctx, EditRequest{
		ID: r.ID, User: "dave", Join: true,
	})
	require.NoError(t, err)
	require.True(t, res.Review.CommitStatus.IsZero())
	require.Zero(t, h.locks.Held())
}

// TestCommitViaEditFailureKeepsEdit checks that fields edited together
// with a failed approved:commit are discarded along with the state.
func TestCommitViaEditFailureKeepsEdit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	shelveWeb(h, true)
	r := h.create(t, 200, nil)
	published := h.publisher.count()

	_, err := h.svc.Edit(ctx, EditRequest{
		ID:          r.ID,
		User:        "alice",
		State:       fn.Some(StateApprovedCommit),
		Description: fn.Some("rewritten during failed commit"),
	})
	require.ErrorIs(t, err, ErrConflictOnCommit)

	stored := h.reload(t, r.ID)
	require.Equal(t, "web tweak", stored.Description)
	require.Equal(t, StateNeedsReview, stored.State)
	require.Equal(t, r.Participants, stored.Participants)
	require.NotEmpty(t, stored.CommitStatus.Error)
	require.Equal(t, published, h.publisher.count())
	require.Zero(t, h.locks.Held())
}

func TestCommitCommandFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts CommitOptions
		msg  string
	}{
		{
			name: "unknown job",
			opts: CommitOptions{Jobs: []string{"job999999"}},
			msg:  "One or more job IDs are invalid.",
		},
		{
			name: "bad fix status",
			opts: CommitOptions{
				Jobs:      []string{"job000001"},
				FixStatus: "bogus",
			},
			msg: "Invalid job fix status.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Options{})
			shelveWeb(h, false)
			r := h.create(t, 200, nil)

			_, err := h.svc.Commit(context.Background(), CommitRequest{
				ID: r.ID, User: "dave", CommitOptions: tc.opts,
			})
			require.ErrorIs(t, err, ErrCommandFailure)

			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			require.Equal(t, tc.msg, cmdErr.Message)

			var vsErr *versionstore.CommandError
			require.True(t, errors.As(err, &vsErr))

			require.Equal(t, StateNeedsReview,
				h.reload(t, r.ID).State)
		})
	}
}

func TestCommitDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{DisableCommit: true})
	shelveWeb(h, false)
	r := h.create(t, 200, nil)

	_, err := h.svc.Commit(context.Background(), CommitRequest{
		ID: r.ID, User: "dave",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.svc.Commit(context.Background(), CommitRequest{
		ID: r.ID, User: "erin",
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStatusToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	shelveWeb(h, false)
	r := h.create(t, 200, nil)

	details := StatusDetails{URL: "https://ci.example.com/42"}

	_, err := h.svc.TestStatus(ctx, r.ID, "wrong", StatusPass, details)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.TestStatus(ctx, r.ID, "", StatusPass, details)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.TestStatus(ctx, r.ID, r.Token, "maybe", details)
	require.ErrorIs(t, err, ErrValidation)

	got, err := h.svc.TestStatus(ctx, r.ID, r.Token, StatusFail, details)
	require.NoError(t, err)
	require.Equal(t, StatusFail, got.TestStatus)
	require.Equal(t, details.URL, got.TestDetails.URL)
	require.Equal(t, StatusFail, h.publisher.last().TestStatus)

	got, err = h.svc.DeployStatus(ctx, r.ID, r.Token, StatusPass, details)
	require.NoError(t, err)
	require.Equal(t, StatusPass, got.DeployStatus)
	require.Equal(t, StatusPass, h.publisher.last().DeployStatus)

	_, err = h.svc.TestStatus(ctx, 4040, r.Token, StatusPass, details)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSyncDescription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, Options{})
	shelveWeb(h, false)
	r := h.create(t, 200, nil)

	ids, err := h.svc.SyncDescription(ctx, 200)
	require.NoError(t, err)
	require.Empty(t, ids)

	c, err := h.versions.FetchChange(ctx, 200)
	require.NoError(t, err)
	c.Description = "rewritten"
	h.versions.PutChange(c)

	ids, err = h.svc.SyncDescription(ctx, 200)
	require.NoError(t, err)
	require.Equal(t, []int64{r.ID}, ids)
	require.Equal(t, "rewritten", h.reload(t, r.ID).Description)
	require.True(t, h.publisher.last().IsDescriptionChange)
}

// TestServiceActor drives the service through its actor mailbox backed by
// SQLite storage and SQL advisory locks.
func TestServiceActor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	dbStore, err := db.Open(ctx, filepath.Join(t.TempDir(), "swarm.db"))
	require.NoError(t, err)
	storage := store.NewSqlcStore(dbStore)
	t.Cleanup(func() { _ = storage.Close() })

	versions := versionstore.NewMemory()
	publisher := &recordingPublisher{}
	svc := NewService(ServiceConfig{
		Store:     storage,
		Versions:  versions,
		Directory: testDirectory(),
		Locker:    lock.NewSQLLocker(dbStore, time.Minute),
		Publisher: publisher,
	})

	a := actor.New(actor.Config[Request, Response]{
		ID:          "review-service",
		Behavior:    svc,
		MailboxSize: 8,
	})
	a.Start()
	t.Cleanup(a.Stop)
	ref := a.Ref()

	h := &testHarness{versions: versions}
	shelveWeb(h, false)

	resp, err := actorutil.AskAwait(ctx, ref, Request(AttachMsg{
		AttachRequest: AttachRequest{Change: 200, User: "alice"},
	}))
	require.NoError(t, err)
	created := resp.(ReviewResp).Review
	require.NotZero(t, created.ID)

	resp, err = actorutil.AskAwait(ctx, ref, Request(StatusMsg{
		Kind:   StatusKindTest,
		ID:     created.ID,
		Token:  created.Token,
		Status: StatusPass,
	}))
	require.NoError(t, err)
	require.Equal(t, StatusPass, resp.(ReviewResp).Review.TestStatus)

	resp, err = actorutil.AskAwait(ctx, ref, Request(EditMsg{
		EditRequest: EditRequest{
			ID:    created.ID,
			User:  "dave",
			State: fn.Some(StateApprovedCommit),
		},
	}))
	require.NoError(t, err)
	edit := resp.(EditResp)
	require.True(t, edit.Committed.IsSome())

	resp, err = actorutil.AskAwait(ctx, ref, Request(GetReviewMsg{
		ID: created.ID,
	}))
	require.NoError(t, err)
	got := resp.(ReviewResp).Review
	require.Equal(t, StateApproved, got.State)
	require.Equal(t, StatusPass, got.TestStatus)
	require.Equal(t, CommitCommitted, got.CommitStatus.Status)

	resp, err = actorutil.AskAwait(ctx, ref, Request(ListMsg{Limit: 10}))
	require.NoError(t, err)
	require.Len(t, resp.(ListResp).Reviews, 1)

	_, err = actorutil.AskAwait(ctx, ref, Request(GetReviewMsg{ID: 999}))
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, 3, publisher.count())
}
