package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/store"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
)

// testDirectory has one moderated project (core/main moderated by carol),
// one unmoderated private project (web) and a quorum group.
func testDirectory() *directory.Static {
	return directory.NewStatic(directory.File{
		Users:  []string{"alice", "bob", "carol", "dave", "erin"},
		Supers: []string{"root"},
		Groups: []directory.Group{
			{ID: "qa", Users: []string{"bob", "dave", "erin"}},
		},
		Projects: []directory.Project{
			{
				ID:      "core",
				Members: []string{"alice", "bob"},
				Branches: []directory.Branch{{
					ID:         "main",
					Paths:      []string{"//depot/core/..."},
					Moderators: []string{"carol"},
				}},
			},
			{
				ID:      "web",
				Private: true,
				Members: []string{"dave"},
				Branches: []directory.Branch{{
					ID:    "main",
					Paths: []string{"//depot/web/..."},
				}},
			},
		},
	})
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) PublishReviewEvent(_ context.Context,
	ev Event) error {

	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)

	return nil
}

func (p *recordingPublisher) last() Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.events)
}

type testHarness struct {
	svc       *Service
	versions  *versionstore.Memory
	store     *store.MockStore
	locks     *lock.Manager
	publisher *recordingPublisher
}

func newHarness(t *testing.T, opts Options) *testHarness {
	t.Helper()

	h := &testHarness{
		versions:  versionstore.NewMemory(),
		store:     store.NewMockStore(),
		locks:     lock.NewManager(),
		publisher: &recordingPublisher{},
	}
	h.versions.AddJob("job000001")

	now := time.Unix(1700000000, 0)
	h.svc = NewService(ServiceConfig{
		Store:     h.store,
		Versions:  h.versions,
		Directory: testDirectory(),
		Locker:    h.locks,
		Publisher: h.publisher,
		Options:   opts,
		Now:       func() time.Time { return now },
	})

	return h
}

// shelve stores a shelved change by user touching paths.
func (h *testHarness) shelve(id int64, user string, paths ...string) {
	files := make([]versionstore.File, len(paths))
	for i, p := range paths {
		files[i] = versionstore.File{
			DepotFile: p,
			Action:    "edit",
			Type:      "text",
			Rev:       1,
			Digest:    "d-" + p,
		}
	}

	h.versions.PutChange(versionstore.Change{
		ID:          id,
		User:        user,
		Description: "change by " + user,
		Status:      versionstore.StatusShelved,
		Time:        time.Unix(1700000000+id, 0),
		Files:       files,
	})
}

// reviewWith builds an in-memory review for rule tests.
func reviewWith(state State, projects map[string][]string,
	participants ...Participant) *Review {

	ps := Participants{{ID: "alice"}}
	ps = append(ps, participants...)

	return &Review{
		ID:           1,
		State:        state,
		Author:       "alice",
		Pending:      true,
		Participants: ps,
		Projects:     projects,
		Versions:     []Version{{Change: 10, Pending: true}},
	}
}

func required(id string, flag RequiredFlag) Participant {
	return Participant{ID: id, Data: ParticipantData{Required: flag}}
}

func votedUp(p Participant) Participant {
	p.Data.Vote = someVote(VoteUp)
	return p
}

func someVote(value int) fn.Option[Vote] {
	return fn.Some(Vote{Value: value, Version: 1})
}
