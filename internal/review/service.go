package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/store"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
)

// Publisher hands review events to the notification pipeline.
type Publisher interface {
	PublishReviewEvent(ctx context.Context, ev Event) error
}

// ServiceConfig holds the collaborators of the review service.
type ServiceConfig struct {
	// Store is the storage backend for persisting reviews.
	Store store.ReviewStore

	// Versions is the version server.
	Versions versionstore.Store

	// Directory resolves projects, groups and super users.
	Directory directory.Directory

	// Locker serialises mutation of a review.
	Locker lock.Locker

	// Publisher receives an event after every persisted mutation.
	Publisher Publisher

	Options Options

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service owns every mutation of the review aggregate. Each mutation runs
// while holding the review's advisory lock.
type Service struct {
	cfg ServiceConfig
}

// NewService creates a new review service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{cfg: cfg}
}

// Options returns the workflow switches the service runs with.
func (s *Service) Options() Options {
	return s.cfg.Options
}

// Get loads a review.
func (s *Service) Get(ctx context.Context, id int64) (*Review, error) {
	rec, err := s.cfg.Store.GetReview(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load review %d: %w", id, err)
	}

	return fromRecord(rec)
}

// List returns reviews newest first.
func (s *Service) List(ctx context.Context, limit,
	offset int) ([]*Review, error) {

	recs, err := s.cfg.Store.ListReviews(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	out := make([]*Review, 0, len(recs))
	for _, rec := range recs {
		r, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, nil
}

// ReviewsForChange returns the ids of reviews containing change.
func (s *Service) ReviewsForChange(ctx context.Context,
	change int64) ([]int64, error) {

	return s.cfg.Store.ReviewIDsByChange(ctx, change)
}

// Role derives user's role on r.
func (s *Service) Role(user string, r *Review) Role {
	return RoleFor(user, r, s.cfg.Directory)
}

// Transitions lists the states user may move r to.
func (s *Service) Transitions(user string, r *Review) ([]State, bool) {
	return Transitions(r, s.Role(user, r), s.cfg.Directory, s.cfg.Options)
}

// withReview runs fn on review id while holding its lock.
func (s *Service) withReview(ctx context.Context, id int64,
	fn func(r *Review) error) error {

	return lock.WithLock(ctx, s.cfg.Locker, lock.ReviewKey(id),
		func() error {
			r, err := s.Get(ctx, id)
			if err != nil {
				return err
			}

			return fn(r)
		},
	)
}

// processOutbox performs the side effects requested by a mutation. Persist
// failures abort; publish failures are logged since the review itself is
// already saved.
func (s *Service) processOutbox(ctx context.Context,
	events []OutboxEvent) error {

	for _, event := range events {
		switch e := event.(type) {
		case PersistReview:
			if err := s.persist(ctx, e.Review); err != nil {
				return err
			}

		case PublishEvent:
			if s.cfg.Publisher == nil {
				continue
			}

			err := s.cfg.Publisher.PublishReviewEvent(ctx, e.Event)
			if err != nil {
				log.WarnS(ctx, "Unable to publish review event",
					err, "review_id", e.Event.ReviewID)
			}
		}
	}

	return nil
}

// persist creates or updates r. New reviews get their ID assigned.
func (s *Service) persist(ctx context.Context, r *Review) error {
	r.Updated = s.cfg.Now()
	if r.Created.IsZero() {
		r.Created = r.Updated
	}

	rec, err := toRecord(r)
	if err != nil {
		return err
	}

	if r.ID == 0 {
		id, err := s.cfg.Store.CreateReview(ctx, rec)
		if err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		r.ID = id

		return nil
	}

	if err := s.cfg.Store.UpdateReview(ctx, rec); err != nil {
		return fmt.Errorf("update review %d: %w", r.ID, err)
	}

	return nil
}

// saveAndPublish persists r and publishes ev, filling in the changed
// fields from prev.
func (s *Service) saveAndPublish(ctx context.Context, prev, r *Review,
	ev Event) error {

	if prev != nil {
		ev.Fields = changedFields(prev, r)
		snap := prev.Snapshot()
		ev.Previous = &snap
	}

	if err := s.processOutbox(ctx, []OutboxEvent{
		PersistReview{Review: r},
	}); err != nil {
		return err
	}

	ev.ReviewID = r.ID

	return s.processOutbox(ctx, []OutboxEvent{PublishEvent{Event: ev}})
}

// AttachRequest asks for a change to be put up for review.
type AttachRequest struct {
	Change int64

	// Review attaches to this review instead of the one already holding
	// the change or a new one.
	Review fn.Option[int64]

	// Reviewers maps user or group ids to their required flag.
	Reviewers map[string]RequiredFlag

	User string

	// Description overrides the change description on new reviews.
	Description fn.Option[string]
}

// CreateOrAttach adds a change to a review. Without an explicit review the
// change joins the review already holding it, or a new review is created.
func (s *Service) CreateOrAttach(ctx context.Context,
	req AttachRequest) (*Review, error) {

	if req.User == "" {
		return nil, fmt.Errorf("attach change %d: %w", req.Change,
			ErrForbidden)
	}
	if err := s.validateReviewers(req.Reviewers); err != nil {
		return nil, err
	}

	change, err := s.cfg.Versions.FetchChange(ctx, req.Change)
	if errors.Is(err, versionstore.ErrChangeNotFound) {
		return nil, fmt.Errorf("change %d: %w", req.Change, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch change %d: %w", req.Change, err)
	}

	var result *Review
	err = lock.WithLock(ctx, s.cfg.Locker, lock.ReviewKey(change.ID),
		func() error {
			var err error
			result, err = s.attachLocked(ctx, change, req)

			return err
		},
	)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) attachLocked(ctx context.Context,
	change versionstore.Change, req AttachRequest) (*Review, error) {

	existing, err := s.cfg.Store.ReviewIDsByChange(ctx, change.ID)
	if err != nil {
		return nil, fmt.Errorf("reviews for change %d: %w", change.ID,
			err)
	}

	target, hasTarget := req.Review.UnwrapOr(0), req.Review.IsSome()
	switch {
	case hasTarget && len(existing) > 0 &&
		!slices.Contains(existing, target):

		return nil, invalid("change", "Change %d is already in "+
			"review %d", change.ID, existing[0])

	case !hasTarget && len(existing) > 0:
		target, hasTarget = existing[0], true
	}

	if !hasTarget {
		r := s.newReview(change, req)
		if _, err := s.updateFromChange(ctx, r, change); err != nil {
			return nil, err
		}
		addReviewers(r, req.Reviewers)

		log.InfoS(ctx, "Creating review", "change", change.ID,
			"author", r.Author)

		err := s.saveAndPublish(ctx, nil, r, Event{
			User:             req.User,
			IsAdd:            true,
			UpdateFromChange: change.ID,
		})

		return r, err
	}

	// The review key differs from the change key unless the ids collide.
	var result *Review
	attach := func() error {
		r, err := s.Get(ctx, target)
		if err != nil {
			return err
		}
		prev := r.Clone()

		added, err := s.updateFromChange(ctx, r, change)
		if err != nil {
			return err
		}
		addReviewers(r, req.Reviewers)

		log.InfoS(ctx, "Attaching change to review", "change",
			change.ID, "review_id", r.ID, "new_version", added)

		ev := Event{User: req.User}
		if added {
			ev.UpdateFromChange = change.ID
		}
		result = r

		return s.saveAndPublish(ctx, prev, r, ev)
	}

	if target == change.ID {
		err = attach()
	} else {
		err = lock.WithLock(
			ctx, s.cfg.Locker, lock.ReviewKey(target), attach,
		)
	}

	return result, err
}

func (s *Service) newReview(change versionstore.Change,
	req AttachRequest) *Review {

	return &Review{
		Type:        TypeDefault,
		State:       StateNeedsReview,
		Author:      change.User,
		Description: req.Description.UnwrapOr(change.Description),
		Pending:     !change.IsSubmitted(),
		Participants: Participants{
			{ID: change.User},
		},
		Projects: map[string][]string{},
		Token:    uuid.NewString(),
	}
}

// updateFromChange records change as a new version of r unless it is
// already the head version. Returns whether a version was added.
func (s *Service) updateFromChange(ctx context.Context, r *Review,
	change versionstore.Change) (bool, error) {

	if head, ok := r.HeadVersion(); ok && head.Change == change.ID &&
		head.Time.Equal(change.Time) {

		return false, nil
	}

	files, err := s.cfg.Versions.DescribeFiles(ctx, change.ID, 0)
	if err != nil {
		return false, fmt.Errorf("describe change %d: %w", change.ID,
			err)
	}

	version := Version{
		Change:  change.ID,
		Pending: !change.IsSubmitted(),
		User:    change.User,
		Time:    change.Time,
	}

	// Shelves are rewritten in place, so each pending version gets its
	// own frozen copy to diff against later.
	if version.Pending {
		archive, err := s.cfg.Versions.ArchiveShelf(ctx, change.ID)
		if err != nil {
			return false, fmt.Errorf("archive change %d: %w",
				change.ID, err)
		}
		version.ArchiveChange = archive
	}
	r.Versions = append(r.Versions, version)

	if change.IsSubmitted() {
		if !slices.Contains(r.Commits, change.ID) {
			r.Commits = append(r.Commits, change.ID)
		}
		r.Pending = false
	} else {
		if !slices.Contains(r.Changes, change.ID) {
			r.Changes = append(r.Changes, change.ID)
		}
		r.Pending = true
	}

	if r.Projects == nil {
		r.Projects = make(map[string][]string)
	}
	s.mergeProjects(r.Projects, files)

	return true, nil
}

// mergeProjects adds the project branches files touch to projects.
func (s *Service) mergeProjects(projects map[string][]string,
	files []versionstore.File) {

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.DepotFile
	}
	affected := directory.AffectedBranches(
		s.cfg.Directory, paths, s.cfg.Versions.CaseSensitive(),
	)
	for project, branches := range affected {
		merged := slices.Concat(projects[project], branches)
		slices.Sort(merged)
		projects[project] = slices.Compact(merged)
	}
}

// addReviewers merges reviewers into r. Existing participants keep their
// required flag unless a new one is given.
func addReviewers(r *Review, reviewers map[string]RequiredFlag) {
	ids := make([]string, 0, len(reviewers))
	for id := range reviewers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		data, _ := r.Participants.Get(id)
		if reviewers[id] != RequiredNone {
			data.Required = reviewers[id]
		}
		r.Participants = r.Participants.Set(id, data)
	}
}

func (s *Service) validateReviewers(
	reviewers map[string]RequiredFlag) error {

	for id, flag := range reviewers {
		if directory.IsGroupID(id) {
			if !s.cfg.Directory.IsGroup(directory.GroupID(id)) {
				return invalid("reviewers", "Unknown group: %s",
					id)
			}
			continue
		}

		if !s.cfg.Directory.UserExists(id) {
			return invalid("reviewers", "Unknown user: %s", id)
		}
		if flag == RequiredQuorumOne {
			return invalid("reviewers", "Only groups can require "+
				"a single vote: %s", id)
		}
	}

	return nil
}
