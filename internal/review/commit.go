package review

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
)

// CommitOptions are the submit parameters of a commit.
type CommitOptions struct {
	// Description defaults to the review description.
	Description string
	Jobs        []string
	FixStatus   string
}

// CommitRequest asks for a review's head version to be committed.
type CommitRequest struct {
	ID   int64
	User string
	CommitOptions
}

// CommitResult is the committed review and its new change.
type CommitResult struct {
	Review *Review
	Change int64
}

// commitFailures rewrites recognised submit failures. The first match wins.
var commitFailures = []struct {
	pattern *regexp.Regexp
	rewrite func(msg string, err error) error
}{
	{
		pattern: regexp.MustCompile(`(?i)out of date|must resolve`),
		rewrite: func(msg string, _ error) error {
			return fmt.Errorf("%w: %s", ErrConflictOnCommit, msg)
		},
	},
	{
		pattern: regexp.MustCompile(`Job '[^']*' doesn't exist`),
		rewrite: func(_ string, err error) error {
			return &CommandError{
				Message: "One or more job IDs are invalid.",
				Err:     err,
			}
		},
	},
	{
		pattern: regexp.MustCompile(`is not a valid fix status`),
		rewrite: func(_ string, err error) error {
			return &CommandError{
				Message: "Invalid job fix status.",
				Err:     err,
			}
		},
	},
}

func classifyCommitError(err error) error {
	var cmdErr *versionstore.CommandError
	if !errors.As(err, &cmdErr) {
		return fmt.Errorf("commit: %w", err)
	}

	for _, f := range commitFailures {
		if f.pattern.MatchString(cmdErr.Message) {
			return f.rewrite(cmdErr.Message, err)
		}
	}

	return fmt.Errorf("commit: %w", err)
}

// Commit approves a review and submits its head version.
func (s *Service) Commit(ctx context.Context,
	req CommitRequest) (*CommitResult, error) {

	if req.User == "" {
		return nil, fmt.Errorf("commit review %d: %w", req.ID,
			ErrForbidden)
	}

	var result *CommitResult
	err := s.withReview(ctx, req.ID, func(r *Review) error {
		role := s.Role(req.User, r)
		states, ok := Transitions(r, role, s.cfg.Directory,
			s.cfg.Options)
		if !ok {
			return fmt.Errorf("commit review %d: %w", r.ID,
				ErrForbidden)
		}
		if !slices.Contains(states, StateApprovedCommit) {
			return invalid("state", "Review %d cannot be committed",
				r.ID)
		}

		prev := r.Clone()
		if r.Author != req.User {
			castVote(r, req.User, VoteUp)
		}

		change, err := s.commitLocked(ctx, prev, r, req)
		if err != nil {
			return err
		}
		result = &CommitResult{Review: r, Change: change}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// commitLocked submits r's head version. The caller holds the review lock
// and has applied any edit accompanying the commit to r; prev is the review
// before that edit. On failure r is reset to prev, edit included, and only
// the failure is recorded in its commit status.
func (s *Service) commitLocked(ctx context.Context, prev, r *Review,
	req CommitRequest) (int64, error) {

	head, ok := r.HeadVersion()
	if !ok || !head.Pending || !r.Pending {
		return 0, invalid("commit", "Review %d has nothing to commit",
			r.ID)
	}

	desc := req.Description
	if desc == "" {
		desc = r.Description
	}

	started := s.cfg.Now()
	r.State = StateApproved
	r.CommitStatus = CommitStatus{
		Start:     started,
		Change:    head.Change,
		Status:    CommitCommitting,
		Committer: req.User,
	}
	if err := s.persist(ctx, r); err != nil {
		return 0, err
	}

	log.InfoS(ctx, "Committing review", "review_id", r.ID,
		"change", head.DiffChange(), "user", req.User)

	submitted, err := s.cfg.Versions.Submit(ctx, versionstore.SubmitRequest{
		Change:      head.DiffChange(),
		User:        req.User,
		Description: desc,
		Jobs:        req.Jobs,
		FixStatus:   req.FixStatus,
	})
	if err != nil {
		commitErr := classifyCommitError(err)

		// Nothing requested alongside the commit survives a failed
		// submit; only the failure itself is recorded.
		*r = *prev.Clone()
		r.CommitStatus = CommitStatus{
			Start:     started,
			End:       s.cfg.Now(),
			Change:    head.Change,
			Committer: req.User,
			Error:     commitErr.Error(),
		}

		log.WarnS(ctx, "Commit failed, rolled back review state",
			err, "review_id", r.ID, "state", r.State)

		if saveErr := s.persist(ctx, r); saveErr != nil {
			log.ErrorS(ctx, "Unable to save commit rollback",
				saveErr, "review_id", r.ID)
		}

		return 0, commitErr
	}

	r.Commits = append(r.Commits, submitted)
	r.Versions = append(r.Versions, Version{
		Change: submitted,
		User:   req.User,
		Time:   s.cfg.Now(),
	})
	r.Pending = false
	r.CommitStatus = CommitStatus{
		Start:     started,
		End:       s.cfg.Now(),
		Change:    submitted,
		Status:    CommitCommitted,
		Committer: req.User,
	}

	err = s.saveAndPublish(ctx, prev, r, Event{
		User:          req.User,
		IsStateChange: prev.State != r.State,
		IsCommit:      true,
		CommitChange:  submitted,
	})
	if err != nil {
		return 0, err
	}

	return submitted, nil
}
