package review

import (
	"context"
	"fmt"
	"slices"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// RemoveVersionRequest drops version Version (1-based) from a review.
type RemoveVersionRequest struct {
	ID      int64
	Version int
	User    string
}

// RemoveVersion deletes one version of a review. The last remaining
// version cannot be removed. Projects, changes and commits are rebuilt
// from the versions that are left.
func (s *Service) RemoveVersion(ctx context.Context,
	req RemoveVersionRequest) (*Review, error) {

	if req.User == "" {
		return nil, fmt.Errorf("remove version of review %d: %w",
			req.ID, ErrForbidden)
	}

	var result *Review
	err := s.withReview(ctx, req.ID, func(r *Review) error {
		prev := r.Clone()

		role := s.Role(req.User, r)
		if !role.IsAuthor && !role.IsModerator && !role.IsSuper {
			return fmt.Errorf("remove version of review %d: %w",
				r.ID, ErrForbidden)
		}

		switch {
		case req.Version < 1 || req.Version > len(r.Versions):
			return invalid("version", "Review %d has no version %d",
				r.ID, req.Version)

		case len(r.Versions) == 1:
			return invalid("versions", "Cannot remove the only "+
				"version of review %d", r.ID)

		case r.CommitStatus.InProgress():
			return invalid("version", "Review %d is being "+
				"committed", r.ID)
		}

		removed := r.Versions[req.Version-1]
		r.Versions = slices.Delete(
			slices.Clone(r.Versions), req.Version-1, req.Version,
		)
		if err := s.rederive(ctx, r); err != nil {
			return err
		}
		renumber(r, req.Version)

		log.InfoS(ctx, "Removed review version", "review_id", r.ID,
			"version", req.Version, "change", removed.Change,
			"user", req.User)

		result = r

		return s.saveAndPublish(ctx, prev, r, Event{User: req.User})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// rederive rebuilds the fields that follow from r's versions.
func (s *Service) rederive(ctx context.Context, r *Review) error {
	r.Changes, r.Commits = nil, nil
	projects := make(map[string][]string)

	for _, v := range r.Versions {
		if v.Pending {
			if !slices.Contains(r.Changes, v.Change) {
				r.Changes = append(r.Changes, v.Change)
			}
		} else if !slices.Contains(r.Commits, v.Change) {
			r.Commits = append(r.Commits, v.Change)
		}

		files, err := s.cfg.Versions.DescribeFiles(
			ctx, v.DiffChange(), 0,
		)
		if err != nil {
			return fmt.Errorf("describe change %d: %w",
				v.DiffChange(), err)
		}
		s.mergeProjects(projects, files)
	}

	head, _ := r.HeadVersion()
	r.Pending = head.Pending
	r.Projects = projects

	return nil
}

// renumber moves votes and read markers that pointed at or past the
// removed version down by one. Markers for the removed version itself are
// dropped.
func renumber(r *Review, removed int) {
	for i, p := range r.Participants {
		data := p.Data

		data.Vote.WhenSome(func(v Vote) {
			if v.Version >= removed && v.Version > 1 {
				v.Version--
			}
			data.Vote = fn.Some(v)
		})

		var read []int
		for _, v := range data.ReadBy {
			switch {
			case v == removed:
			case v > removed:
				read = append(read, v-1)
			default:
				read = append(read, v)
			}
		}
		data.ReadBy = read

		r.Participants[i].Data = data
	}
}
