package review

import (
	"context"
	"crypto/subtle"
	"fmt"
)

// Test and deploy status values.
const (
	StatusRunning = "running"
	StatusPass    = "pass"
	StatusFail    = "fail"
)

func validStatus(status string) bool {
	switch status {
	case StatusRunning, StatusPass, StatusFail:
		return true
	}

	return false
}

// TestStatus records an automated test result reported by a webhook
// callback. The token must match the review's.
func (s *Service) TestStatus(ctx context.Context, id int64, token,
	status string, details StatusDetails) (*Review, error) {

	return s.setStatus(ctx, id, token, status, func(r *Review) Event {
		r.TestStatus = status
		r.TestDetails = details

		return Event{TestStatus: status}
	})
}

// DeployStatus records a deploy result reported by a webhook callback.
func (s *Service) DeployStatus(ctx context.Context, id int64, token,
	status string, details StatusDetails) (*Review, error) {

	return s.setStatus(ctx, id, token, status, func(r *Review) Event {
		r.DeployStatus = status
		r.DeployDetails = details

		return Event{DeployStatus: status}
	})
}

func (s *Service) setStatus(ctx context.Context, id int64, token,
	status string, apply func(r *Review) Event) (*Review, error) {

	if !validStatus(status) {
		return nil, invalid("status", "Invalid status %q", status)
	}

	var result *Review
	err := s.withReview(ctx, id, func(r *Review) error {
		if token == "" || subtle.ConstantTimeCompare(
			[]byte(token), []byte(r.Token),
		) != 1 {

			return fmt.Errorf("status for review %d: %w", id,
				ErrForbidden)
		}

		prev := r.Clone()
		ev := apply(r)
		result = r

		log.DebugS(ctx, "Recording status", "review_id", id,
			"test_status", r.TestStatus, "deploy_status",
			r.DeployStatus)

		return s.saveAndPublish(ctx, prev, r, ev)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SyncDescription copies a change's description onto every review holding
// it. Returns the ids of the reviews that changed.
func (s *Service) SyncDescription(ctx context.Context,
	change int64) ([]int64, error) {

	c, err := s.cfg.Versions.FetchChange(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("fetch change %d: %w", change, err)
	}

	ids, err := s.cfg.Store.ReviewIDsByChange(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("reviews for change %d: %w", change, err)
	}

	var updated []int64
	for _, id := range ids {
		err := s.withReview(ctx, id, func(r *Review) error {
			if r.Description == c.Description {
				return nil
			}

			prev := r.Clone()
			r.Description = c.Description
			updated = append(updated, id)

			return s.saveAndPublish(ctx, prev, r, Event{
				User:                c.User,
				IsDescriptionChange: true,
			})
		})
		if err != nil {
			return updated, err
		}
	}

	return updated, nil
}
