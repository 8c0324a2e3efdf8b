package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

// SqlcStore implements Storage using sqlc-generated queries.
type SqlcStore struct {
	db      *db.Store
	queries *sqlc.Queries

	// inTx is set on stores bound to a transaction so nested WithTx calls
	// reuse it.
	inTx bool
}

// NewSqlcStore creates a new SqlcStore over an open, migrated database.
func NewSqlcStore(store *db.Store) *SqlcStore {
	return &SqlcStore{
		db:      store,
		queries: store.Queries(),
	}
}

// Close closes the underlying database connection.
func (s *SqlcStore) Close() error {
	return s.db.Close()
}

// WithTx executes the given function within a database transaction.
// Serialization failures are retried by the transaction executor, so fn may
// run more than once.
func (s *SqlcStore) WithTx(ctx context.Context,
	fn func(ctx context.Context, s Storage) error) error {

	if s.inTx {
		return fn(ctx, s)
	}

	return s.db.WithTx(ctx, func(ctx context.Context,
		q *sqlc.Queries) error {

		return fn(ctx, &SqlcStore{db: s.db, queries: q, inTx: true})
	})
}

// ReviewStore implementation.

// CreateReview inserts the review row and its change index.
func (s *SqlcStore) CreateReview(ctx context.Context, r Review) (int64,
	error) {

	var id int64
	err := s.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		q := tx.(*SqlcStore).queries

		var err error
		id, err = q.InsertReview(ctx, sqlc.InsertReviewParams{
			State:             r.State,
			Author:            r.Author,
			Description:       r.Description,
			ReviewType:        r.Type,
			Pending:           boolToInt(r.Pending),
			Token:             r.Token,
			TestStatus:        r.TestStatus,
			DeployStatus:      r.DeployStatus,
			ParticipantsJson:  r.ParticipantsJSON,
			VersionsJson:      r.VersionsJSON,
			ProjectsJson:      r.ProjectsJSON,
			ChangesJson:       r.ChangesJSON,
			CommitsJson:       r.CommitsJSON,
			TestDetailsJson:   r.TestDetailsJSON,
			DeployDetailsJson: r.DeployDetailsJSON,
			CommitStatusJson:  r.CommitStatusJSON,
			CreatedAt:         r.CreatedAt.Unix(),
			UpdatedAt:         r.UpdatedAt.Unix(),
		})
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		return indexChanges(ctx, q, id, r.ChangeIDs)
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpdateReview overwrites the review row and rebuilds its change index.
func (s *SqlcStore) UpdateReview(ctx context.Context, r Review) error {
	return s.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		q := tx.(*SqlcStore).queries

		rows, err := q.UpdateReview(ctx, sqlc.UpdateReviewParams{
			State:             r.State,
			Author:            r.Author,
			Description:       r.Description,
			ReviewType:        r.Type,
			Pending:           boolToInt(r.Pending),
			Token:             r.Token,
			TestStatus:        r.TestStatus,
			DeployStatus:      r.DeployStatus,
			ParticipantsJson:  r.ParticipantsJSON,
			VersionsJson:      r.VersionsJSON,
			ProjectsJson:      r.ProjectsJSON,
			ChangesJson:       r.ChangesJSON,
			CommitsJson:       r.CommitsJSON,
			TestDetailsJson:   r.TestDetailsJSON,
			DeployDetailsJson: r.DeployDetailsJSON,
			CommitStatusJson:  r.CommitStatusJSON,
			UpdatedAt:         r.UpdatedAt.Unix(),
			ID:                r.ID,
		})
		if err != nil {
			return fmt.Errorf("update review %d: %w", r.ID, err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}

		if err := q.DeleteReviewChanges(ctx, r.ID); err != nil {
			return fmt.Errorf("clear change index: %w", err)
		}

		return indexChanges(ctx, q, r.ID, r.ChangeIDs)
	})
}

func indexChanges(ctx context.Context, q *sqlc.Queries, id int64,
	changes []int64) error {

	for _, change := range changes {
		err := q.InsertReviewChange(ctx, sqlc.InsertReviewChangeParams{
			ReviewID: id,
			ChangeID: change,
		})
		if err != nil {
			return fmt.Errorf("index change %d: %w", change, err)
		}
	}

	return nil
}

// GetReview retrieves a review by its ID.
func (s *SqlcStore) GetReview(ctx context.Context, id int64) (Review,
	error) {

	row, err := s.queries.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}

	return reviewFromRow(row), nil
}

// ListReviews lists reviews newest first.
func (s *SqlcStore) ListReviews(ctx context.Context, limit,
	offset int) ([]Review, error) {

	rows, err := s.queries.ListReviews(ctx, sqlc.ListReviewsParams{
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, err
	}

	return reviewsFromRows(rows), nil
}

// ListReviewsByState lists reviews in the given state.
func (s *SqlcStore) ListReviewsByState(ctx context.Context, state string,
	limit int) ([]Review, error) {

	rows, err := s.queries.ListReviewsByState(
		ctx, sqlc.ListReviewsByStateParams{
			State: state,
			Limit: int64(limit),
		},
	)
	if err != nil {
		return nil, err
	}

	return reviewsFromRows(rows), nil
}

// ReviewIDsByChange returns the reviews containing a change.
func (s *SqlcStore) ReviewIDsByChange(ctx context.Context,
	change int64) ([]int64, error) {

	return s.queries.ListReviewIDsByChange(ctx, change)
}

// ActivityStore implementation.

// CreateActivity stores an activity and its streams.
func (s *SqlcStore) CreateActivity(ctx context.Context, a Activity) (int64,
	error) {

	var id int64
	err := s.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		q := tx.(*SqlcStore).queries

		var err error
		id, err = q.InsertActivity(ctx, sqlc.InsertActivityParams{
			ActivityType:  a.Type,
			Actor:         a.User,
			Action:        a.Action,
			Target:        a.Target,
			Preposition:   a.Preposition,
			Description:   a.Description,
			Topic:         a.Topic,
			ChangeID:      a.Change,
			DetailsJson:   orDefault(a.DetailsJSON, "{}"),
			ProjectsJson:  orDefault(a.ProjectsJSON, "{}"),
			FollowersJson: orDefault(a.FollowersJSON, "[]"),
			CreatedAt:     a.CreatedAt.Unix(),
		})
		if err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}

		for _, stream := range a.Streams {
			err := q.InsertActivityStream(
				ctx, sqlc.InsertActivityStreamParams{
					ActivityID: id,
					Stream:     stream,
				},
			)
			if err != nil {
				return fmt.Errorf("insert stream %s: %w",
					stream, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ListRecentActivities lists the newest activities.
func (s *SqlcStore) ListRecentActivities(ctx context.Context,
	limit int) ([]Activity, error) {

	rows, err := s.queries.ListRecentActivities(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	return s.activitiesWithStreams(ctx, rows)
}

// ListActivitiesByStream lists the newest activities of a stream.
func (s *SqlcStore) ListActivitiesByStream(ctx context.Context,
	stream string, limit int) ([]Activity, error) {

	rows, err := s.queries.ListActivitiesByStream(
		ctx, sqlc.ListActivitiesByStreamParams{
			Stream: stream,
			Limit:  int64(limit),
		},
	)
	if err != nil {
		return nil, err
	}

	return s.activitiesWithStreams(ctx, rows)
}

func (s *SqlcStore) activitiesWithStreams(ctx context.Context,
	rows []sqlc.Activity) ([]Activity, error) {

	out := make([]Activity, 0, len(rows))
	for _, row := range rows {
		streams, err := s.queries.ListActivityStreams(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("streams of activity %d: %w",
				row.ID, err)
		}

		out = append(out, Activity{
			ID:            row.ID,
			Type:          row.ActivityType,
			User:          row.Actor,
			Action:        row.Action,
			Target:        row.Target,
			Preposition:   row.Preposition,
			Description:   row.Description,
			Topic:         row.Topic,
			Change:        row.ChangeID,
			DetailsJSON:   row.DetailsJson,
			ProjectsJSON:  row.ProjectsJson,
			FollowersJSON: row.FollowersJson,
			Streams:       streams,
			CreatedAt:     time.Unix(row.CreatedAt, 0),
		})
	}

	return out, nil
}

func reviewFromRow(row sqlc.Review) Review {
	return Review{
		ID:                row.ID,
		State:             row.State,
		Author:            row.Author,
		Description:       row.Description,
		Type:              row.ReviewType,
		Pending:           row.Pending != 0,
		Token:             row.Token,
		TestStatus:        row.TestStatus,
		DeployStatus:      row.DeployStatus,
		ParticipantsJSON:  row.ParticipantsJson,
		VersionsJSON:      row.VersionsJson,
		ProjectsJSON:      row.ProjectsJson,
		ChangesJSON:       row.ChangesJson,
		CommitsJSON:       row.CommitsJson,
		TestDetailsJSON:   row.TestDetailsJson,
		DeployDetailsJSON: row.DeployDetailsJson,
		CommitStatusJSON:  row.CommitStatusJson,
		CreatedAt:         time.Unix(row.CreatedAt, 0),
		UpdatedAt:         time.Unix(row.UpdatedAt, 0),
	}
}

func reviewsFromRows(rows []sqlc.Review) []Review {
	out := make([]Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, reviewFromRow(row))
	}

	return out
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

// Compile-time check.
var _ Storage = (*SqlcStore)(nil)
