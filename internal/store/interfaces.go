package store

import (
	"context"
	"time"
)

// Review is the persisted form of a review. Collections that are always read
// and written with the row are kept as JSON documents. ChangeIDs is only read
// on writes, where it replaces the review's change index.
type Review struct {
	ID           int64
	State        string
	Author       string
	Description  string
	Type         string
	Pending      bool
	Token        string
	TestStatus   string
	DeployStatus string

	ParticipantsJSON  string
	VersionsJSON      string
	ProjectsJSON      string
	ChangesJSON       string
	CommitsJSON       string
	TestDetailsJSON   string
	DeployDetailsJSON string
	CommitStatusJSON  string

	ChangeIDs []int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activity is a persisted activity record together with the streams it was
// published to.
type Activity struct {
	ID            int64
	Type          string
	User          string
	Action        string
	Target        string
	Preposition   string
	Description   string
	Topic         string
	Change        int64
	DetailsJSON   string
	ProjectsJSON  string
	FollowersJSON string
	Streams       []string
	CreatedAt     time.Time
}

// ReviewStore handles review persistence.
type ReviewStore interface {
	// CreateReview inserts a review and returns its new ID.
	CreateReview(ctx context.Context, r Review) (int64, error)

	// UpdateReview overwrites a review row and its change index. Returns
	// sql.ErrNoRows if the review does not exist.
	UpdateReview(ctx context.Context, r Review) error

	// GetReview retrieves a review by its ID.
	GetReview(ctx context.Context, id int64) (Review, error)

	// ListReviews lists reviews newest first.
	ListReviews(ctx context.Context, limit, offset int) ([]Review, error)

	// ListReviewsByState lists reviews in the given state, newest first.
	ListReviewsByState(
		ctx context.Context, state string, limit int,
	) ([]Review, error)

	// ReviewIDsByChange returns the reviews containing a change.
	ReviewIDsByChange(ctx context.Context, change int64) ([]int64, error)
}

// ActivityStore handles activity persistence.
type ActivityStore interface {
	// CreateActivity stores an activity and its stream memberships.
	CreateActivity(ctx context.Context, a Activity) (int64, error)

	// ListRecentActivities lists the newest activities across all streams.
	ListRecentActivities(ctx context.Context, limit int) ([]Activity, error)

	// ListActivitiesByStream lists the newest activities of one stream.
	ListActivitiesByStream(
		ctx context.Context, stream string, limit int,
	) ([]Activity, error)
}

// Storage combines all store interfaces.
type Storage interface {
	ReviewStore
	ActivityStore

	// WithTx runs fn with a Storage bound to a single transaction.
	WithTx(ctx context.Context,
		fn func(ctx context.Context, s Storage) error) error

	// Close releases the underlying resources.
	Close() error
}
