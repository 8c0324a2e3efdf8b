package review

import "strconv"

// TopicFor is the comment and mail threading topic of review id.
func TopicFor(id int64) string {
	return "reviews/" + strconv.FormatInt(id, 10)
}

// Event describes one review mutation to the notification pipeline. It is
// the payload of the review task, so optional values are pointers.
type Event struct {
	ReviewID int64  `json:"reviewId"`
	User     string `json:"user"`

	// IsAdd is set when the review was just created.
	IsAdd bool `json:"isAdd,omitempty"`

	// Previous is the review as it was before the mutation.
	Previous *Snapshot `json:"previous,omitempty"`

	// UpdateFromChange is the change a new version was taken from.
	UpdateFromChange int64 `json:"updateFromChange,omitempty"`

	IsStateChange       bool `json:"isStateChange,omitempty"`
	IsAuthorChange      bool `json:"isAuthorChange,omitempty"`
	IsDescriptionChange bool `json:"isDescriptionChange,omitempty"`
	IsReviewersChange   bool `json:"isReviewersChange,omitempty"`

	// Vote is the explicit vote cast by User, if any.
	Vote *int `json:"vote,omitempty"`

	TestStatus   string `json:"testStatus,omitempty"`
	DeployStatus string `json:"deployStatus,omitempty"`

	// Description overrides the review description in the activity.
	Description string `json:"description,omitempty"`

	// Quiet asks for activity without email.
	Quiet bool `json:"quiet,omitempty"`

	IsCommit     bool  `json:"isCommit,omitempty"`
	CommitChange int64 `json:"commitChange,omitempty"`

	// Fields lists the review fields the mutation changed.
	Fields []string `json:"fields,omitempty"`
}

// OutboxEvent is the sealed interface for side effects a mutation asks the
// service to perform once the new review state is decided.
type OutboxEvent interface {
	isOutboxEvent()
}

func (PersistReview) isOutboxEvent() {}
func (PublishEvent) isOutboxEvent()  {}

// PersistReview requests the review be written to the store.
type PersistReview struct {
	Review *Review
}

// PublishEvent requests the event be handed to the notification pipeline.
type PublishEvent struct {
	Event Event
}
