package queue

import (
	"encoding/json"
	"fmt"

	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/mail"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// ReviewPayload is the payload of a task.review task. It carries the
// snapshot of the review before the mutation so deltas can be recomputed
// on redelivery.
type ReviewPayload = review.Event

// ChangePayload is the payload of a task.change task.
type ChangePayload struct {
	Change int64  `json:"change"`
	User   string `json:"user,omitempty"`
}

// DescriptionPayload is the payload of a task.description task.
type DescriptionPayload struct {
	Change int64 `json:"change"`
}

// CommentPayload is the payload of a task.comment task.
type CommentPayload struct {
	ReviewID int64  `json:"reviewId"`
	User     string `json:"user"`
	Body     string `json:"body"`
}

// MailPayload is the payload of a task.mail task.
type MailPayload struct {
	Task   mail.Task       `json:"task"`
	Record activity.Record `json:"record"`
}

// MarshalPayload serializes a payload for storage.
func MarshalPayload(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	return string(data), nil
}

// UnmarshalPayload decodes the payload of t.
func UnmarshalPayload[P any](t Task) (P, error) {
	var p P
	if err := json.Unmarshal([]byte(t.PayloadJSON), &p); err != nil {
		return p, fmt.Errorf("unmarshal %s payload of task %d: %w",
			t.Type, t.ID, err)
	}

	return p, nil
}
