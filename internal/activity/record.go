// Package activity turns review events into activity records, stores them
// and pushes them to live stream subscribers.
package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/store"
)

// Record types.
const (
	TypeReview  = "review"
	TypeComment = "comment"
	TypeChange  = "change"
)

// Record is one entry of the activity stream, read as
// "<User> <Action> <Target> [<Preposition> change <Change>]".
type Record struct {
	ID          int64  `json:"id,omitempty"`
	Type        string `json:"type"`
	User        string `json:"user"`
	Action      string `json:"action"`
	Target      string `json:"target"`
	Preposition string `json:"preposition,omitempty"`
	Description string `json:"description,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Change      int64  `json:"change,omitempty"`

	Time time.Time `json:"time"`

	// Streams are the feeds the record appears in.
	Streams []string `json:"streams,omitempty"`

	Projects  map[string][]string `json:"projects,omitempty"`
	Followers []string            `json:"followers,omitempty"`
	Details   map[string]any      `json:"details,omitempty"`
}

// Text renders the record as a sentence.
func (r Record) Text() string {
	parts := []string{r.User, r.Action, r.Target}
	if r.Preposition != "" && r.Change != 0 {
		parts = append(parts, r.Preposition, "change",
			strconv.FormatInt(r.Change, 10))
	}

	return strings.Join(parts, " ")
}

// Stream names.
func ReviewStream(id int64) string {
	return "review-" + strconv.FormatInt(id, 10)
}

func UserStream(user string) string {
	return "user-" + user
}

func PersonalStream(user string) string {
	return "personal-" + user
}

func ProjectStream(project string) string {
	return "project-" + project
}

func toStore(r Record) (store.Activity, error) {
	details, err := marshalOr(r.Details, "{}")
	if err != nil {
		return store.Activity{}, fmt.Errorf("encode details: %w", err)
	}
	projects, err := marshalOr(r.Projects, "{}")
	if err != nil {
		return store.Activity{}, fmt.Errorf("encode projects: %w", err)
	}
	followers, err := marshalOr(r.Followers, "[]")
	if err != nil {
		return store.Activity{}, fmt.Errorf("encode followers: %w",
			err)
	}

	return store.Activity{
		ID:            r.ID,
		Type:          r.Type,
		User:          r.User,
		Action:        r.Action,
		Target:        r.Target,
		Preposition:   r.Preposition,
		Description:   r.Description,
		Topic:         r.Topic,
		Change:        r.Change,
		DetailsJSON:   details,
		ProjectsJSON:  projects,
		FollowersJSON: followers,
		Streams:       r.Streams,
		CreatedAt:     r.Time,
	}, nil
}

func fromStore(a store.Activity) (Record, error) {
	r := Record{
		ID:          a.ID,
		Type:        a.Type,
		User:        a.User,
		Action:      a.Action,
		Target:      a.Target,
		Preposition: a.Preposition,
		Description: a.Description,
		Topic:       a.Topic,
		Change:      a.Change,
		Time:        a.CreatedAt,
		Streams:     a.Streams,
	}

	for _, f := range []struct {
		raw string
		dst any
	}{
		{a.DetailsJSON, &r.Details},
		{a.ProjectsJSON, &r.Projects},
		{a.FollowersJSON, &r.Followers},
	} {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return Record{}, fmt.Errorf("decode activity %d: %w",
				a.ID, err)
		}
	}

	return r, nil
}

func marshalOr[T any](v T, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}

	return string(b), nil
}
