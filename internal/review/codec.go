package review

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/wangchlxt/Swarm-sub001/internal/store"
)

// toRecord encodes r for the store.
func toRecord(r *Review) (store.Review, error) {
	rec := store.Review{
		ID:           r.ID,
		State:        string(r.State),
		Author:       r.Author,
		Description:  r.Description,
		Type:         string(r.Type),
		Pending:      r.Pending,
		Token:        r.Token,
		TestStatus:   r.TestStatus,
		DeployStatus: r.DeployStatus,
		ChangeIDs:    r.ChangeIDs(),
		CreatedAt:    r.Created,
		UpdatedAt:    r.Updated,
	}

	projects := r.Projects
	if projects == nil {
		projects = map[string][]string{}
	}

	fields := []struct {
		dst *string
		src any
	}{
		{&rec.ParticipantsJSON, orEmpty(r.Participants)},
		{&rec.VersionsJSON, orEmpty(r.Versions)},
		{&rec.ProjectsJSON, projects},
		{&rec.ChangesJSON, orEmpty(r.Changes)},
		{&rec.CommitsJSON, orEmpty(r.Commits)},
		{&rec.TestDetailsJSON, r.TestDetails},
		{&rec.DeployDetailsJSON, r.DeployDetails},
		{&rec.CommitStatusJSON, r.CommitStatus},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.src)
		if err != nil {
			return store.Review{}, fmt.Errorf("encode review %d: %w",
				r.ID, err)
		}
		*f.dst = string(b)
	}

	return rec, nil
}

// fromRecord decodes a stored review.
func fromRecord(rec store.Review) (*Review, error) {
	r := &Review{
		ID:           rec.ID,
		State:        State(rec.State),
		Author:       rec.Author,
		Description:  rec.Description,
		Type:         Type(rec.Type),
		Pending:      rec.Pending,
		Token:        rec.Token,
		TestStatus:   rec.TestStatus,
		DeployStatus: rec.DeployStatus,
		Created:      rec.CreatedAt,
		Updated:      rec.UpdatedAt,
	}

	fields := []struct {
		src string
		dst any
	}{
		{rec.ParticipantsJSON, &r.Participants},
		{rec.VersionsJSON, &r.Versions},
		{rec.ProjectsJSON, &r.Projects},
		{rec.ChangesJSON, &r.Changes},
		{rec.CommitsJSON, &r.Commits},
		{rec.TestDetailsJSON, &r.TestDetails},
		{rec.DeployDetailsJSON, &r.DeployDetails},
		{rec.CommitStatusJSON, &r.CommitStatus},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode review %d: %w", rec.ID,
				err)
		}
	}

	return r, nil
}

// orEmpty keeps nil slices from encoding as null.
func orEmpty[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}

	return s
}

// changedFields names the fields that differ between prev and cur.
func changedFields(prev, cur *Review) []string {
	var fields []string
	add := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}

	add("state", prev.State != cur.State)
	add("author", prev.Author != cur.Author)
	add("description", prev.Description != cur.Description)
	add("pending", prev.Pending != cur.Pending)
	add("participants", !participantsEqual(prev.Participants,
		cur.Participants))
	add("versions", !slices.Equal(prev.Versions, cur.Versions))
	add("projects", !maps.EqualFunc(prev.Projects, cur.Projects,
		slices.Equal[[]string]))
	add("changes", !slices.Equal(prev.Changes, cur.Changes))
	add("commits", !slices.Equal(prev.Commits, cur.Commits))
	add("testStatus", prev.TestStatus != cur.TestStatus)
	add("testDetails", prev.TestDetails != cur.TestDetails)
	add("deployStatus", prev.DeployStatus != cur.DeployStatus)
	add("deployDetails", prev.DeployDetails != cur.DeployDetails)
	add("commitStatus", prev.CommitStatus != cur.CommitStatus)

	return fields
}

func participantsEqual(a, b Participants) bool {
	return slices.EqualFunc(a, b, func(x, y Participant) bool {
		return x.ID == y.ID &&
			x.Data.Required == y.Data.Required &&
			x.Data.NotificationsDisabled ==
				y.Data.NotificationsDisabled &&
			x.Data.Vote == y.Data.Vote &&
			slices.Equal(x.Data.ReadBy, y.Data.ReadBy)
	})
}
