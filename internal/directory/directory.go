// Package directory answers who is who: projects with their members and
// moderated branches, groups with nested membership, and super users.
package directory

import (
	"slices"
	"strings"
)

// GroupPrefix marks a review participant id as a group.
const GroupPrefix = "swarm-group-"

// IsGroupID reports whether a participant id names a group.
func IsGroupID(id string) bool {
	return strings.HasPrefix(id, GroupPrefix)
}

// GroupID turns a participant id into a plain group id.
func GroupID(participant string) string {
	return strings.TrimPrefix(participant, GroupPrefix)
}

// Webhook is an automated test or deploy trigger.
type Webhook struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Branch is a named set of depot paths inside a project.
type Branch struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Paths      []string `yaml:"paths"`
	Moderators []string `yaml:"moderators"`
}

// Moderated reports whether the branch restricts state changes.
func (b Branch) Moderated() bool {
	return len(b.Moderators) > 0
}

// Project groups branches under a membership list.
type Project struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Private  bool     `yaml:"private"`
	Members  []string `yaml:"members"`
	Owners   []string `yaml:"owners"`
	Branches []Branch `yaml:"branches"`

	// MailingList, when set, receives a copy of project mail.
	MailingList string `yaml:"mailingList"`

	// EmailDisabled suppresses review mail for this project.
	EmailDisabled bool `yaml:"emailDisabled"`

	Tests  Webhook `yaml:"tests"`
	Deploy Webhook `yaml:"deploy"`
}

// Branch looks up a branch by id.
func (p Project) Branch(id string) (Branch, bool) {
	for _, b := range p.Branches {
		if b.ID == id {
			return b, true
		}
	}

	return Branch{}, false
}

// Group is a named user list that may nest other groups.
type Group struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Users     []string `yaml:"users"`
	Subgroups []string `yaml:"subgroups"`
}

// Directory is what the review engine needs to know about users.
type Directory interface {
	// Project returns a project by id.
	Project(id string) (Project, bool)

	// Projects lists all projects.
	Projects() []Project

	// GroupMembers returns the users of a group, expanding nested groups.
	// Unknown groups have no members.
	GroupMembers(id string) []string

	// IsGroup reports whether id names a known group.
	IsGroup(id string) bool

	// IsSuper reports whether user may bypass project restrictions.
	IsSuper(user string) bool

	// UserExists reports whether user is known.
	UserExists(user string) bool
}

// IsMember reports whether user is a member or owner of p, directly or
// through a group listed with the group prefix.
func IsMember(d Directory, p Project, user string) bool {
	return inList(d, append(slices.Clone(p.Members), p.Owners...), user)
}

// IsModerator reports whether user moderates branch b.
func IsModerator(d Directory, b Branch, user string) bool {
	return inList(d, b.Moderators, user)
}

// Expand resolves a list of user and group ids into sorted unique users.
func Expand(d Directory, ids []string) []string {
	seen := make(map[string]struct{})
	for _, id := range ids {
		if IsGroupID(id) {
			for _, u := range d.GroupMembers(GroupID(id)) {
				seen[u] = struct{}{}
			}
			continue
		}
		seen[id] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	slices.Sort(out)

	return out
}

func inList(d Directory, ids []string, user string) bool {
	if user == "" {
		return false
	}

	for _, id := range ids {
		if id == user {
			return true
		}
		if IsGroupID(id) &&
			slices.Contains(d.GroupMembers(GroupID(id)), user) {

			return true
		}
	}

	return false
}

// AffectedBranches maps depot paths onto project branches. A branch path
// ending in "/..." matches everything beneath it, anything else must match
// exactly. The result maps project id to sorted branch ids.
func AffectedBranches(d Directory, paths []string,
	caseSensitive bool) map[string][]string {

	norm := func(s string) string {
		if caseSensitive {
			return s
		}
		return strings.ToLower(s)
	}

	affected := make(map[string][]string)
	for _, p := range d.Projects() {
		for _, b := range p.Branches {
			if !branchMatches(b, paths, norm) {
				continue
			}
			affected[p.ID] = append(affected[p.ID], b.ID)
		}
		slices.Sort(affected[p.ID])
	}

	return affected
}

func branchMatches(b Branch, paths []string,
	norm func(string) string) bool {

	for _, pattern := range b.Paths {
		pattern = norm(pattern)
		prefix, wild := strings.CutSuffix(pattern, "...")

		for _, path := range paths {
			path = norm(path)
			if wild && strings.HasPrefix(path, prefix) {
				return true
			}
			if !wild && path == pattern {
				return true
			}
		}
	}

	return false
}
