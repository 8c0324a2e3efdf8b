package directory

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Static is a Directory loaded once from YAML.
type Static struct {
	users    map[string]struct{}
	supers   map[string]struct{}
	groups   map[string]Group
	projects map[string]Project
}

// File is the YAML layout of a directory file.
type File struct {
	Users    []string  `yaml:"users"`
	Supers   []string  `yaml:"supers"`
	Groups   []Group   `yaml:"groups"`
	Projects []Project `yaml:"projects"`
}

// NewStatic indexes f.
func NewStatic(f File) *Static {
	s := &Static{
		users:    make(map[string]struct{}),
		supers:   make(map[string]struct{}),
		groups:   make(map[string]Group),
		projects: make(map[string]Project),
	}

	for _, u := range f.Users {
		s.users[u] = struct{}{}
	}
	for _, u := range f.Supers {
		s.supers[u] = struct{}{}
		s.users[u] = struct{}{}
	}
	for _, g := range f.Groups {
		s.groups[g.ID] = g
		for _, u := range g.Users {
			s.users[u] = struct{}{}
		}
	}
	for _, p := range f.Projects {
		s.projects[p.ID] = p
	}

	return s
}

// Load reads a YAML directory file.
func Load(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse directory %s: %w", path, err)
	}

	return NewStatic(f), nil
}

// Project implements Directory.
func (s *Static) Project(id string) (Project, bool) {
	p, ok := s.projects[id]
	return p, ok
}

// Projects implements Directory. Projects are sorted by id.
func (s *Static) Projects() []Project {
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}

// GroupMembers implements Directory. Cycles between groups are tolerated.
func (s *Static) GroupMembers(id string) []string {
	seen := make(map[string]struct{})
	visited := make(map[string]struct{})

	var walk func(string)
	walk = func(gid string) {
		if _, ok := visited[gid]; ok {
			return
		}
		visited[gid] = struct{}{}

		g, ok := s.groups[gid]
		if !ok {
			return
		}
		for _, u := range g.Users {
			seen[u] = struct{}{}
		}
		for _, sub := range g.Subgroups {
			walk(GroupID(sub))
		}
	}
	walk(id)

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	slices.Sort(out)

	return out
}

// IsGroup implements Directory.
func (s *Static) IsGroup(id string) bool {
	_, ok := s.groups[GroupID(id)]
	return ok
}

// IsSuper implements Directory.
func (s *Static) IsSuper(user string) bool {
	_, ok := s.supers[user]
	return ok
}

// UserExists implements Directory.
func (s *Static) UserExists(user string) bool {
	_, ok := s.users[user]
	return ok
}

var _ Directory = (*Static)(nil)
