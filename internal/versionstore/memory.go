package versionstore

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Memory is a Store kept in memory. The daemon can seed it from a YAML
// fixture file; tests build it directly.
type Memory struct {
	mu sync.RWMutex

	caseSensitive bool
	changes       map[int64]Change
	jobs          map[string]struct{}
	nextID        int64
	nextArchive   int64

	now func() time.Time
}

// archiveBase is the first id handed out to archive shelves, kept apart
// from user change ids so fixtures never collide with them.
const archiveBase int64 = 1_000_000_000

// fixtureFile is the YAML layout read by LoadFixtures.
type fixtureFile struct {
	CaseSensitive *bool    `yaml:"caseSensitive"`
	Jobs          []string `yaml:"jobs"`
	Changes       []Change `yaml:"changes"`
}

// NewMemory returns an empty case-sensitive store.
func NewMemory() *Memory {
	return &Memory{
		caseSensitive: true,
		changes:       make(map[int64]Change),
		jobs:          make(map[string]struct{}),
		nextID:        1,
		nextArchive:   archiveBase,
		now:           time.Now,
	}
}

// LoadFixtures builds a Memory store from a YAML file.
func LoadFixtures(path string) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	m := NewMemory()
	if f.CaseSensitive != nil {
		m.SetCaseSensitive(*f.CaseSensitive)
	}
	for _, job := range f.Jobs {
		m.AddJob(job)
	}
	for _, c := range f.Changes {
		m.PutChange(c)
	}

	return m, nil
}

// SetCaseSensitive switches path comparison mode.
func (m *Memory) SetCaseSensitive(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.caseSensitive = v
}

// AddJob registers a job id accepted by Submit.
func (m *Memory) AddJob(job string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job] = struct{}{}
}

// PutChange adds or replaces a change.
func (m *Memory) PutChange(c Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.Status == "" {
		c.Status = StatusShelved
	}
	if c.Time.IsZero() {
		c.Time = m.now()
	}
	c.Files = slices.Clone(c.Files)
	m.changes[c.ID] = c

	switch {
	case c.ID >= m.nextArchive:
		m.nextArchive = c.ID + 1
	case c.ID >= m.nextID && c.ID < archiveBase:
		m.nextID = c.ID + 1
	}
}

// FetchChange implements Store.
func (m *Memory) FetchChange(_ context.Context, id int64) (Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.changes[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %d", ErrChangeNotFound, id)
	}
	c.Files = slices.Clone(c.Files)

	return c, nil
}

// DescribeFiles implements Store.
func (m *Memory) DescribeFiles(_ context.Context, change int64,
	max int) ([]File, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.changes[change]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChangeNotFound, change)
	}

	files := slices.Clone(c.Files)
	if max > 0 && len(files) > max {
		files = files[:max]
	}

	return files, nil
}

// CaseSensitive implements Store.
func (m *Memory) CaseSensitive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.caseSensitive
}

// Submit implements Store. The shelf is left in place and a new submitted
// change is created from it.
func (m *Memory) Submit(_ context.Context, req SubmitRequest) (int64,
	error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.changes[req.Change]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrChangeNotFound, req.Change)
	}
	if shelf.IsSubmitted() {
		return 0, &CommandError{
			Command: "submit",
			Message: fmt.Sprintf("Change %d is already committed.",
				req.Change),
		}
	}

	for _, f := range shelf.Files {
		if f.Unresolved {
			return 0, &CommandError{
				Command: "submit",
				Message: fmt.Sprintf("%s - must resolve "+
					"before submitting; file is out of "+
					"date", f.DepotFile),
			}
		}
	}

	for _, job := range req.Jobs {
		if _, ok := m.jobs[job]; !ok {
			return 0, &CommandError{
				Command: "submit",
				Message: fmt.Sprintf("Job '%s' doesn't exist.",
					job),
			}
		}
	}
	if req.FixStatus != "" && len(req.Jobs) > 0 &&
		!validFixStatus(req.FixStatus) {

		return 0, &CommandError{
			Command: "submit",
			Message: fmt.Sprintf("Fix status '%s' is not a valid "+
				"fix status.", req.FixStatus),
		}
	}

	desc := req.Description
	if desc == "" {
		desc = shelf.Description
	}

	submitted := Change{
		ID:          m.nextID,
		User:        req.User,
		Client:      shelf.Client,
		Description: desc,
		Status:      StatusSubmitted,
		Time:        m.now(),
		Files:       make([]File, len(shelf.Files)),
	}
	if submitted.User == "" {
		submitted.User = shelf.User
	}
	for i, f := range shelf.Files {
		f.Rev++
		submitted.Files[i] = f
	}

	m.changes[submitted.ID] = submitted
	m.nextID++

	return submitted.ID, nil
}

// ArchiveShelf implements Store.
func (m *Memory) ArchiveShelf(_ context.Context, change int64) (int64,
	error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.changes[change]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrChangeNotFound, change)
	}
	if src.IsSubmitted() {
		return 0, &CommandError{
			Command: "shelve",
			Message: fmt.Sprintf("Change %d is already committed.",
				change),
		}
	}

	archive := src
	archive.ID = m.nextArchive
	archive.Status = StatusShelved
	archive.Time = m.now()
	archive.Files = slices.Clone(src.Files)

	m.changes[archive.ID] = archive
	m.nextArchive++

	return archive.ID, nil
}

func validFixStatus(status string) bool {
	switch strings.ToLower(status) {
	case "open", "closed", "suspended", "fixed", "same":
		return true
	}

	return false
}

var _ Store = (*Memory)(nil)
