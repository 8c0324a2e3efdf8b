// Package versionstore is the boundary to the versioned file server. The
// review engine only reads change metadata and file listings from it, plus
// asks it to submit a shelved change when a review is committed.
package versionstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrChangeNotFound is returned for unknown change ids.
var ErrChangeNotFound = errors.New("change not found")

// ChangeStatus is the lifecycle state of a change on the server.
type ChangeStatus string

const (
	// StatusPending is an open change whose files are in a workspace.
	StatusPending ChangeStatus = "pending"

	// StatusShelved is a pending change with shelved file content.
	StatusShelved ChangeStatus = "shelved"

	// StatusSubmitted is a committed change.
	StatusSubmitted ChangeStatus = "submitted"
)

// Change is the metadata of one change.
type Change struct {
	ID          int64        `yaml:"id"`
	User        string       `yaml:"user"`
	Client      string       `yaml:"client"`
	Description string       `yaml:"description"`
	Status      ChangeStatus `yaml:"status"`
	Time        time.Time    `yaml:"time"`
	Files       []File       `yaml:"files"`
}

// IsSubmitted reports whether the change is committed.
func (c Change) IsSubmitted() bool {
	return c.Status == StatusSubmitted
}

// File is one entry of a change's file listing. For shelved files Rev is the
// revision the shelf is based on; for submitted files it is the revision the
// change created.
type File struct {
	DepotFile string `yaml:"depotFile"`
	Action    string `yaml:"action"`
	Type      string `yaml:"type"`
	Rev       int    `yaml:"rev"`
	Digest    string `yaml:"digest"`
	FileSize  int64  `yaml:"fileSize"`

	// Unresolved marks a file that must be resolved before submit.
	Unresolved bool `yaml:"unresolved"`
}

// SubmitRequest asks the server to commit a shelved change.
type SubmitRequest struct {
	Change      int64
	User        string
	Description string
	Jobs        []string
	FixStatus   string
}

// CommandError carries the server's message for a failed command.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Command, e.Message)
}

// Store is the subset of the version server the engine relies on.
type Store interface {
	// FetchChange returns ErrChangeNotFound for unknown ids.
	FetchChange(ctx context.Context, id int64) (Change, error)

	// DescribeFiles lists up to max files of a change. max <= 0 means no
	// limit.
	DescribeFiles(ctx context.Context, change int64,
		max int) ([]File, error)

	// CaseSensitive reports whether depot paths are case sensitive.
	CaseSensitive() bool

	// Submit commits a shelved change and returns the id of the
	// resulting submitted change. Failures are *CommandError values.
	Submit(ctx context.Context, req SubmitRequest) (int64, error)

	// ArchiveShelf copies the current shelved files of a pending change
	// into a new shelved change and returns its id. Later re-shelves of
	// the source leave the copy untouched.
	ArchiveShelf(ctx context.Context, change int64) (int64, error)
}
