package reconcile

import (
	"fmt"
	"strings"
)

// Counts tallies affected files by action.
type Counts struct {
	Added   int `json:"added"`
	Edited  int `json:"edited"`
	Deleted int `json:"deleted"`
}

// Total is the number of files counted.
func (c Counts) Total() int {
	return c.Added + c.Edited + c.Deleted
}

// Count tallies files by action.
func Count(files []FileDiff) Counts {
	var c Counts
	for _, f := range files {
		switch f.Action {
		case ActionAdd:
			c.Added++
		case ActionDelete:
			c.Deleted++
		default:
			c.Edited++
		}
	}

	return c
}

// Summary describes files in a line such as "2 files added, 1 file edited".
// A list cut by AffectedFiles' maxFiles+1 truncation is reported with a
// trailing "or more" marker when truncated is set.
func Summary(files []FileDiff, truncated bool) string {
	c := Count(files)
	if c.Total() == 0 {
		return "no files changed"
	}

	var parts []string
	for _, p := range []struct {
		n    int
		verb string
	}{
		{c.Added, "added"},
		{c.Edited, "edited"},
		{c.Deleted, "deleted"},
	} {
		if p.n == 0 {
			continue
		}

		noun := "files"
		if p.n == 1 {
			noun = "file"
		}
		parts = append(parts, fmt.Sprintf("%d %s %s", p.n, noun,
			p.verb))
	}

	s := strings.Join(parts, ", ")
	if truncated {
		s += " (or more)"
	}

	return s
}
