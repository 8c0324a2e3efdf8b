package review

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// reviewKeyword matches "#review", "#review-123" and "[review]" in change
// descriptions.
var reviewKeyword = regexp.MustCompile(
	`(?i)(?:#review(?:-(\d+))?\b|\[review\])`,
)

// gitImportMarker starts the metadata block appended to changes imported
// from git.
const gitImportMarker = "Imported from Git"

// Keyword is a review request found in a change description.
type Keyword struct {
	// Review is set by "#review-<id>".
	Review fn.Option[int64]
}

// ParseKeyword looks for a review request in desc.
func ParseKeyword(desc string) fn.Option[Keyword] {
	m := reviewKeyword.FindStringSubmatch(desc)
	if m == nil {
		return fn.None[Keyword]()
	}

	var k Keyword
	if m[1] != "" {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			k.Review = fn.Some(id)
		}
	}

	return fn.Some(k)
}

// StripKeywords removes review keywords from desc.
func StripKeywords(desc string) string {
	out := reviewKeyword.ReplaceAllString(desc, "")

	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// StripGitInfo drops the git import metadata from desc.
func StripGitInfo(desc string) string {
	if i := strings.Index(desc, gitImportMarker); i >= 0 {
		desc = desc[:i]
	}

	return strings.TrimSpace(desc)
}
