// Package reconcile works out which files differ between review versions
// and which revisions to diff each of them against.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
	"github.com/wangchlxt/Swarm-sub001/internal/versionstore"
)

// ErrInvalidVersionPair is returned when the requested versions do not
// belong to the review or are not ordered oldest first.
var ErrInvalidVersionPair = errors.New("invalid version pair")

// FileDiff is one affected file. Anchors are file revision specifiers
// ("#3" for a submitted revision, "@=123" for content shelved in a change).
// An empty anchor means that side has no content to diff.
type FileDiff struct {
	DepotFile string `json:"depotFile"`
	Action    Action `json:"action"`
	Type      string `json:"type,omitempty"`
	Digest    string `json:"digest,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`

	LeftAnchor  string `json:"left,omitempty"`
	RightAnchor string `json:"right,omitempty"`
}

// IsAdd reports whether the file is new on the right.
func (f FileDiff) IsAdd() bool { return f.Action == ActionAdd }

// IsEdit reports whether the file content changed.
func (f FileDiff) IsEdit() bool { return f.Action == ActionEdit }

// IsDelete reports whether the file is gone on the right.
func (f FileDiff) IsDelete() bool { return f.Action == ActionDelete }

// Engine computes affected files against a version store.
type Engine struct {
	versions versionstore.Store
}

// NewEngine returns an engine reading file listings from versions.
func NewEngine(versions versionstore.Store) *Engine {
	return &Engine{versions: versions}
}

// side is one version of a review with its file listing.
type side struct {
	version review.Version
	files   []versionstore.File
}

// contentAnchor addresses f's content in this version.
func (s side) contentAnchor(f versionstore.File) string {
	if s.version.Pending {
		return "@=" + strconv.FormatInt(s.version.DiffChange(), 10)
	}

	return "#" + strconv.Itoa(f.Rev)
}

// baseAnchor addresses the depot revision f was changed from.
func (s side) baseAnchor(f versionstore.File) string {
	rev := f.Rev
	if !s.version.Pending {
		rev--
	}
	if rev <= 0 {
		return ""
	}

	return "#" + strconv.Itoa(rev)
}

// AffectedFiles lists the files changed by change right of review r. When
// left is set the result is the difference between the two versions
// instead. A positive maxFiles truncates the sorted result to maxFiles+1
// entries so callers can tell the list was cut.
func (e *Engine) AffectedFiles(ctx context.Context, r *review.Review,
	right int64, left fn.Option[int64], maxFiles int) ([]FileDiff, error) {

	rightNum := r.VersionOf(right)
	if rightNum == 0 {
		return nil, fmt.Errorf("%w: change %d is not a version of "+
			"review %d", ErrInvalidVersionPair, right, r.ID)
	}

	leftChange, hasLeft := left.UnwrapOr(0), left.IsSome()
	if hasLeft && leftChange == right {
		return []FileDiff{}, nil
	}

	rightSide, err := e.load(ctx, r.Versions[rightNum-1])
	if err != nil {
		return nil, err
	}

	var files []FileDiff
	if !hasLeft {
		files = e.single(rightSide)
	} else {
		leftNum := r.VersionOf(leftChange)
		if leftNum == 0 || leftNum >= rightNum {
			return nil, fmt.Errorf("%w: change %d is not an "+
				"earlier version of review %d than change %d",
				ErrInvalidVersionPair, leftChange, r.ID, right)
		}

		leftSide, err := e.load(ctx, r.Versions[leftNum-1])
		if err != nil {
			return nil, err
		}

		files = e.pair(leftSide, rightSide)
	}

	sortFiles(files, e.versions.CaseSensitive())

	total := len(files)
	if maxFiles > 0 && len(files) > maxFiles+1 {
		files = files[:maxFiles+1]
	}

	log.DebugS(ctx, "Computed affected files", "review_id", r.ID,
		"right", right, "left", leftChange, "files", total)

	return files, nil
}

func (e *Engine) load(ctx context.Context, v review.Version) (side, error) {
	files, err := e.versions.DescribeFiles(ctx, v.DiffChange(), 0)
	if err != nil {
		return side{}, fmt.Errorf("describe change %d: %w",
			v.DiffChange(), err)
	}

	return side{version: v, files: files}, nil
}

// single classifies the files of one version against their base revision.
func (e *Engine) single(s side) []FileDiff {
	out := make([]FileDiff, 0, len(s.files))
	for _, f := range s.files {
		d := newDiff(f, ClassifyAction(f.Action))
		switch d.Action {
		case ActionAdd:
			d.RightAnchor = s.contentAnchor(f)

		case ActionEdit:
			d.LeftAnchor = s.baseAnchor(f)
			d.RightAnchor = s.contentAnchor(f)

		case ActionDelete:
			d.LeftAnchor = s.baseAnchor(f)
		}
		out = append(out, d)
	}

	return out
}

// pair reconciles two versions of a review file by file.
func (e *Engine) pair(left, right side) []FileDiff {
	key := func(path string) string { return path }
	if !e.versions.CaseSensitive() {
		key = strings.ToLower
	}

	leftFiles := make(map[string]versionstore.File, len(left.files))
	for _, f := range left.files {
		leftFiles[key(f.DepotFile)] = f
	}

	var out []FileDiff
	seen := make(map[string]struct{}, len(right.files))
	for _, rf := range right.files {
		k := key(rf.DepotFile)
		seen[k] = struct{}{}

		lf, ok := leftFiles[k]
		if !ok {
			out = append(out, rightOnly(right, rf))
			continue
		}

		if d, keep := both(left, lf, right, rf); keep {
			out = append(out, d)
		}
	}

	for _, lf := range left.files {
		if _, ok := seen[key(lf.DepotFile)]; ok {
			continue
		}

		if d, keep := leftOnly(left, lf); keep {
			out = append(out, d)
		}
	}

	return out
}

// both handles a file present in both versions.
func both(left side, lf versionstore.File, right side,
	rf versionstore.File) (FileDiff, bool) {

	la, ra := ClassifyAction(lf.Action), ClassifyAction(rf.Action)

	switch {
	case la == ActionDelete && ra == ActionDelete:
		return FileDiff{}, false

	case ra == ActionDelete:
		return newDiff(rf, ActionDelete), true

	case la == ActionDelete:
		d := newDiff(rf, ActionAdd)
		d.RightAnchor = right.contentAnchor(rf)

		return d, true

	case lf.Digest != "" && lf.Digest == rf.Digest:
		return FileDiff{}, false
	}

	d := newDiff(rf, ActionEdit)
	d.LeftAnchor = left.contentAnchor(lf)
	d.RightAnchor = right.contentAnchor(rf)

	return d, true
}

// leftOnly handles a file the right version no longer touches. Submitted
// work stays in the depot; shelved work was backed out, so the diff runs
// from the shelf back to the base revision.
func leftOnly(left side, lf versionstore.File) (FileDiff, bool) {
	if !left.version.Pending {
		return FileDiff{}, false
	}

	switch ClassifyAction(lf.Action) {
	case ActionAdd:
		d := newDiff(lf, ActionDelete)
		d.LeftAnchor = left.contentAnchor(lf)

		return d, true

	case ActionDelete:
		d := newDiff(lf, ActionAdd)
		d.RightAnchor = left.baseAnchor(lf)

		return d, true

	default:
		d := newDiff(lf, ActionEdit)
		d.LeftAnchor = left.contentAnchor(lf)
		d.RightAnchor = left.baseAnchor(lf)

		return d, true
	}
}

// rightOnly handles a file first touched by the right version.
func rightOnly(right side, rf versionstore.File) FileDiff {
	d := newDiff(rf, ClassifyAction(rf.Action))
	if !d.IsAdd() {
		d.LeftAnchor = right.baseAnchor(rf)
	}
	if !d.IsDelete() {
		d.RightAnchor = right.contentAnchor(rf)
	}

	return d
}

func newDiff(f versionstore.File, a Action) FileDiff {
	return FileDiff{
		DepotFile: f.DepotFile,
		Action:    a,
		Type:      f.Type,
		Digest:    f.Digest,
		FileSize:  f.FileSize,
	}
}

// sortFiles orders by depot path. Case-insensitive servers fold case first
// and fall back to byte order so the result stays deterministic.
func sortFiles(files []FileDiff, caseSensitive bool) {
	slices.SortStableFunc(files, func(a, b FileDiff) int {
		if !caseSensitive {
			c := cmp.Compare(
				strings.ToLower(a.DepotFile),
				strings.ToLower(b.DepotFile),
			)
			if c != 0 {
				return c
			}
		}

		return cmp.Compare(a.DepotFile, b.DepotFile)
	})
}
