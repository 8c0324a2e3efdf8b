package directory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Reloader is a Directory read from a YAML file that can be swapped for a
// fresh copy while in use. Readers see either the old or the new file,
// never a mix.
type Reloader struct {
	path string
	cur  atomic.Pointer[Static]
}

// NewReloader loads path.
func NewReloader(path string) (*Reloader, error) {
	r := &Reloader{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Reload reads the file again. On error the current directory is kept.
func (r *Reloader) Reload() error {
	s, err := Load(r.path)
	if err != nil {
		return err
	}
	r.cur.Store(s)

	return nil
}

// Watch reloads the file whenever it is written, replaced or renamed into
// place, until ctx is done. The parent directory is watched since editors
// and config management usually replace files rather than write them.
func (r *Reloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}

	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) {

				continue
			}

			if err := r.Reload(); err != nil {
				log.WarnS(ctx, "Directory reload failed, keeping "+
					"previous", err, "path", r.path)
				continue
			}
			log.InfoS(ctx, "Directory reloaded", "path", r.path,
				"projects", len(r.Projects()))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WarnS(ctx, "Directory watcher error", err,
				"path", r.path)
		}
	}
}

// Project implements Directory.
func (r *Reloader) Project(id string) (Project, bool) {
	return r.cur.Load().Project(id)
}

// Projects implements Directory.
func (r *Reloader) Projects() []Project {
	return r.cur.Load().Projects()
}

// GroupMembers implements Directory.
func (r *Reloader) GroupMembers(id string) []string {
	return r.cur.Load().GroupMembers(id)
}

// IsGroup implements Directory.
func (r *Reloader) IsGroup(id string) bool {
	return r.cur.Load().IsGroup(id)
}

// IsSuper implements Directory.
func (r *Reloader) IsSuper(user string) bool {
	return r.cur.Load().IsSuper(user)
}

// UserExists implements Directory.
func (r *Reloader) UserExists(user string) bool {
	return r.cur.Load().UserExists(user)
}

var _ Directory = (*Reloader)(nil)
