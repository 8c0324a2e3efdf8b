package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const dirV1 = `
users: [alice, bob]
projects:
  - id: web
    members: [alice]
`

const dirV2 = `
users: [alice, bob, carol]
supers: [carol]
projects:
  - id: web
    members: [alice, bob]
  - id: api
    members: [carol]
`

func TestReloaderReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dirV1), 0o644))

	r, err := NewReloader(path)
	require.NoError(t, err)
	require.Len(t, r.Projects(), 1)
	require.False(t, r.UserExists("carol"))

	require.NoError(t, os.WriteFile(path, []byte(dirV2), 0o644))
	require.NoError(t, r.Reload())
	require.Len(t, r.Projects(), 2)
	require.True(t, r.IsSuper("carol"))

	// A broken file leaves the last good copy in place.
	require.NoError(t, os.WriteFile(path, []byte("users: ["), 0o644))
	require.Error(t, r.Reload())
	require.Len(t, r.Projects(), 2)
}

func TestReloaderWatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dirV1), 0o644))

	r, err := NewReloader(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// The watcher may not be registered yet; keep rewriting until the
	// change is seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(dirV2), 0o644)
		_, ok := r.Project("api")
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNewReloaderMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewReloader(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
