package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultValid(t *testing.T) {
	t.Parallel()

	cfg := Default("/var/lib/swarm")
	require.NoError(t, cfg.Validate())
	require.Equal(t, "/var/lib/swarm/swarm.db", cfg.Database.Path)
	require.Equal(t, LockSQLite, cfg.Lock.Backend)
	require.Equal(t, 30*time.Second, cfg.Webhook.Timeout.D())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	defaults := Default(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "swarmd.toml")
	content := `
[worker]
count = 8
poll_interval = "250ms"

[review]
disable_commit = true
description_sync_delay = "1m"

[import]
user = "git-fusion-user"
delay = "10s"

[lock]
backend = "memory"
lease = "2m"

[directory]
path = "/etc/swarm/directory.yaml"
watch = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, Default("/data"))
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Worker.Count)
	require.Equal(t, 250*time.Millisecond, cfg.Worker.PollInterval.D())
	require.Equal(t, 32, cfg.Worker.BatchSize)
	require.True(t, cfg.Review.DisableCommit)
	require.Equal(t, time.Minute, cfg.Review.DescriptionSyncDelay.D())
	require.Equal(t, "git-fusion-user", cfg.Import.User)
	require.Equal(t, 10*time.Second, cfg.Import.Delay.D())
	require.Equal(t, LockMemory, cfg.Lock.Backend)
	require.Equal(t, 2*time.Minute, cfg.Lock.Lease.D())
	require.True(t, cfg.Directory.Watch)
	require.Equal(t, "/data/swarm.db", cfg.Database.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", "[worker]\npoll_interval = \"soon\"\n"},
		{"zero workers", "[worker]\ncount = 0\n"},
		{"unknown lock", "[lock]\nbackend = \"redis\"\n"},
		{"watch without path", "[directory]\nwatch = true\n"},
		{"negative delay", "[import]\ndelay = \"-1s\"\n"},
		{"malformed", "[worker\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "swarmd.toml")
			require.NoError(t, os.WriteFile(
				path, []byte(tc.content), 0o644,
			))

			_, err := Load(path, Default("/data"))
			require.Error(t, err)
		})
	}
}
