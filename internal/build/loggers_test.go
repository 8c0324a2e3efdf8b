package build

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestSubLoggersTagOutput checks records carry the subsystem tag and reach
// every writer.
func TestSubLoggersTagOutput(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	loggers := NewSubLoggers(&console, &file)

	loggers.Logger("REVW").InfoS(context.Background(), "review updated",
		"review_id", 12)

	for _, buf := range []*bytes.Buffer{&console, &file} {
		require.Contains(t, buf.String(), "REVW")
		require.Contains(t, buf.String(), "review updated")
	}
}

// TestSetLevels covers global and per-subsystem level strings.
func TestSetLevels(t *testing.T) {
	t.Parallel()

	loggers := NewSubLoggers(&bytes.Buffer{})
	revw := loggers.Logger("REVW")
	queu := loggers.Logger("QUEU")

	require.NoError(t, loggers.SetLevels("debug"))
	require.Equal(t, btclog.LevelDebug, revw.Level())
	require.Equal(t, btclog.LevelDebug, queu.Level())

	require.NoError(t, loggers.SetLevels("revw=trace, QUEU=warn"))
	require.Equal(t, btclog.LevelTrace, revw.Level())
	require.Equal(t, btclog.LevelWarn, queu.Level())

	require.Error(t, loggers.SetLevels("loud"))
	require.Error(t, loggers.SetLevels("REVW"+"=nope"))
	require.Equal(t, []string{"QUEU", "REVW"}, loggers.Tags())
}
