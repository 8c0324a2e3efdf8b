package versionstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
caseSensitive: false
jobs: [job000001]
changes:
  - id: 12
    user: alice
    status: shelved
    description: "Fix parser #review"
    files:
      - depotFile: //depot/main/a.txt
        action: edit
        type: text
        rev: 3
        digest: D1
      - depotFile: //depot/main/b.txt
        action: add
        type: text
        digest: D2
`

func loadTestFixtures(t *testing.T) *Memory {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))

	m, err := LoadFixtures(path)
	require.NoError(t, err)

	return m
}

func TestLoadFixtures(t *testing.T) {
	t.Parallel()

	m := loadTestFixtures(t)
	require.False(t, m.CaseSensitive())

	c, err := m.FetchChange(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "alice", c.User)
	require.Equal(t, StatusShelved, c.Status)
	require.Len(t, c.Files, 2)

	files, err := m.DescribeFiles(context.Background(), 12, 1)
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = m.FetchChange(context.Background(), 99)
	require.ErrorIs(t, err, ErrChangeNotFound)
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := loadTestFixtures(t)

	id, err := m.Submit(ctx, SubmitRequest{
		Change: 12, User: "bob", Jobs: []string{"job000001"},
		FixStatus: "closed",
	})
	require.NoError(t, err)
	require.EqualValues(t, 13, id)

	c, err := m.FetchChange(ctx, id)
	require.NoError(t, err)
	require.True(t, c.IsSubmitted())
	require.Equal(t, "Fix parser #review", c.Description)
	require.Equal(t, 4, c.Files[0].Rev)
	require.Equal(t, 1, c.Files[1].Rev)
}

func TestSubmitFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := loadTestFixtures(t)

	var cmdErr *CommandError

	_, err := m.Submit(ctx, SubmitRequest{
		Change: 12, Jobs: []string{"job999"},
	})
	require.True(t, errors.As(err, &cmdErr))
	require.Contains(t, cmdErr.Message, "doesn't exist")

	_, err = m.Submit(ctx, SubmitRequest{
		Change: 12, Jobs: []string{"job000001"}, FixStatus: "bogus",
	})
	require.True(t, errors.As(err, &cmdErr))
	require.Contains(t, cmdErr.Message, "fix status")

	m.PutChange(Change{ID: 20, Files: []File{{
		DepotFile: "//depot/x", Action: "edit", Unresolved: true,
	}}})
	_, err = m.Submit(ctx, SubmitRequest{Change: 20})
	require.True(t, errors.As(err, &cmdErr))
	require.Contains(t, cmdErr.Message, "out of date")
}

func TestArchiveShelf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := loadTestFixtures(t)

	archive, err := m.ArchiveShelf(ctx, 12)
	require.NoError(t, err)
	require.GreaterOrEqual(t, archive, archiveBase)

	// Re-shelving the source must not leak into the archive.
	m.PutChange(Change{ID: 12, User: "alice", Files: []File{{
		DepotFile: "//depot/main/a.txt", Action: "edit", Rev: 3,
		Digest: "D3",
	}}})

	files, err := m.DescribeFiles(ctx, archive, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "D1", files[0].Digest)

	// Archive ids do not consume user change ids.
	id, err := m.Submit(ctx, SubmitRequest{Change: 12})
	require.NoError(t, err)
	require.EqualValues(t, 13, id)

	next, err := m.ArchiveShelf(ctx, 12)
	require.NoError(t, err)
	require.Equal(t, archive+1, next)

	var cmdErr *CommandError
	_, err = m.ArchiveShelf(ctx, id)
	require.True(t, errors.As(err, &cmdErr))

	_, err = m.ArchiveShelf(ctx, 99)
	require.ErrorIs(t, err, ErrChangeNotFound)
}
