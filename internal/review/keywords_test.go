package review

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

func TestParseKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		want fn.Option[Keyword]
	}{
		{"Fix the build", fn.None[Keyword]()},
		{"Fix the build #review", fn.Some(Keyword{})},
		{"[Review] tidy", fn.Some(Keyword{})},
		{
			"Tidy #review-42 please",
			fn.Some(Keyword{Review: fn.Some(int64(42))}),
		},
		{"Talk to the #reviewers", fn.None[Keyword]()},
		{"#REVIEW-7", fn.Some(Keyword{Review: fn.Some(int64(7))})},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, ParseKeyword(tc.desc), tc.desc)
	}
}

func TestStripKeywords(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Fix the build\nfor good",
		StripKeywords("Fix the #review-3 build\n[review] for good  "))
	require.Equal(t, "", StripKeywords("#review"))
	require.Equal(t, "Talk to the #reviewers",
		StripKeywords("Talk to the #reviewers"))
}

func TestStripGitInfo(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Tidy imports", StripGitInfo(
		"Tidy imports\n\nImported from Git\n Author: a <a@b>\n",
	))
	require.Equal(t, "Plain", StripGitInfo("  Plain\n"))
}
