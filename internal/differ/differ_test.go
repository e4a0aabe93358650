package differ

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiff_IdenticalTextsRenderEmpty(t *testing.T) {
	t.Parallel()

	text := "Plans\nStarter $10/mo\nPro $25/mo"
	result := Diff(text, text)

	require.False(t, result.HasChanges)
	require.Equal(t, "", result.Rendered)
	require.Zero(t, result.Additions)
	require.Zero(t, result.Deletions)
}

func TestDiff_EmptyOldTextIsAllAdditions(t *testing.T) {
	t.Parallel()

	newText := "line one\nline two\nline three"
	result := Diff("", newText)

	require.True(t, result.HasChanges)
	require.Equal(t, 3, result.Additions)
	require.Zero(t, result.Deletions)
	for _, line := range strings.Split(result.Rendered, "\n") {
		require.True(t, strings.HasPrefix(line, "+ "), "expected addition line, got %q", line)
	}
}

func TestDiff_ReplacedLine(t *testing.T) {
	t.Parallel()

	oldText := "Plans\nStarter $10/mo\nContact us"
	newText := "Plans\nStarter $12/mo\nContact us"
	result := Diff(oldText, newText)

	require.True(t, result.HasChanges)
	require.Equal(t, 1, result.Additions)
	require.Equal(t, 1, result.Deletions)
	require.Contains(t, result.Rendered, "- Starter $10/mo")
	require.Contains(t, result.Rendered, "+ Starter $12/mo")
	require.Contains(t, result.Rendered, "  Plans")
	require.Contains(t, result.Rendered, "  Contact us")
}

func TestDiff_RemovalOnly(t *testing.T) {
	t.Parallel()

	oldText := "a\nb\nc"
	newText := "a\nc"
	result := Diff(oldText, newText)

	require.Equal(t, 0, result.Additions)
	require.Equal(t, 1, result.Deletions)
	require.Equal(t, "  a\n- b\n  c", result.Rendered)
}

func TestDiff_Deterministic(t *testing.T) {
	t.Parallel()

	oldText := "x\ny\nx\ny"
	newText := "y\nx\ny\nx"
	first := Diff(oldText, newText)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Diff(oldText, newText))
	}
}

func TestSplitLines_DropsEmpty(t *testing.T) {
	t.Parallel()

	require.Nil(t, SplitLines(""))
	require.Equal(t, []string{"a", "b"}, SplitLines("a\n\nb\n"))
}
