package significance

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_PricingAndFeatureLines(t *testing.T) {
	t.Parallel()

	diff := strings.Join([]string{
		"  About our product",
		"+ New price: $49.99/mo",
		"- Old price: $39.99/mo",
		"+ Introducing dark mode",
		"+ nothing interesting here",
	}, "\n")

	highlights := Extract(diff)
	require.Equal(t, []string{
		"[ADDED] New price: $49.99/mo",
		"[REMOVED] Old price: $39.99/mo",
		"[ADDED] Introducing dark mode",
	}, highlights)
}

func TestExtract_SkipsUnchangedLines(t *testing.T) {
	t.Parallel()

	diff := "  price went up\n  cost of goods"
	require.Empty(t, Extract(diff))
}

func TestExtract_CapsAtTen(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, fmt.Sprintf("+ plan %d costs $%d", i, i))
	}
	highlights := Extract(strings.Join(lines, "\n"))
	require.Len(t, highlights, MaxHighlights)
	require.Equal(t, "[ADDED] plan 0 costs $0", highlights[0])
}

func TestExtract_EmptyDiff(t *testing.T) {
	t.Parallel()

	require.Nil(t, Extract(""))
}

func TestHasPricingSignal(t *testing.T) {
	t.Parallel()

	require.True(t, HasPricingSignal("+ now $49.99"))
	require.True(t, HasPricingSignal("+ 12.50 USD per seat"))
	require.False(t, HasPricingSignal("+ brand new docs layout"))
}
