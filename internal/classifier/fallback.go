// Package classifier grades detected changes, either via an external
// summarization oracle or a deterministic heuristic.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/competitor-watch/internal/significance"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// minorThreshold is the changed-line count above which a non-pricing change
// is graded minor instead of cosmetic.
const minorThreshold = 50

// Fallback is the deterministic classifier used when no oracle is
// configured or the oracle call fails. It is pure arithmetic and pattern
// matching over the rendered diff and cannot fail.
type Fallback struct{}

// NewFallback creates a Fallback classifier.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Classify grades the diff by changed-line counts and pricing signals.
// Pricing signals always dominate: any currency-amount match yields a major,
// important judgment.
func (f *Fallback) Classify(_ context.Context, _ string, _ watch.EntityCategory, renderedDiff string) watch.Judgment {
	additions, deletions := countChangedLines(renderedDiff)
	pricing := significance.HasPricingSignal(renderedDiff)

	summary := fmt.Sprintf("Detected %d additions and %d deletions.", additions, deletions)
	if pricing {
		summary += " Price-related content may have changed."
	}

	severity := watch.SeverityCosmetic
	switch {
	case pricing:
		severity = watch.SeverityMajor
	case additions+deletions > minorThreshold:
		severity = watch.SeverityMinor
	}

	return watch.Judgment{
		Summary:     summary,
		KeyPoints:   []string{},
		Severity:    severity,
		IsImportant: pricing,
	}
}

func countChangedLines(renderedDiff string) (additions, deletions int) {
	if renderedDiff == "" {
		return 0, 0
	}
	for _, line := range strings.Split(renderedDiff, "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
