// Package significance scans rendered diffs for pricing and feature signals.
package significance

import (
	"regexp"
	"strings"
)

// MaxHighlights caps the number of extracted lines per diff.
const MaxHighlights = 10

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`),
	regexp.MustCompile(`(?i)\d+(?:\.\d{2})?\s*(?:USD|EUR|GBP)`),
	regexp.MustCompile(`(?i)price`),
	regexp.MustCompile(`(?i)cost`),
	regexp.MustCompile(`(?i)fee`),
}

var featurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)new feature`),
	regexp.MustCompile(`(?i)deprecated`),
	regexp.MustCompile(`(?i)removed`),
	regexp.MustCompile(`(?i)added`),
	regexp.MustCompile(`(?i)introducing`),
	regexp.MustCompile(`(?i)launch`),
}

// Extract returns up to MaxHighlights annotated lines from the rendered
// diff, in diff order. Only added and removed lines are considered. The
// result is advisory context for display and classification, not
// authoritative.
func Extract(renderedDiff string) []string {
	if renderedDiff == "" {
		return nil
	}

	var highlights []string
	for _, line := range strings.Split(renderedDiff, "\n") {
		var prefix string
		switch {
		case strings.HasPrefix(line, "+"):
			prefix = "[ADDED]"
		case strings.HasPrefix(line, "-"):
			prefix = "[REMOVED]"
		default:
			continue
		}

		content := line
		if len(content) >= 2 {
			content = content[2:]
		}
		if !matchesAny(content, pricePatterns) && !matchesAny(content, featurePatterns) {
			continue
		}
		highlights = append(highlights, prefix+" "+strings.TrimSpace(content))
		if len(highlights) == MaxHighlights {
			break
		}
	}
	return highlights
}

// HasPricingSignal reports whether the diff contains a currency-amount
// pattern. Shared with the fallback classifier so both agree on what counts
// as a pricing change.
func HasPricingSignal(diff string) bool {
	return currencyAmount.MatchString(diff)
}

var currencyAmount = regexp.MustCompile(`(?i)\$[\d,]+|\d+(?:\.\d{2})?\s*(?:USD|EUR)`)

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
