// Package differ computes line-level diffs between canonical texts.
package differ

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// Diff aligns the two texts line by line and renders an annotated diff.
// Added lines are prefixed "+ ", removed lines "- ", unchanged lines "  ".
// The alignment is deterministic: the same pair of texts always produces the
// same rendering, with ties resolved toward the earliest position.
func Diff(oldText, newText string) watch.DiffResult {
	oldLines := SplitLines(oldText)
	newLines := SplitLines(newText)

	matcher := difflib.NewMatcher(oldLines, newLines)

	var (
		parts     []string
		additions int
		deletions int
	)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, line := range newLines[op.J1:op.J2] {
				parts = append(parts, "  "+line)
			}
		case 'd':
			for _, line := range oldLines[op.I1:op.I2] {
				parts = append(parts, "- "+line)
				deletions++
			}
		case 'i':
			for _, line := range newLines[op.J1:op.J2] {
				parts = append(parts, "+ "+line)
				additions++
			}
		case 'r':
			for _, line := range oldLines[op.I1:op.I2] {
				parts = append(parts, "- "+line)
				deletions++
			}
			for _, line := range newLines[op.J1:op.J2] {
				parts = append(parts, "+ "+line)
				additions++
			}
		}
	}

	hasChanges := additions > 0 || deletions > 0
	rendered := ""
	if hasChanges {
		rendered = strings.Join(parts, "\n")
	}
	return watch.DiffResult{
		Rendered:   rendered,
		Additions:  additions,
		Deletions:  deletions,
		HasChanges: hasChanges,
	}
}

// SplitLines splits text into its non-empty lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
