package acquirer

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector removes elements that never carry page content.
const boilerplateSelector = "script, style, noscript, iframe, nav, footer, header, aside"

// mainContentSelector prefers a designated main-content region when the
// document exposes one.
const mainContentSelector = "main, article, [role='main'], .content, .main-content, #content, #main"

var hiddenStyle = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

// Normalize reduces raw HTML to canonical text: boilerplate and hidden
// elements stripped, main-content region preferred over the full body,
// whitespace runs collapsed, lines trimmed, empty lines dropped. Cosmetic
// re-renders of unchanged information produce identical output.
func Normalize(rawHTML []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()
	doc.Find("[hidden], .hidden").Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if style, ok := s.Attr("style"); ok && hiddenStyle.MatchString(style) {
			s.Remove()
		}
	})

	region := doc.Find(mainContentSelector).First()
	var text string
	if region.Length() > 0 {
		text = region.Text()
	} else {
		text = doc.Find("body").Text()
	}

	return collapseText(text), nil
}

// collapseText collapses whitespace runs within each line to single spaces,
// trims every line and drops empty ones.
func collapseText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}
