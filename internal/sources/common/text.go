package common

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanHTMLText strips markup and entities from titles returned by RSS
// feeds and collapses the remaining whitespace.
func CleanHTMLText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(value), " ")
}
