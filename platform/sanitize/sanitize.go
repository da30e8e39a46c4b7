// Package sanitize provides text sanitization for user-submitted form fields.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// StripHTML removes all HTML tags from a string.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Encoded tags survive the first pass.
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses runs of horizontal whitespace. Newlines are kept
// so multi-line inquiry messages stay readable.
func Text(s string) string {
	stripped := StripHTML(s)
	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Name sanitizes a single-line field such as a first or last name.
func Name(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}
