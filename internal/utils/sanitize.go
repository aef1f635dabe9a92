// internal/utils/sanitize.go
package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-z0-9]`)

// CleanString trims surrounding whitespace; nil stays nil so partial
// updates can tell "absent" from "empty".
func CleanString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

// CleanEmail lower-cases and strips all whitespace, including the obscure
// unicode kinds that tend to arrive via copy-paste.
func CleanEmail(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\u200b' || r == '\ufeff' {
			return -1
		}
		return r
	}, strings.ToLower(*s))
	return &cleaned
}

// PostcodesMatch compares two postcodes on their alphanumeric characters
// only, so ' IV3-8NW ' matches 'iv38nw'.
func PostcodesMatch(a, b string) bool {
	cleanA := nonAlphaNumeric.ReplaceAllString(strings.ToLower(a), "")
	cleanB := nonAlphaNumeric.ReplaceAllString(strings.ToLower(b), "")
	return cleanA != "" && cleanA == cleanB
}

// YesNo renders a nullable boolean declaration the way the email templates
// expect it.
func YesNo(b *bool) string {
	if b != nil && *b {
		return "yes"
	}
	return "no"
}

// NotYesNo is the inverse pair of YesNo; the templates show both sides of
// each declaration.
func NotYesNo(b *bool) string {
	if b != nil && *b {
		return "no"
	}
	return "yes"
}
