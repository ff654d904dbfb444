package synth

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// StripMarkup removes HTML from descriptions and titles before they become
// help_text and label. Entities are unescaped so plain text round-trips.
func StripMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(trimmed)))
}

// FieldLabel derives a label from a field name the way serializer frameworks
// do: separators and camelCase boundaries become spaces and only the first
// letter is capitalised ("first_name" and "firstName" give "First name").
func FieldLabel(name string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])):
			flush()
		case i > 0 && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1]):
			flush()
		}
		current = append(current, r)
	}
	flush()

	label := strings.Join(words, " ")
	if label == "" {
		return ""
	}
	first := []rune(label)
	first[0] = unicode.ToUpper(first[0])
	return string(first)
}
