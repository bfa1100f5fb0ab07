package platform

import (
	"strings"
	"unicode/utf8"
)

const (
	// MastodonMaxLength is the character ceiling for a Mastodon status.
	MastodonMaxLength = 500

	// ThreadsMaxLength is the character ceiling for a Threads post.
	ThreadsMaxLength = 500

	// LinkedInMaxLength is the character ceiling for a LinkedIn share.
	LinkedInMaxLength = 3000

	// TwitterMaxLength is the character ceiling for a single tweet.
	TwitterMaxLength = 280
)

// FormatContent normalizes free text for posting: blank lines are collapsed
// and the remaining lines joined with a double newline. Text that exceeds
// the limit is truncated to limit-3 characters with an ellipsis appended, so
// the result is exactly limit characters long. Content at exactly the limit
// is left untouched. Counting is by rune, never by byte.
func FormatContent(content string, limit int) string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	formatted := strings.Join(kept, "\n\n")

	if utf8.RuneCountInString(formatted) <= limit {
		return formatted
	}

	runes := []rune(formatted)
	return string(runes[:limit-3]) + "..."
}

// FitsInLimit reports whether text fits within limit characters.
func FitsInLimit(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}
