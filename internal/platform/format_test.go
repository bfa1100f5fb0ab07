package platform

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFormatContent_CollapsesBlankLines(t *testing.T) {
	input := "first line\n\n\n  second line  \n\nthird"
	got := FormatContent(input, MastodonMaxLength)
	assert.Equal(t, "first line\n\nsecond line\n\nthird", got)
}

func TestFormatContent_ExactLimitUntouched(t *testing.T) {
	input := strings.Repeat("a", 500)
	got := FormatContent(input, 500)
	assert.Equal(t, input, got)
}

func TestFormatContent_TruncatesWithEllipsis(t *testing.T) {
	input := strings.Repeat("a", 501)
	got := FormatContent(input, 500)

	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 497), got[:497])
}

func TestFormatContent_CountsRunesNotBytes(t *testing.T) {
	// 400 two-byte runes: 800 bytes but only 400 characters.
	input := strings.Repeat("é", 400)
	got := FormatContent(input, 500)
	assert.Equal(t, input, got)

	input = strings.Repeat("é", 501)
	got = FormatContent(input, 500)
	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFormatContent_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContent("", 500))
	assert.Equal(t, "", FormatContent("\n\n  \n", 500))
}

func TestFitsInLimit(t *testing.T) {
	assert.True(t, FitsInLimit(strings.Repeat("x", 3000), LinkedInMaxLength))
	assert.False(t, FitsInLimit(strings.Repeat("x", 3001), LinkedInMaxLength))
	assert.True(t, FitsInLimit(strings.Repeat("é", 3000), LinkedInMaxLength))
}
