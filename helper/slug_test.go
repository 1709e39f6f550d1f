package helper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Our Green Future":               "our-green-future",
		"  Hello,   World!  ":            "hello-world",
		"Net-Zero 2030: The Plan":        "netzero-2030-the-plan",
		"Tabs\tand\nnewlines":            "tabs-and-newlines",
		"Café olé":                       "caf-ol",
		"!!!":                            "story",
		"":                               "story",
		"UPPER case 123":                 "upper-case-123",
		"multiple    spaces   collapsed": "multiple-spaces-collapsed",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSlugifyTruncates(t *testing.T) {
	slug := Slugify(strings.Repeat("word ", 20))
	assert.LessOrEqual(t, len(slug), 50)
	assert.False(t, strings.HasSuffix(slug, "-"))
	assert.True(t, strings.HasPrefix(slug, "word-word"))
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "our-green-future", SlugCandidate("our-green-future", 0))
	assert.Equal(t, "our-green-future-1", SlugCandidate("our-green-future", 1))
	assert.Equal(t, "our-green-future-12", SlugCandidate("our-green-future", 12))
}

func TestUnderscore(t *testing.T) {
	assert.Equal(t, "allowed_categories", Underscore("AllowedCategories"))
	assert.Equal(t, "video_url", Underscore("VideoURL"))
	assert.Equal(t, "id", Underscore("ID"))
	assert.Equal(t, "title", Underscore("Title"))
}
