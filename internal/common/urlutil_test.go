package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases scheme and host",
			input:    "HTTPS://Example.COM/News",
			expected: "https://example.com/News",
		},
		{
			name:     "strips tracking params",
			input:    "https://example.com/a?utm_source=wx&id=3&spm=x.y",
			expected: "https://example.com/a?id=3",
		},
		{
			name:     "sorts remaining query params",
			input:    "https://example.com/a?b=2&a=1",
			expected: "https://example.com/a?a=1&b=2",
		},
		{
			name:     "strips trailing slash",
			input:    "https://example.com/news/",
			expected: "https://example.com/news",
		},
		{
			name:     "root path stays slash",
			input:    "https://example.com/",
			expected: "https://example.com/",
		},
		{
			name:     "preserves fragment",
			input:    "https://example.com/page#snapshot-abc123def456",
			expected: "https://example.com/page#snapshot-abc123def456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalizeURL(tt.input))
		})
	}
}

func TestCanonicalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"HTTPS://Example.COM/News/?utm_source=wx&b=2&a=1",
		"https://example.com/",
		"https://example.com/a/b/c?x=1",
	}
	for _, u := range urls {
		once := CanonicalizeURL(u)
		assert.Equal(t, once, CanonicalizeURL(once), "canonicalization must be idempotent for %s", u)
	}
}

func TestURLHashEquivalentForms(t *testing.T) {
	a := URLHash("https://Example.com/news/?utm_source=weibo")
	b := URLHash("https://example.com/news")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestContentHash(t *testing.T) {
	a := ContentHash("  hello   world \n\t")
	b := ContentHash("hello world")
	assert.Equal(t, a, b)

	c := ContentHash("hello world!")
	assert.NotEqual(t, a, c)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a/b", ResolveURL("https://example.com/a/", "b"))
	assert.Equal(t, "https://example.com/x", ResolveURL("https://example.com/a/b", "/x"))
	assert.Equal(t, "https://other.com/p", ResolveURL("https://example.com/", "https://other.com/p"))
}
