package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"lowercases scheme and host",
			"HTTPS://Example.COM/Jobs/1",
			"https://example.com/Jobs/1",
		},
		{
			"drops fragment",
			"https://example.com/jobs/1#apply",
			"https://example.com/jobs/1",
		},
		{
			"drops tracking params",
			"https://example.com/jobs/1?utm_source=feed&utm_medium=rss&id=7",
			"https://example.com/jobs/1?id=7",
		},
		{
			"drops click ids",
			"https://example.com/j?gclid=abc&fbclid=def&x=1",
			"https://example.com/j?x=1",
		},
		{
			"sorts query values deterministically",
			"https://example.com/j?tag=b&tag=a",
			"https://example.com/j?tag=a&tag=b",
		},
		{
			"empty stays empty",
			"  ",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalizeURL(tt.in))
		})
	}
}

func TestCanonicalizeURLStable(t *testing.T) {
	// Same posting shared through two different trackers maps to one url.
	a := CanonicalizeURL("https://example.com/jobs/1?utm_source=a")
	b := CanonicalizeURL("https://EXAMPLE.com/jobs/1?utm_source=b#top")
	assert.Equal(t, a, b)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.com/jobs/7",
		ResolveURL("https://example.com/listing", "/jobs/7"))
	assert.Equal(t, "https://example.com/listing/7",
		ResolveURL("https://example.com/listing/", "7"))
	assert.Equal(t, "https://other.test/x",
		ResolveURL("https://example.com/", "https://other.test/x"))
	assert.Equal(t, "", ResolveURL("https://example.com/", " "))
}
