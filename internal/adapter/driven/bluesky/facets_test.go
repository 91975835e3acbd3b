package bluesky

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFacets_NoURLs(t *testing.T) {
	facets, first := BuildFacets("just some words, nothing clickable")
	assert.Nil(t, facets)
	assert.Empty(t, first)
}

func TestBuildFacets_SingleURL(t *testing.T) {
	facets, first := BuildFacets("read this: https://example.com/post now")
	require.Len(t, facets, 1)
	assert.Equal(t, "https://example.com/post", first)

	f := facets[0]
	assert.Equal(t, 11, f.Index.ByteStart)
	assert.Equal(t, 11+len("https://example.com/post"), f.Index.ByteEnd)
	require.Len(t, f.Features, 1)
	assert.Equal(t, "app.bsky.richtext.facet#link", f.Features[0].Type)
	assert.Equal(t, "https://example.com/post", f.Features[0].URI)
}

func TestBuildFacets_OffsetsAreUTF16(t *testing.T) {
	// "héllo 🚀 " is 6 runes plus a space before the URL but 9 UTF-16
	// code units: the rocket needs a surrogate pair.
	text := "héllo 🚀 https://example.com"
	facets, _ := BuildFacets(text)
	require.Len(t, facets, 1)

	assert.Equal(t, 9, facets[0].Index.ByteStart)
	assert.Equal(t, 9+len("https://example.com"), facets[0].Index.ByteEnd)
}

func TestBuildFacets_MultipleURLs(t *testing.T) {
	facets, first := BuildFacets("a http://one.example b https://two.example/x c")
	require.Len(t, facets, 2)
	assert.Equal(t, "http://one.example", first)
	assert.Equal(t, "http://one.example", facets[0].Features[0].URI)
	assert.Equal(t, "https://two.example/x", facets[1].Features[0].URI)
	assert.Less(t, facets[0].Index.ByteStart, facets[1].Index.ByteStart)
}

func TestBuildFacets_CaseInsensitiveScheme(t *testing.T) {
	facets, first := BuildFacets("HTTPS://Example.COM/page")
	require.Len(t, facets, 1)
	assert.Equal(t, "HTTPS://Example.COM/page", first)
	assert.Equal(t, 0, facets[0].Index.ByteStart)
}

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 0, utf16Len(""))
	assert.Equal(t, 5, utf16Len("hello"))
	assert.Equal(t, 1, utf16Len("é"))
	assert.Equal(t, 2, utf16Len("🚀"))
}
