package bluesky

import (
	"regexp"
	"unicode/utf16"
)

// PostCharLimit is the maximum length of a Bluesky post in characters.
const PostCharLimit = 300

// urlPattern matches http(s) URLs loosely: scheme plus any run of
// unreserved, sub-delim, and percent-encoding characters.
var urlPattern = regexp.MustCompile(`(?i)https?://[\w\-._~%:/?#@!$&'()*+,;=]+`)

// Facet is an app.bsky.richtext.facet annotation over a byte range of the
// post text. Bluesky counts facet offsets in UTF-16 code units despite the
// field names.
type Facet struct {
	Index    FacetIndex     `json:"index"`
	Features []FacetFeature `json:"features"`
}

// FacetIndex is the annotated span, in UTF-16 code units.
type FacetIndex struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// FacetFeature is the annotation payload; only link features are emitted.
type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri"`
}

// BuildFacets scans text for URLs and returns link facets with UTF-16
// offsets, plus the first URL found. Returns nil, "" when the text has no
// URLs.
func BuildFacets(text string) ([]Facet, string) {
	matches := urlPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil, ""
	}

	var facets []Facet
	var firstURL string
	for _, m := range matches {
		uri := text[m[0]:m[1]]
		if firstURL == "" {
			firstURL = uri
		}

		start := utf16Len(text[:m[0]])
		end := start + utf16Len(uri)

		facets = append(facets, Facet{
			Index: FacetIndex{ByteStart: start, ByteEnd: end},
			Features: []FacetFeature{{
				Type: "app.bsky.richtext.facet#link",
				URI:  uri,
			}},
		})
	}

	return facets, firstURL
}

// utf16Len counts the UTF-16 code units needed to encode s.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
