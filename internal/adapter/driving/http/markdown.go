package httphandler

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	bioMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	bioSanitizer = bluemonday.UGCPolicy()
)

// renderBio converts an archive owner's Markdown bio to sanitized HTML.
// Markdown is user supplied, so the rendered output always passes through
// the sanitizer before it reaches a response.
func renderBio(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := bioMarkdown.Convert([]byte(src), &buf); err != nil {
		return bioSanitizer.Sanitize(src)
	}

	return bioSanitizer.Sanitize(buf.String())
}
