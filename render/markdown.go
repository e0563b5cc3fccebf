// Package render turns draft markdown into HTML safe to show in a browser.
package render

import (
	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

const extensions = parser.CommonExtensions | parser.AutoHeadingIDs | parser.Footnotes | parser.HardLineBreak

// policy is safe for concurrent use once built.
var policy = bluemonday.UGCPolicy()

// Markdown renders content to sanitized HTML. Raw HTML in the draft is
// kept only where the UGC policy allows it.
func Markdown(content string) string {
	md := markdown.NormalizeNewlines([]byte(content))
	doc := parser.NewWithExtensions(extensions).Parse(md)
	renderer := md_html.NewRenderer(md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
	})
	return string(policy.SanitizeBytes(markdown.Render(doc, renderer)))
}
