// Package suggest reconciles model-proposed edits with the live text of a
// document. A suggestion names the text it wants to replace rather than a
// position, so it is re-located in whatever the content is when it is used.
package suggest

import (
	"strings"

	"github.com/alimasry/lumina/ot"
)

// Suggestion is a proposed replacement of OriginalText with SuggestedText.
// StartIndex and EndIndex are code-point offsets of the first occurrence of
// OriginalText in the content the suggestion was generated from; they are
// not updated as the document changes.
type Suggestion struct {
	ID            string `json:"id"`
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Reason        string `json:"reason"`
	StartIndex    int    `json:"startIndex"`
	EndIndex      int    `json:"endIndex"`
}

// Find returns the code-point offset of the first occurrence of text in
// content, or -1.
func Find(content, text string) int {
	if text == "" {
		return -1
	}
	i := strings.Index(content, text)
	if i < 0 {
		return -1
	}
	return ot.Len(content[:i])
}

// Locate fills in the indexes of each candidate against content and drops
// the ones whose original text does not occur in it.
func Locate(content string, candidates []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(candidates))
	for _, s := range candidates {
		start := Find(content, s.OriginalText)
		if start < 0 {
			continue
		}
		s.StartIndex = start
		s.EndIndex = start + ot.Len(s.OriginalText)
		out = append(out, s)
	}
	return out
}
