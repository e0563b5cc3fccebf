package workspace

import (
	"strings"
	"unicode/utf8"
)

// Stats are the counts shown under the editor.
type Stats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
}

// Count counts whitespace-separated words and code points.
func Count(content string) Stats {
	return Stats{
		Words:      len(strings.Fields(content)),
		Characters: utf8.RuneCountInString(content),
	}
}
