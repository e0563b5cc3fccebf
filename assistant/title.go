package assistant

import (
	"strings"

	"github.com/alimasry/lumina/i18n"
)

const maxTitleLen = 30

var titleMarkup = strings.NewReplacer("#", "", "*", "")

// DraftTitle derives a document title from the first line of a draft:
// markdown heading and emphasis marks are dropped and the result is cut to
// 30 characters. A draft without a usable first line gets the localized
// default title.
func DraftTitle(draft string, lang i18n.Language) string {
	first, _, _ := strings.Cut(draft, "\n")
	title := strings.TrimSpace(titleMarkup.Replace(first))
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	if title == "" {
		return i18n.Lookup(lang, i18n.KeyDraftTitle)
	}
	return title
}
