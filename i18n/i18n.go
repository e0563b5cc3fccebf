// Package i18n holds the display strings of the writing assistant and maps
// client language preferences onto the supported languages.
package i18n

import (
	"golang.org/x/text/language"
)

// Language is a supported display and writing language.
type Language string

const (
	English Language = "en"
	Russian Language = "ru"
)

// Supported lists the languages in matcher preference order.
var Supported = []Language{English, Russian}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Russian,
})

// Parse maps a BCP 47 tag or an Accept-Language header value to the closest
// supported language. Anything unrecognized becomes English.
func Parse(s string) Language {
	if s == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return English
	}
	return Supported[index]
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, s := range Supported {
		if l == s {
			return true
		}
	}
	return false
}

// Name returns the English name of the language, as used in model prompts.
func (l Language) Name() string {
	if l == Russian {
		return "Russian"
	}
	return "English"
}

// Lookup returns the display string for key. Missing translations fall back
// to English, and unknown keys to the key itself.
func Lookup(lang Language, key string) string {
	if s, ok := catalog[lang][key]; ok {
		return s
	}
	if s, ok := catalog[English][key]; ok {
		return s
	}
	return key
}

// Strings returns the complete table for lang with English filling any gaps.
func Strings(lang Language) map[string]string {
	out := make(map[string]string, len(catalog[English]))
	for k, v := range catalog[English] {
		out[k] = v
	}
	for k, v := range catalog[lang] {
		out[k] = v
	}
	return out
}
