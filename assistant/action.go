package assistant

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ActionKind names an inline action on selected text.
type ActionKind string

const (
	Rewrite     ActionKind = "REWRITE"
	Shorten     ActionKind = "SHORTEN"
	Expand      ActionKind = "EXPAND"
	ToneChange  ActionKind = "TONE_CHANGE"
	FixGrammar  ActionKind = "FIX_GRAMMAR"
	Custom      ActionKind = "CUSTOM"
	TranslateEN ActionKind = "TRANSLATE_EN"
	TranslateRU ActionKind = "TRANSLATE_RU"
)

// Actions lists every kind in menu order.
var Actions = []ActionKind{Rewrite, Shorten, Expand, ToneChange, FixGrammar, Custom, TranslateEN, TranslateRU}

const (
	defaultTone   = "more professional"
	defaultCustom = "Improve the following text."
)

var instructions = map[ActionKind]string{
	Rewrite:     "Rewrite the following text to be more compelling and clear while keeping the original meaning.",
	Shorten:     "Make the following text more concise and punchy without losing key information.",
	Expand:      "Expand upon the following text, adding more depth, vivid details, or explanation.",
	FixGrammar:  "Fix any grammar, spelling, or punctuation errors in the following text.",
	TranslateEN: "Translate the following text into natural, high-quality English. Maintain the original tone and intent.",
	TranslateRU: "Translate the following text into natural, high-quality Russian. Maintain the original tone and intent.",
}

// ParseAction accepts a kind in any letter case.
func ParseAction(s string) (ActionKind, error) {
	k := ActionKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, a := range Actions {
		if a == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Instruction returns the fixed instruction for the kind. custom fills in
// the tone for ToneChange and is the whole instruction for Custom.
func (k ActionKind) Instruction(custom string) string {
	custom = strings.TrimSpace(custom)
	switch k {
	case ToneChange:
		if custom == "" {
			custom = defaultTone
		}
		return fmt.Sprintf("Change the tone of the following text to be %s.", custom)
	case Custom:
		if custom == "" {
			return defaultCustom
		}
		return custom
	}
	return instructions[k]
}

// ActionRequest is one inline action: the selected text, the whole
// document it sits in, and an optional free-form instruction.
type ActionRequest struct {
	Kind        ActionKind
	Selected    string
	Context     string
	Instruction string
}

func (r ActionRequest) Validate() error {
	kinds := make([]any, len(Actions))
	for i, a := range Actions {
		kinds[i] = a
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&r.Selected, validation.Required),
	)
}
