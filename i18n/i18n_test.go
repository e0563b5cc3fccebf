package i18n

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"", English},
		{"en", English},
		{"ru", Russian},
		{"ru-RU", Russian},
		{"ru-RU,ru;q=0.9,en;q=0.8", Russian},
		{"de-DE,ru;q=0.5", Russian},
		{"fr", English},
		{"not a tag!!", English},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	if got := Lookup(Russian, KeyNewDocument); got != "Новый документ" {
		t.Errorf("ru new document = %q", got)
	}
	// Not translated: falls back to English.
	if got := Lookup(Russian, KeyDraftTitle); got != "Lumina Draft" {
		t.Errorf("ru draft title = %q, want English fallback", got)
	}
	if got := Lookup(English, "no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key = %q", got)
	}
	if got := Lookup(Language("xx"), KeyErrorTitle); got != "Error Draft" {
		t.Errorf("unsupported language = %q", got)
	}
}

func TestStrings(t *testing.T) {
	en := Strings(English)
	ru := Strings(Russian)
	if len(ru) != len(en) {
		t.Errorf("ru table has %d keys, en has %d", len(ru), len(en))
	}
	if ru["menu.rewrite"] != "Переписать" {
		t.Errorf("ru menu.rewrite = %q", ru["menu.rewrite"])
	}
	ru["menu.rewrite"] = "changed"
	if Lookup(Russian, "menu.rewrite") == "changed" {
		t.Error("Strings returned the shared catalog")
	}
}

func TestLanguage(t *testing.T) {
	if !Russian.Valid() || Language("de").Valid() {
		t.Error("Valid() mismatch")
	}
	if Russian.Name() != "Russian" || English.Name() != "English" {
		t.Error("Name() mismatch")
	}
}
