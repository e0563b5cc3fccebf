package workspace

import "testing"

func TestCount(t *testing.T) {
	tests := []struct {
		content string
		want    Stats
	}{
		{"", Stats{}},
		{"   \n\t ", Stats{Characters: 6}},
		{"# Spring Plan\n\nPlant the tomatoes.", Stats{Words: 6, Characters: 34}},
		{"Привет,  мир", Stats{Words: 2, Characters: 12}},
	}
	for _, tt := range tests {
		if got := Count(tt.content); got != tt.want {
			t.Errorf("Count(%q) = %+v, want %+v", tt.content, got, tt.want)
		}
	}
}
