package ot

import "testing"

func TestLengths(t *testing.T) {
	tests := []struct {
		name       string
		op         Operation
		base, targ int
	}{
		{"retain only", Operation{[]Component{{Retain: 5}}}, 5, 5},
		{"insert only", Operation{[]Component{{Insert: "hi"}}}, 0, 2},
		{"delete only", Operation{[]Component{{Delete: 3}}}, 3, 0},
		{"mixed", Operation{[]Component{{Retain: 2}, {Insert: "x"}, {Delete: 1}, {Retain: 3}}}, 6, 6},
		{"multi-byte insert counts code points", Operation{[]Component{{Insert: "мир"}}}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.BaseLen(); got != tt.base {
				t.Errorf("BaseLen() = %d, want %d", got, tt.base)
			}
			if got := tt.op.TargetLen(); got != tt.targ {
				t.Errorf("TargetLen() = %d, want %d", got, tt.targ)
			}
		})
	}
}

func TestIsNoop(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want bool
	}{
		{"empty", Operation{}, true},
		{"retain only", Operation{[]Component{{Retain: 5}}}, true},
		{"has insert", Operation{[]Component{{Retain: 2}, {Insert: "x"}}}, false},
		{"has delete", Operation{[]Component{{Delete: 1}}}, false},
		{"replace with nothing", NewReplace(2, 0, "", 5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.IsNoop(); got != tt.want {
				t.Errorf("IsNoop() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		op      Operation
		want    string
		wantErr bool
	}{
		{"insert at start", "hello", NewInsert(0, "X", 5), "Xhello", false},
		{"insert at end", "hello", NewInsert(5, "!", 5), "hello!", false},
		{"insert in middle", "hello", NewInsert(2, "XY", 5), "heXYllo", false},
		{"delete at start", "hello", NewDelete(0, 2, 5), "llo", false},
		{"delete in middle", "hello", NewDelete(1, 3, 5), "ho", false},
		{"replace", "The cat sat on the mat.", NewReplace(8, 6, "rested upon", 23), "The cat rested upon the mat.", false},
		{"replace whole document", "old", NewReplace(0, 3, "new text", 3), "new text", false},
		{"cyrillic delete", "привет мир", NewDelete(6, 4, 10), "привет", false},
		{"cyrillic replace", "кот сидел", NewReplace(4, 5, "спал", 9), "кот спал", false},
		{"length mismatch", "hi", NewInsert(0, "x", 5), "", true},
		{"byte length is not code point length", "мир", NewInsert(0, "x", 6), "", true},
		{"empty doc insert", "", Operation{[]Component{{Insert: "hi"}}}, "hi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.doc, tt.op)
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewReplace(t *testing.T) {
	op := NewReplace(2, 3, "abcd", 10)
	if op.BaseLen() != 10 {
		t.Errorf("BaseLen() = %d, want 10", op.BaseLen())
	}
	if op.TargetLen() != 11 {
		t.Errorf("TargetLen() = %d, want 11", op.TargetLen())
	}
	if len(op.Ops) != 4 || !op.Ops[1].IsDelete() || !op.Ops[2].IsInsert() {
		t.Errorf("expected retain, delete, insert, retain; got %+v", op.Ops)
	}
}

func TestSlice(t *testing.T) {
	got, err := Slice("привет мир", 7, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != "мир" {
		t.Errorf("Slice() = %q, want %q", got, "мир")
	}
	if _, err := Slice("abc", 2, 5); err == nil {
		t.Error("expected error for out-of-range slice")
	}
	if _, err := Slice("abc", 2, 1); err == nil {
		t.Error("expected error for inverted range")
	}
}
