package ot

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Component is a single step in an edit operation.
// Exactly one field should be set. Counts are in code points, not bytes,
// so offsets reported by an editor map onto them directly.
type Component struct {
	Retain int    `json:"retain,omitempty"` // keep N code points unchanged
	Insert string `json:"insert,omitempty"` // insert text at cursor
	Delete int    `json:"delete,omitempty"` // remove N code points at cursor
}

func (c Component) IsRetain() bool { return c.Retain > 0 && c.Insert == "" && c.Delete == 0 }
func (c Component) IsInsert() bool { return c.Insert != "" }
func (c Component) IsDelete() bool { return c.Delete > 0 && c.Insert == "" }

// Operation is a sequence of components that transforms a document.
// Components are applied left-to-right, advancing a cursor through the input.
type Operation struct {
	Ops []Component `json:"ops"`
}

// Len returns the length of s in code points.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// lengths reports how many input code points c consumes and how many
// output code points it produces.
func (c Component) lengths() (in, out int) {
	switch {
	case c.IsInsert():
		return 0, Len(c.Insert)
	case c.IsDelete():
		return c.Delete, 0
	case c.IsRetain():
		return c.Retain, c.Retain
	}
	return 0, 0
}

// BaseLen is the length of the document the operation applies to.
func (op Operation) BaseLen() int {
	total := 0
	for _, c := range op.Ops {
		in, _ := c.lengths()
		total += in
	}
	return total
}

// TargetLen is the length of the document the operation produces.
func (op Operation) TargetLen() int {
	total := 0
	for _, c := range op.Ops {
		_, out := c.lengths()
		total += out
	}
	return total
}

// IsNoop reports whether the operation leaves every document unchanged.
func (op Operation) IsNoop() bool {
	return !slices.ContainsFunc(op.Ops, func(c Component) bool {
		return c.IsInsert() || c.IsDelete()
	})
}

// Apply runs op over doc and returns the result.
func Apply(doc string, op Operation) (string, error) {
	src := []rune(doc)
	if want := op.BaseLen(); len(src) != want {
		return "", fmt.Errorf("operation expects %d code points, document has %d", want, len(src))
	}
	dst := make([]rune, 0, op.TargetLen())
	for _, c := range op.Ops {
		if c.IsInsert() {
			dst = append(dst, []rune(c.Insert)...)
			continue
		}
		in, out := c.lengths()
		if out > 0 {
			dst = append(dst, src[:in]...)
		}
		src = src[in:]
	}
	return string(dst), nil
}

// Slice returns the code points of s in [start, end).
func Slice(s string, start, end int) (string, error) {
	runes := []rune(s)
	if start < 0 || end < start || end > len(runes) {
		return "", fmt.Errorf("range [%d, %d) out of bounds for length %d", start, end, len(runes))
	}
	return string(runes[start:end]), nil
}

// NewInsert creates an operation that inserts text at pos in a document of docLen.
func NewInsert(pos int, text string, docLen int) Operation {
	return NewReplace(pos, 0, text, docLen)
}

// NewDelete creates an operation that deletes count code points at pos in a document of docLen.
func NewDelete(pos, count, docLen int) Operation {
	return NewReplace(pos, count, "", docLen)
}

// NewReplace creates an operation that replaces count code points at pos with
// text in a document of docLen. The delete precedes the insert so that a
// concurrent insert at the same position stays outside the replaced span.
func NewReplace(pos, count int, text string, docLen int) Operation {
	var ops []Component
	if pos > 0 {
		ops = append(ops, Component{Retain: pos})
	}
	if count > 0 {
		ops = append(ops, Component{Delete: count})
	}
	if text != "" {
		ops = append(ops, Component{Insert: text})
	}
	if remaining := docLen - pos - count; remaining > 0 {
		ops = append(ops, Component{Retain: remaining})
	}
	return Operation{Ops: ops}
}
