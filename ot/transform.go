package ot

import "fmt"

// Transform takes two concurrent operations a and b (both applied to the same
// document state) and returns aPrime and bPrime such that:
//
//	Apply(Apply(doc, a), bPrime) == Apply(Apply(doc, b), aPrime)
func Transform(a, b Operation) (aPrime, bPrime Operation, err error) {
	if a.BaseLen() != b.BaseLen() {
		return Operation{}, Operation{}, fmt.Errorf(
			"base lengths differ: a=%d, b=%d", a.BaseLen(), b.BaseLen())
	}

	var ap, bp []Component
	ia := newCursor(a.Ops)
	ib := newCursor(b.Ops)

	for ia.more() || ib.more() {
		// Inserts go first; on a tie a wins.
		if ia.kind() == kindInsert {
			s := ia.takeInsert()
			ap = append(ap, Component{Insert: s})
			bp = append(bp, Component{Retain: Len(s)})
			continue
		}
		if ib.kind() == kindInsert {
			s := ib.takeInsert()
			bp = append(bp, Component{Insert: s})
			ap = append(ap, Component{Retain: Len(s)})
			continue
		}

		if !ia.more() || !ib.more() {
			return Operation{}, Operation{}, fmt.Errorf("transform ran out of operations")
		}

		n := min(ia.remaining(), ib.remaining())
		ka, kb := ia.kind(), ib.kind()
		ia.advance(n)
		ib.advance(n)

		switch {
		case ka == kindRetain && kb == kindRetain:
			ap = append(ap, Component{Retain: n})
			bp = append(bp, Component{Retain: n})
		case ka == kindDelete && kb == kindRetain:
			ap = append(ap, Component{Delete: n})
		case ka == kindRetain && kb == kindDelete:
			bp = append(bp, Component{Delete: n})
		}
		// Both deleting the same span leaves nothing to carry over.
	}

	return Operation{Ops: compact(ap)}, Operation{Ops: compact(bp)}, nil
}

// TransformIndex maps a position in the document before op to the matching
// position after it. When text is inserted exactly at index, after decides
// whether the index ends up behind the inserted text (true) or in front of it.
// An index inside a deleted span collapses to where the span was.
func TransformIndex(op Operation, index int, after bool) int {
	pos, out := 0, 0
	for _, c := range op.Ops {
		switch {
		case c.IsRetain():
			if index < pos+c.Retain {
				return out + index - pos
			}
			pos += c.Retain
			out += c.Retain
		case c.IsInsert():
			if pos < index || (pos == index && after) {
				out += Len(c.Insert)
			}
		case c.IsDelete():
			if index >= pos && index < pos+c.Delete {
				index = pos + c.Delete
			}
			pos += c.Delete
		}
	}
	return out + index - pos
}

// TransformRange maps the span [start, end) through op. Text inserted at
// either boundary stays outside the span.
func TransformRange(op Operation, start, end int) (int, int) {
	s := TransformIndex(op, start, true)
	e := TransformIndex(op, end, false)
	if e < s {
		e = s
	}
	return s, e
}

// compact merges adjacent components of the same type.
func compact(ops []Component) []Component {
	if len(ops) == 0 {
		return ops
	}
	var result []Component
	for _, c := range ops {
		if len(result) == 0 {
			result = append(result, c)
			continue
		}
		last := &result[len(result)-1]
		if c.IsRetain() && last.IsRetain() {
			last.Retain += c.Retain
		} else if c.IsDelete() && last.IsDelete() {
			last.Delete += c.Delete
		} else if c.IsInsert() && last.IsInsert() {
			last.Insert += c.Insert
		} else {
			result = append(result, c)
		}
	}
	return result
}

type kind int

const (
	kindNone kind = iota
	kindRetain
	kindInsert
	kindDelete
)

// cursor walks through operation components, allowing partial consumption
// of retains and deletes. Inserts are always taken whole.
type cursor struct {
	ops    []Component
	index  int
	offset int
}

func newCursor(ops []Component) *cursor {
	return &cursor{ops: ops}
}

func (c *cursor) more() bool {
	return c.index < len(c.ops)
}

func (c *cursor) kind() kind {
	if !c.more() {
		return kindNone
	}
	comp := c.ops[c.index]
	switch {
	case comp.IsInsert():
		return kindInsert
	case comp.IsDelete():
		return kindDelete
	case comp.IsRetain():
		return kindRetain
	}
	return kindNone
}

func (c *cursor) remaining() int {
	if !c.more() {
		return 0
	}
	comp := c.ops[c.index]
	switch {
	case comp.IsRetain():
		return comp.Retain - c.offset
	case comp.IsDelete():
		return comp.Delete - c.offset
	}
	return 0
}

func (c *cursor) takeInsert() string {
	s := c.ops[c.index].Insert
	c.index++
	c.offset = 0
	return s
}

// advance consumes n units of the current retain or delete.
func (c *cursor) advance(n int) {
	if n >= c.remaining() {
		c.index++
		c.offset = 0
		return
	}
	c.offset += n
}
