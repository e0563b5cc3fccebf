package ot

import "fmt"

// Document is the authoritative text of an open document together with
// every operation applied to it. Version equals len(History) for documents
// created here; documents restored from a store may carry a shorter history.
type Document struct {
	Content string
	Version int
	History []Operation
}

// NewDocument creates a new document with the given initial content.
func NewDocument(content string) *Document {
	return &Document{Content: content}
}

// Len returns the content length in code points.
func (d *Document) Len() int {
	return Len(d.Content)
}

// Apply applies an operation to the document, appending it to history.
func (d *Document) Apply(op Operation) error {
	if op.IsNoop() {
		return nil
	}
	result, err := Apply(d.Content, op)
	if err != nil {
		return fmt.Errorf("apply to document v%d: %w", d.Version, err)
	}
	d.Content = result
	d.Version++
	d.History = append(d.History, op)
	return nil
}

// Rebase transforms op, built against revision, through everything applied
// since and applies the result. It returns the operation actually applied.
func (d *Document) Rebase(engine Engine, op Operation, revision int) (Operation, error) {
	transformed, err := engine.TransformIncoming(op, revision, d.History)
	if err != nil {
		return Operation{}, err
	}
	if err := d.Apply(transformed); err != nil {
		return Operation{}, err
	}
	return transformed, nil
}

// Replace swaps the whole content for text as a single operation.
func (d *Document) Replace(text string) (Operation, error) {
	op := NewReplace(0, d.Len(), text, d.Len())
	if err := d.Apply(op); err != nil {
		return Operation{}, err
	}
	return op, nil
}
