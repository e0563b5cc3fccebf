package suggest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alimasry/lumina/ot"
)

// ErrUnknown is returned for a suggestion id that is not pending.
var ErrUnknown = errors.New("suggestion not pending")

// Set is the ordered collection of pending suggestions for one document.
// It is not safe for concurrent use; the owning session serializes access.
type Set struct {
	items []Suggestion
}

// Replace discards the current contents and holds batch in arrival order.
func (s *Set) Replace(batch []Suggestion) {
	s.items = append(s.items[:0:0], batch...)
}

// Get returns the pending suggestion with the given id.
func (s *Set) Get(id string) (Suggestion, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Suggestion{}, false
}

// Remove drops the suggestion with the given id and reports whether it was pending.
func (s *Set) Remove(id string) bool {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the pending suggestions.
func (s *Set) List() []Suggestion {
	return append([]Suggestion{}, s.items...)
}

func (s *Set) Len() int { return len(s.items) }
func (s *Set) Empty() bool { return len(s.items) == 0 }

// Result describes what applying a suggestion did.
type Result struct {
	Suggestion Suggestion
	// Applied is false when the original text no longer occurs.
	Applied bool
	// Start is the code-point offset of the replaced text when Applied.
	Start int
	// Content is the document text after applying.
	Content string
}

// Op returns the edit that turns the content the result was computed from
// into Content. It is a no-op when nothing was applied.
func (r Result) Op(baseLen int) ot.Operation {
	if !r.Applied {
		return ot.Operation{Ops: []ot.Component{{Retain: baseLen}}}
	}
	return ot.NewReplace(r.Start, ot.Len(r.Suggestion.OriginalText), r.Suggestion.SuggestedText, baseLen)
}

// Reconciler applies and dismisses the pending suggestions of a document.
type Reconciler struct {
	Pending Set
}

// Apply replaces the first occurrence of the suggestion's original text in
// content. The suggestion leaves the pending set whether or not its text
// could still be found.
func (r *Reconciler) Apply(content, id string) (Result, error) {
	s, ok := r.Pending.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("apply %q: %w", id, ErrUnknown)
	}
	r.Pending.Remove(id)

	start := Find(content, s.OriginalText)
	if start < 0 {
		return Result{Suggestion: s, Content: content}, nil
	}
	return Result{
		Suggestion: s,
		Applied:    true,
		Start:      start,
		Content:    strings.Replace(content, s.OriginalText, s.SuggestedText, 1),
	}, nil
}

// Dismiss removes a pending suggestion without touching any content.
func (r *Reconciler) Dismiss(id string) error {
	if !r.Pending.Remove(id) {
		return fmt.Errorf("dismiss %q: %w", id, ErrUnknown)
	}
	return nil
}
