package suggest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alimasry/lumina/ot"
)

func pending(items ...Suggestion) *Reconciler {
	r := &Reconciler{}
	r.Pending.Replace(items)
	return r
}

func TestReconciler_ApplyFound(t *testing.T) {
	content := "The cat sat on the mat."
	r := pending(Suggestion{ID: "s1", OriginalText: "sat on", SuggestedText: "rested upon"})

	res, err := r.Apply(content, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied {
		t.Fatal("expected suggestion to apply")
	}
	if want := "The cat rested upon the mat."; res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if res.Start != 8 {
		t.Errorf("start = %d, want 8", res.Start)
	}
	if !r.Pending.Empty() {
		t.Errorf("suggestion still pending: %+v", r.Pending.List())
	}

	// The edit form of the result produces the same text.
	got, err := ot.Apply(content, res.Op(ot.Len(content)))
	if err != nil {
		t.Fatal(err)
	}
	if got != res.Content {
		t.Errorf("op result = %q, want %q", got, res.Content)
	}
}

func TestReconciler_ApplyStale(t *testing.T) {
	content := "The cat stood on the mat."
	r := pending(Suggestion{ID: "s1", OriginalText: "sat on", SuggestedText: "rested upon"})

	res, err := r.Apply(content, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied {
		t.Error("stale suggestion reported as applied")
	}
	if res.Content != content {
		t.Errorf("content changed: %q", res.Content)
	}
	if !res.Op(ot.Len(content)).IsNoop() {
		t.Error("stale result should produce a no-op edit")
	}
	if r.Pending.Len() != 0 {
		t.Error("stale suggestion was not removed")
	}
}

func TestReconciler_ApplyReplacesOnlyFirstOccurrence(t *testing.T) {
	r := pending(Suggestion{ID: "s1", OriginalText: "very", SuggestedText: "truly"})
	res, err := r.Apply("very good, very nice", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "truly good, very nice" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestReconciler_ApplyUnknown(t *testing.T) {
	r := pending(Suggestion{ID: "s1", OriginalText: "a", SuggestedText: "b"})
	if _, err := r.Apply("abc", "nope"); !errors.Is(err, ErrUnknown) {
		t.Errorf("err = %v, want ErrUnknown", err)
	}
	if r.Pending.Len() != 1 {
		t.Error("unknown id removed something")
	}
}

func TestReconciler_Dismiss(t *testing.T) {
	r := pending(
		Suggestion{ID: "s1", OriginalText: "a", SuggestedText: "b"},
		Suggestion{ID: "s2", OriginalText: "c", SuggestedText: "d"},
	)
	if err := r.Dismiss("s1"); err != nil {
		t.Fatal(err)
	}
	want := []Suggestion{{ID: "s2", OriginalText: "c", SuggestedText: "d"}}
	if diff := cmp.Diff(want, r.Pending.List()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
	if err := r.Dismiss("s1"); !errors.Is(err, ErrUnknown) {
		t.Errorf("second dismiss err = %v, want ErrUnknown", err)
	}
}

func TestLocate(t *testing.T) {
	content := "Привет, мир. The cat sat on the mat."
	got := Locate(content, []Suggestion{
		{ID: "a", OriginalText: "мир"},
		{ID: "b", OriginalText: "not there"},
		{ID: "c", OriginalText: "cat"},
		{ID: "d", OriginalText: ""},
	})
	want := []Suggestion{
		{ID: "a", OriginalText: "мир", StartIndex: 8, EndIndex: 11},
		{ID: "c", OriginalText: "cat", StartIndex: 17, EndIndex: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locate mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_ReplaceCopies(t *testing.T) {
	batch := []Suggestion{{ID: "x"}}
	var s Set
	s.Replace(batch)
	batch[0].ID = "changed"
	if _, ok := s.Get("x"); !ok {
		t.Error("Set shares storage with the batch it was given")
	}
}
