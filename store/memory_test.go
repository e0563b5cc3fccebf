package store

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	testDocumentStore(t, func(*testing.T) DocumentStore { return NewMemoryStore() })
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "doc1", "T", "hello")

	info, _ := s.Get(ctx, "doc1")
	info.Content = "changed"

	again, _ := s.Get(ctx, "doc1")
	if again.Content != "hello" {
		t.Errorf("store content mutated through Get: %q", again.Content)
	}
}

func TestMemoryStore_InvalidVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "doc1", "T", "")

	if _, err := s.GetOperations(ctx, "doc1", 1); err == nil {
		t.Error("expected error for version past the history")
	}
	if _, err := s.GetOperations(ctx, "doc1", -1); err == nil {
		t.Error("expected error for negative version")
	}
}
