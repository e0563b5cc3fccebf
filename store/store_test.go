package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alimasry/lumina/ot"
)

// testDocumentStore runs the behavior every DocumentStore shares. open must
// return an empty store.
func testDocumentStore(t *testing.T, open func(t *testing.T) DocumentStore) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Create(ctx, "doc1", "Notes", "hello"); err != nil {
			t.Fatal(err)
		}
		info, err := s.Get(ctx, "doc1")
		if err != nil {
			t.Fatal(err)
		}
		if info.ID != "doc1" || info.Title != "Notes" || info.Content != "hello" || info.Version != 0 {
			t.Errorf("unexpected info: %+v", info)
		}
		if info.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Create(ctx, "doc1", "A", ""); err != nil {
			t.Fatal(err)
		}
		if err := s.Create(ctx, "doc1", "B", ""); !errors.Is(err, ErrExists) {
			t.Errorf("duplicate create: err = %v, want ErrExists", err)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListCreationOrder", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, id := range []string{"c", "a", "b"} {
			if err := s.Create(ctx, id, id, ""); err != nil {
				t.Fatal(err)
			}
		}
		docs, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if diff := cmp.Diff([]string{"c", "a", "b"}, ids); diff != "" {
			t.Errorf("List order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Rename", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.Create(ctx, "doc1", "Old", "text")
		if err := s.Rename(ctx, "doc1", "New"); err != nil {
			t.Fatal(err)
		}
		info, err := s.Get(ctx, "doc1")
		if err != nil {
			t.Fatal(err)
		}
		if info.Title != "New" || info.Content != "text" {
			t.Errorf("after rename: %+v", info)
		}
		if err := s.Rename(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rename missing: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateContent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.Create(ctx, "doc1", "T", "hello")
		if err := s.UpdateContent(ctx, "doc1", "hello world", 1); err != nil {
			t.Fatal(err)
		}
		info, _ := s.Get(ctx, "doc1")
		if info.Content != "hello world" || info.Version != 1 {
			t.Errorf("unexpected: content=%q version=%d", info.Content, info.Version)
		}
	})

	t.Run("OperationsReplay", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.Create(ctx, "doc1", "T", "hello")
		edits := []ot.Operation{
			ot.NewInsert(5, " мир", 5),
			ot.NewReplace(0, 5, "привет", 9),
		}
		for i, op := range edits {
			if err := s.AppendOperation(ctx, "doc1", op, i+1); err != nil {
				t.Fatal(err)
			}
		}

		ops, err := s.GetOperations(ctx, "doc1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d ops, want 2", len(ops))
		}
		content := "hello"
		for _, op := range ops {
			if content, err = ot.Apply(content, op); err != nil {
				t.Fatal(err)
			}
		}
		if content != "привет мир" {
			t.Errorf("replayed content = %q", content)
		}

		ops, err = s.GetOperations(ctx, "doc1", 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 1 {
			t.Fatalf("from version 1: got %d ops, want 1", len(ops))
		}

		info, _ := s.Get(ctx, "doc1")
		if info.Version != 2 {
			t.Errorf("version = %d, want 2", info.Version)
		}
	})

	t.Run("OperationsNotFound", func(t *testing.T) {
		s := open(t)
		if _, err := s.GetOperations(context.Background(), "nope", 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.Create(ctx, "keep", "K", "")
		s.Create(ctx, "drop", "D", "abc")
		s.AppendOperation(ctx, "drop", ot.NewInsert(3, "d", 3), 1)

		if err := s.Delete(ctx, "drop"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, "drop"); !errors.Is(err, ErrNotFound) {
			t.Errorf("get after delete: err = %v", err)
		}
		if _, err := s.GetOperations(ctx, "drop", 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("operations after delete: err = %v", err)
		}
		docs, _ := s.List(ctx)
		if len(docs) != 1 || docs[0].ID != "keep" {
			t.Errorf("list after delete: %+v", docs)
		}
		if err := s.Delete(ctx, "drop"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete: err = %v, want ErrNotFound", err)
		}
	})
}
