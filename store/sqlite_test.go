package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alimasry/lumina/ot"
)

func openTestSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	testDocumentStore(t, func(t *testing.T) DocumentStore {
		return openTestSQLite(t, filepath.Join(t.TempDir(), "lumina.db"))
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumina.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	s.Create(ctx, "doc1", "Draft", "ab")
	s.AppendOperation(ctx, "doc1", ot.NewInsert(2, "c", 2), 1)
	s.UpdateContent(ctx, "doc1", "abc", 1)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = openTestSQLite(t, path)
	info, err := s.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Title != "Draft" || info.Content != "abc" || info.Version != 1 {
		t.Errorf("after reopen: %+v", info)
	}
	ops, err := s.GetOperations(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Ops[len(ops[0].Ops)-1].Insert != "c" {
		t.Errorf("ops after reopen: %+v", ops)
	}
}

func TestSQLiteStore_Memory(t *testing.T) {
	s := openTestSQLite(t, ":memory:")
	ctx := context.Background()
	if err := s.Create(ctx, "doc1", "T", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "doc1"); err != nil {
		t.Errorf("in-memory database lost the document: %v", err)
	}
}
