package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alimasry/lumina/ot"
)

type docRecord struct {
	info    DocumentInfo
	history []ot.Operation
	seq     uint64 // insertion order, for List
}

// MemoryStore is an in-memory implementation of DocumentStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*docRecord
	seq  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*docRecord)}
}

func missing(id string) error {
	return fmt.Errorf("document %q: %w", id, ErrNotFound)
}

// view runs fn on the record under the read lock.
func (s *MemoryStore) view(id string, fn func(*docRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return missing(id)
	}
	return fn(rec)
}

// modify runs fn on the record under the write lock and stamps UpdatedAt.
func (s *MemoryStore) modify(id string, fn func(*docRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return missing(id)
	}
	fn(rec)
	rec.info.UpdatedAt = time.Now()
	return nil
}

// insert adds rec unless the id is taken. Callers hold the write lock.
func (s *MemoryStore) insert(rec *docRecord) bool {
	if _, taken := s.docs[rec.info.ID]; taken {
		return false
	}
	s.seq++
	rec.seq = s.seq
	s.docs[rec.info.ID] = rec
	return true
}

func (s *MemoryStore) Create(_ context.Context, id, title, content string) error {
	now := time.Now()
	rec := &docRecord{info: DocumentInfo{
		ID:        id,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insert(rec) {
		return fmt.Errorf("document %q: %w", id, ErrExists)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*DocumentInfo, error) {
	var info DocumentInfo
	err := s.view(id, func(rec *docRecord) error {
		info = rec.info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *MemoryStore) List(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*docRecord, 0, len(s.docs))
	for _, rec := range s.docs {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *docRecord) int { return cmp.Compare(a.seq, b.seq) })

	result := make([]DocumentInfo, len(recs))
	for i, rec := range recs {
		result[i] = rec.info
	}
	return result, nil
}

func (s *MemoryStore) Rename(_ context.Context, id, title string) error {
	return s.modify(id, func(rec *docRecord) { rec.info.Title = title })
}

func (s *MemoryStore) UpdateContent(_ context.Context, id, content string, version int) error {
	return s.modify(id, func(rec *docRecord) {
		rec.info.Content = content
		rec.info.Version = version
	})
}

func (s *MemoryStore) AppendOperation(_ context.Context, id string, op ot.Operation, version int) error {
	return s.modify(id, func(rec *docRecord) {
		rec.history = append(rec.history, op)
		rec.info.Version = version
	})
}

func (s *MemoryStore) GetOperations(_ context.Context, id string, fromVersion int) ([]ot.Operation, error) {
	var ops []ot.Operation
	err := s.view(id, func(rec *docRecord) error {
		if fromVersion < 0 || fromVersion > len(rec.history) {
			return fmt.Errorf("invalid version %d", fromVersion)
		}
		ops = slices.Clone(rec.history[fromVersion:])
		if ops == nil {
			ops = []ot.Operation{}
		}
		return nil
	})
	return ops, err
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return missing(id)
	}
	delete(s.docs, id)
	return nil
}

// load inserts a record read from a backing store after everything already
// cached. Records that are already present win.
func (s *MemoryStore) load(info DocumentInfo, history []ot.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(&docRecord{info: info, history: history})
}
