package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alimasry/lumina/ot"
)

// documentRecord is the Firestore shape of a document.
type documentRecord struct {
	Title     string    `firestore:"title"`
	Content   string    `firestore:"content"`
	Version   int       `firestore:"version"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (r documentRecord) info(id string) DocumentInfo {
	return DocumentInfo{
		ID:        id,
		Title:     r.Title,
		Content:   r.Content,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type componentRecord struct {
	Retain int    `firestore:"retain,omitempty"`
	Insert string `firestore:"insert,omitempty"`
	Delete int    `firestore:"delete,omitempty"`
}

// operationRecord is one applied operation, kept in the document's
// operations subcollection under its zero-padded version.
type operationRecord struct {
	Version int               `firestore:"version"`
	Ops     []componentRecord `firestore:"ops"`
}

// FirestoreStore is a Firestore-backed implementation of DocumentStore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a FirestoreStore keeping documents in the
// named top-level collection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "documents"
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) operations(id string) *firestore.CollectionRef {
	return s.docRef(id).Collection("operations")
}

// wrapStatus maps Firestore status codes onto the store's sentinel errors.
func wrapStatus(id string, err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("document %q: %w", id, ErrExists)
	}
	return err
}

func (s *FirestoreStore) Create(ctx context.Context, id, title, content string) error {
	now := time.Now()
	_, err := s.docRef(id).Create(ctx, documentRecord{
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return wrapStatus(id, err)
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	snap, err := s.docRef(id).Get(ctx)
	if err != nil {
		return nil, wrapStatus(id, err)
	}
	var rec documentRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", id, err)
	}
	info := rec.info(id)
	return &info, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]DocumentInfo, error) {
	iter := s.client.Collection(s.collection).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var result []DocumentInfo
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		var rec documentRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode document %q: %w", snap.Ref.ID, err)
		}
		result = append(result, rec.info(snap.Ref.ID))
	}
}

func (s *FirestoreStore) update(ctx context.Context, id string, updates ...firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})
	_, err := s.docRef(id).Update(ctx, updates)
	return wrapStatus(id, err)
}

func (s *FirestoreStore) Rename(ctx context.Context, id, title string) error {
	return s.update(ctx, id, firestore.Update{Path: "title", Value: title})
}

func (s *FirestoreStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	return s.update(ctx, id,
		firestore.Update{Path: "content", Value: content},
		firestore.Update{Path: "version", Value: version},
	)
}

func (s *FirestoreStore) AppendOperation(ctx context.Context, id string, op ot.Operation, version int) error {
	rec := operationRecord{Version: version, Ops: make([]componentRecord, len(op.Ops))}
	for i, c := range op.Ops {
		rec.Ops[i] = componentRecord{Retain: c.Retain, Insert: c.Insert, Delete: c.Delete}
	}
	if err := s.update(ctx, id, firestore.Update{Path: "version", Value: version}); err != nil {
		return err
	}
	_, err := s.operations(id).Doc(fmt.Sprintf("%010d", version)).Set(ctx, rec)
	return err
}

func (s *FirestoreStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]ot.Operation, error) {
	if _, err := s.docRef(id).Get(ctx); err != nil {
		return nil, wrapStatus(id, err)
	}

	iter := s.operations(id).
		Where("version", ">", fromVersion).
		OrderBy("version", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	ops := []ot.Operation{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return ops, nil
		}
		if err != nil {
			return nil, err
		}
		var rec operationRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode operation %s of %q: %w", snap.Ref.ID, id, err)
		}
		op := ot.Operation{Ops: make([]ot.Component, len(rec.Ops))}
		for i, c := range rec.Ops {
			op.Ops[i] = ot.Component{Retain: c.Retain, Insert: c.Insert, Delete: c.Delete}
		}
		ops = append(ops, op)
	}
}

// Delete removes the document and its operations subcollection, which
// Firestore does not delete on its own.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.docRef(id).Get(ctx); err != nil {
		return wrapStatus(id, err)
	}

	refs, err := s.operations(id).DocumentRefs(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("list operations of %q: %w", id, err)
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs)+1)
	for _, ref := range append(refs, s.docRef(id)) {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("delete %q: %w", id, err)
		}
	}
	return nil
}
