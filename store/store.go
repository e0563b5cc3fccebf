package store

import (
	"context"
	"errors"
	"time"

	"github.com/alimasry/lumina/ot"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// DocumentInfo holds document metadata and content.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentStore abstracts document persistence.
// List returns documents in creation order. Version counts the operations
// appended for a document, so GetOperations(id, 0) replays it from its
// initial content.
type DocumentStore interface {
	Create(ctx context.Context, id, title, content string) error
	Get(ctx context.Context, id string) (*DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	Rename(ctx context.Context, id, title string) error
	UpdateContent(ctx context.Context, id, content string, version int) error
	AppendOperation(ctx context.Context, id string, op ot.Operation, version int) error
	GetOperations(ctx context.Context, id string, fromVersion int) ([]ot.Operation, error)
	Delete(ctx context.Context, id string) error
}
