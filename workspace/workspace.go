// Package workspace holds the list of open documents and which one is
// active, and turns a prompt into the first draft.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/store"
)

var (
	ErrNoActiveDocument = errors.New("no active document")
	ErrSuperseded       = errors.New("draft superseded by a newer request")
	ErrValidation       = errors.New("validation failed")
)

// Sessions routes edits to documents that may be open in live editors.
type Sessions interface {
	// ReplaceContent replaces the whole document so connected editors
	// converge on it.
	ReplaceContent(ctx context.Context, docID, content string) error
	// Evict closes the live session of a document, if any.
	Evict(docID string)
}

// Drafter writes first drafts.
type Drafter interface {
	GenerateDraft(ctx context.Context, prompt string, attachments []assistant.FileAttachment, lang i18n.Language) (string, error)
}

// Document is an entry in the open documents list.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Snapshot is the workspace as the client sees it.
type Snapshot struct {
	Documents  []Document    `json:"documents"`
	ActiveID   string        `json:"activeId,omitempty"`
	Generating bool          `json:"generating"`
	Language   i18n.Language `json:"language"`
}

// Workspace is safe for concurrent use. Remote draft generation and
// session eviction run outside the lock, and the language is read
// without it.
type Workspace struct {
	store    store.DocumentStore
	sessions Sessions
	drafter  Drafter
	logger   *zap.Logger
	lang     atomic.Value // i18n.Language

	mu         sync.Mutex
	docs       []Document
	active     string
	generating bool
	generation uint64
}

// New restores the open documents from st in creation order and activates
// the first one.
func New(ctx context.Context, st store.DocumentStore, sessions Sessions, drafter Drafter, logger *zap.Logger) (*Workspace, error) {
	infos, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore documents: %w", err)
	}
	w := &Workspace{
		store:    st,
		sessions: sessions,
		drafter:  drafter,
		logger:   logger.Named("workspace"),
	}
	w.lang.Store(i18n.English)
	for _, info := range infos {
		w.docs = append(w.docs, Document{ID: info.ID, Title: info.Title})
	}
	if len(w.docs) > 0 {
		w.active = w.docs[0].ID
	}
	return w, nil
}

func (w *Workspace) index(id string) int {
	for i, d := range w.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) snapshotLocked() Snapshot {
	docs := make([]Document, len(w.docs))
	copy(docs, w.docs)
	return Snapshot{
		Documents:  docs,
		ActiveID:   w.active,
		Generating: w.generating,
		Language:   w.Language(),
	}
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Language returns the language used for drafts, titles and suggestions.
func (w *Workspace) Language() i18n.Language {
	return w.lang.Load().(i18n.Language)
}

func (w *Workspace) SetLanguage(lang i18n.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: unsupported language %q", ErrValidation, lang)
	}
	w.lang.Store(lang)
	return nil
}

// Create appends an empty document with the default title and makes it
// active.
func (w *Workspace) Create(ctx context.Context) (Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := Document{ID: uuid.NewString(), Title: i18n.Lookup(w.Language(), i18n.KeyNewDocument)}
	if err := w.store.Create(ctx, doc.ID, doc.Title, ""); err != nil {
		return Document{}, err
	}
	w.docs = append(w.docs, doc)
	w.active = doc.ID
	w.logger.Info("document created", zap.String("doc", doc.ID))
	return doc, nil
}

// Close removes a document. Closing the active document activates the
// first remaining one, or none.
func (w *Workspace) Close(ctx context.Context, id string) error {
	w.mu.Lock()
	i := w.index(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("document %q: %w", id, store.ErrNotFound)
	}
	w.docs = append(w.docs[:i], w.docs[i+1:]...)
	if w.active == id {
		w.active = ""
		if len(w.docs) > 0 {
			w.active = w.docs[0].ID
		}
	}
	active := w.active
	w.mu.Unlock()

	w.logger.Info("document closed", zap.String("doc", id), zap.String("active", active))
	return w.discard(ctx, id)
}

// discard stops the live session of a document that has left the list and
// deletes it from the store. Callers must not hold w.mu: stopping a session
// waits for its loop, which may be asking for the language.
func (w *Workspace) discard(ctx context.Context, id string) error {
	w.sessions.Evict(id)
	if err := w.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (w *Workspace) Activate(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.index(id) < 0 {
		return fmt.Errorf("document %q: %w", id, store.ErrNotFound)
	}
	w.active = id
	return nil
}

// Active returns the active document with its current content.
func (w *Workspace) Active(ctx context.Context) (*store.DocumentInfo, error) {
	w.mu.Lock()
	id := w.active
	w.mu.Unlock()

	if id == "" {
		return nil, ErrNoActiveDocument
	}
	return w.store.Get(ctx, id)
}

// Document returns an open document with its current content.
func (w *Workspace) Document(ctx context.Context, id string) (*store.DocumentInfo, error) {
	if !w.Contains(id) {
		return nil, fmt.Errorf("document %q: %w", id, store.ErrNotFound)
	}
	return w.store.Get(ctx, id)
}

// Contains reports whether id is an open document.
func (w *Workspace) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index(id) >= 0
}

func validateTitle(title string) error {
	err := validation.Validate(title,
		validation.Required,
		validation.RuneLength(1, 255),
	)
	if err != nil {
		return fmt.Errorf("%w: title %v", ErrValidation, err)
	}
	return nil
}

// Rename sets the title of the active document. It does nothing when no
// document is active.
func (w *Workspace) Rename(ctx context.Context, title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.index(w.active)
	if i < 0 {
		return nil
	}
	if err := w.store.Rename(ctx, w.active, title); err != nil {
		return err
	}
	w.docs[i].Title = title
	return nil
}

// SetContent replaces the content of the active document. It does nothing
// when no document is active.
func (w *Workspace) SetContent(ctx context.Context, content string) error {
	w.mu.Lock()
	id := w.active
	w.mu.Unlock()

	if id == "" {
		return nil
	}
	return w.sessions.ReplaceContent(ctx, id, content)
}

// Start turns a prompt and its attachments into the first draft. The new
// draft replaces every open document and becomes active. A failed draft
// becomes a localized error document. When another Start began while this
// one was waiting on the model, the result is discarded with ErrSuperseded.
func (w *Workspace) Start(ctx context.Context, prompt string, attachments []assistant.FileAttachment) (Snapshot, error) {
	if strings.TrimSpace(prompt) == "" {
		return Snapshot{}, fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	for _, a := range attachments {
		if err := a.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: attachment %q: %v", ErrValidation, a.Name, err)
		}
	}

	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.generating = true
	w.mu.Unlock()
	lang := w.Language()

	title, content := w.draft(ctx, prompt, attachments, lang)

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		w.logger.Info("draft discarded", zap.Uint64("generation", gen))
		return Snapshot{}, ErrSuperseded
	}
	w.generating = false

	doc := Document{ID: uuid.NewString(), Title: title}
	if err := w.store.Create(ctx, doc.ID, doc.Title, content); err != nil {
		w.mu.Unlock()
		return Snapshot{}, err
	}
	replaced := w.docs
	w.docs = []Document{doc}
	w.active = doc.ID
	snap := w.snapshotLocked()
	w.mu.Unlock()

	for _, old := range replaced {
		if err := w.discard(ctx, old.ID); err != nil {
			w.logger.Warn("remove replaced document", zap.String("doc", old.ID), zap.Error(err))
		}
	}
	return snap, nil
}

func (w *Workspace) draft(ctx context.Context, prompt string, attachments []assistant.FileAttachment, lang i18n.Language) (title, content string) {
	text, err := w.drafter.GenerateDraft(ctx, prompt, attachments, lang)
	if err != nil {
		w.logger.Error("draft generation failed", zap.Error(err))
		return i18n.Lookup(lang, i18n.KeyErrorTitle), i18n.Lookup(lang, i18n.KeyErrorContent)
	}
	return assistant.DraftTitle(text, lang), text
}
