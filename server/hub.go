package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/suggest"
)

// Assistant performs inline actions and proactive suggestions for sessions.
type Assistant interface {
	PerformAction(ctx context.Context, req assistant.ActionRequest) (string, error)
	Suggest(ctx context.Context, content string, lang i18n.Language) []suggest.Suggestion
}

// Options tune every session the hub starts.
type Options struct {
	// SuggestionDelay is the quiet period after the last edit before
	// suggestions are requested. Zero disables proactive suggestions.
	SuggestionDelay time.Duration
	// Language supplies the suggestion language for sessions no client
	// has joined with an explicit language.
	Language func() i18n.Language
}

// Hub manages document sessions and routes clients to the right session.
type Hub struct {
	store     store.DocumentStore
	engine    ot.Engine
	assistant Assistant
	opts      Options
	logger    *zap.Logger

	sessions map[string]*Session
	mu       sync.Mutex

	joinDoc chan joinRequest
	done    chan struct{}
}

func NewHub(st store.DocumentStore, engine ot.Engine, asst Assistant, opts Options, logger *zap.Logger) *Hub {
	return &Hub{
		store:     st,
		engine:    engine,
		assistant: asst,
		opts:      opts,
		logger:    logger.Named("hub"),
		sessions:  make(map[string]*Session),
		joinDoc:   make(chan joinRequest, 64),
		done:      make(chan struct{}),
	}
}

// Run is the hub's main loop. When ctx is done every session is stopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case req := <-h.joinDoc:
			h.handleJoinDoc(ctx, req)
		case <-ctx.Done():
			h.stopAll()
			return
		}
	}
}

func (h *Hub) join(req joinRequest) {
	select {
	case <-h.done:
		req.client.sendError("server shutting down")
		return
	default:
	}
	select {
	case h.joinDoc <- req:
	case <-h.done:
		req.client.sendError("server shutting down")
	}
}

func (h *Hub) handleJoinDoc(ctx context.Context, req joinRequest) {
	s, err := h.session(ctx, req.docID)
	if err != nil {
		h.logger.Warn("join failed", zap.String("doc", req.docID), zap.String("client", req.client.ID), zap.Error(err))
		req.client.sendError("document not found")
		return
	}
	if prev := req.client.current(); prev != nil && prev != s {
		send(prev, prev.leave, departure{client: req.client})
	}
	if !send(s, s.join, req) {
		req.client.sendError("document closed")
	}
}

// session returns the live session of a document, starting one from the
// store if needed. Documents are never created on demand.
func (h *Hub) session(ctx context.Context, docID string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[docID]; ok {
		return s, nil
	}
	info, err := h.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	history, err := h.store.GetOperations(ctx, docID, 0)
	if err != nil {
		return nil, err
	}

	s := newSession(info, history, h)
	h.sessions[docID] = s
	go s.Run()
	h.logger.Debug("session started", zap.String("doc", docID), zap.Int("version", len(history)))
	return s, nil
}

// liveSession returns the running session of a document, or nil.
func (h *Hub) liveSession(docID string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[docID]
}

// Evict stops the session of a document. Its clients receive a closed
// message.
func (h *Hub) Evict(docID string) {
	h.mu.Lock()
	s := h.sessions[docID]
	delete(h.sessions, docID)
	h.mu.Unlock()

	if s != nil {
		s.Stop()
		h.logger.Debug("session evicted", zap.String("doc", docID))
	}
}

func (h *Hub) stopAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// ReplaceContent swaps the whole content of a document as one edit, so
// every connected editor converges on it.
func (h *Hub) ReplaceContent(ctx context.Context, docID, content string) error {
	s, err := h.session(ctx, docID)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error { return s.replaceContent(content) })
}

// Suggestions returns the pending suggestions of a document.
func (h *Hub) Suggestions(ctx context.Context, docID string) ([]suggest.Suggestion, error) {
	s, err := h.session(ctx, docID)
	if err != nil {
		return nil, err
	}
	var list []suggest.Suggestion
	err = s.do(ctx, func() error {
		list = s.reconciler.Pending.List()
		return nil
	})
	return list, err
}

// ApplySuggestion applies a pending suggestion to a document.
func (h *Hub) ApplySuggestion(ctx context.Context, docID, id string) (suggest.Result, error) {
	s, err := h.session(ctx, docID)
	if err != nil {
		return suggest.Result{}, err
	}
	var res suggest.Result
	err = s.do(ctx, func() error {
		var err error
		res, err = s.applySuggestion(id)
		return err
	})
	return res, err
}

// DismissSuggestion drops a pending suggestion of a document.
func (h *Hub) DismissSuggestion(ctx context.Context, docID, id string) error {
	s, err := h.session(ctx, docID)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error { return s.dismissSuggestion(id) })
}
