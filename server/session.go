package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/editor"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/suggest"
)

var errSessionClosed = errors.New("document session closed")

type clientMessage struct {
	client *Client
	msg    ClientMessage
}

type joinRequest struct {
	client *Client
	docID  string
	lang   i18n.Language
}

type departure struct {
	client    *Client
	closeSend bool
}

// Session manages collaboration for a single document.
// All state changes are serialized through a single goroutine; remote
// model calls run elsewhere and post their results back as events.
type Session struct {
	docID     string
	title     string
	doc       *ot.Document
	engine    ot.Engine
	store     store.DocumentStore
	assistant Assistant
	opts      Options
	logger    *zap.Logger
	lang      i18n.Language

	clients    map[*Client]*editor.Surface
	reconciler suggest.Reconciler
	suggesting bool
	timer      *time.Timer
	tick       uint64

	ctx    context.Context
	cancel context.CancelFunc

	incoming chan clientMessage
	join     chan joinRequest
	leave    chan departure
	events   chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSession(info *store.DocumentInfo, history []ot.Operation, h *Hub) *Session {
	doc := ot.NewDocument(info.Content)
	doc.Version = len(history)
	doc.History = history
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		docID:     info.ID,
		title:     info.Title,
		doc:       doc,
		engine:    h.engine,
		store:     h.store,
		assistant: h.assistant,
		opts:      h.opts,
		logger:    h.logger.Named("session").With(zap.String("doc", info.ID)),
		clients:   make(map[*Client]*editor.Surface),
		ctx:       ctx,
		cancel:    cancel,
		incoming:  make(chan clientMessage, 64),
		join:      make(chan joinRequest, 16),
		leave:     make(chan departure, 16),
		events:    make(chan func(), 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run is the session's main loop. It serializes all operations.
func (s *Session) Run() {
	defer close(s.done)
	defer s.shutdown()
	for {
		select {
		case j := <-s.join:
			s.handleJoin(j)
		case d := <-s.leave:
			s.handleLeave(d)
		case cm := <-s.incoming:
			s.handleMessage(cm)
		case fn := <-s.events:
			fn()
		case <-s.stop:
			return
		}
	}
}

// Stop ends the session and waits for its loop to exit. Connected clients
// are told the document was closed.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Session) shutdown() {
	s.cancel()
	if s.timer != nil {
		s.timer.Stop()
	}
	for c := range s.clients {
		c.sendMsg(ServerMessage{Type: MsgClosed, DocID: s.docID})
		c.detach(s)
	}
	s.clients = nil
}

// send delivers v to one of the session's channels unless the session has
// already stopped.
func send[T any](s *Session, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) post(fn func()) {
	send(s, s.events, fn)
}

// do runs fn on the session loop and returns its error.
func (s *Session) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.events <- func() { errc <- fn() }:
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) language() i18n.Language {
	if s.lang != "" {
		return s.lang
	}
	if s.opts.Language != nil {
		return s.opts.Language()
	}
	return i18n.English
}

func (s *Session) handleJoin(j joinRequest) {
	c := j.client
	if c.isClosed() {
		return
	}
	if _, ok := s.clients[c]; !ok {
		s.clients[c] = &editor.Surface{}
	}
	if j.lang.Valid() {
		s.lang = j.lang
	}
	c.attach(s)

	// Send current document state to the joining client.
	c.sendMsg(ServerMessage{
		Type:     MsgDoc,
		DocID:    s.docID,
		Title:    s.title,
		Content:  s.doc.Content,
		Revision: s.doc.Version,
		Clients:  s.clientInfos(),
	})
	if !s.reconciler.Pending.Empty() {
		c.sendMsg(s.suggestionsMsg())
	}

	// Notify other clients about the new user.
	for other := range s.clients {
		if other != c {
			other.sendMsg(ServerMessage{
				Type:     MsgJoin,
				ClientID: c.ID,
				Name:     c.Name,
				Color:    c.Color,
			})
		}
	}

	if s.timer == nil {
		s.schedule()
	}
}

func (s *Session) handleLeave(d departure) {
	c := d.client
	if _, ok := s.clients[c]; !ok {
		if d.closeSend {
			c.closeSend()
		}
		return
	}
	delete(s.clients, c)
	c.detach(s)
	if d.closeSend {
		c.closeSend()
	}

	for other := range s.clients {
		other.sendMsg(ServerMessage{
			Type:     MsgLeave,
			ClientID: c.ID,
		})
	}
}

func (s *Session) handleMessage(cm clientMessage) {
	surface, ok := s.clients[cm.client]
	if !ok {
		cm.client.sendError("not joined to a document")
		return
	}

	switch cm.msg.Type {
	case MsgOp:
		s.handleOp(cm.client, cm.msg)
	case MsgSelect:
		s.handleSelect(cm.client, surface, cm.msg)
	case MsgAction:
		s.handleAction(cm.client, surface, cm.msg)
	case MsgApply:
		if _, err := s.applySuggestion(cm.msg.SuggestionID); err != nil {
			cm.client.sendError(err.Error())
		}
	case MsgDismiss:
		if err := s.dismissSuggestion(cm.msg.SuggestionID); err != nil {
			cm.client.sendError(err.Error())
		}
	}
}

func (s *Session) handleOp(c *Client, msg ClientMessage) {
	// Transform the client's operation against server history and apply it.
	applied, err := s.doc.Rebase(s.engine, msg.Op, msg.Revision)
	if err != nil {
		s.logger.Warn("rejected operation", zap.String("client", c.ID), zap.Int("revision", msg.Revision), zap.Error(err))
		c.sendError("operation error: " + err.Error())
		return
	}
	s.publish(c, applied)
}

// publish persists an operation that was just applied to the document,
// acks its author and broadcasts it to everyone else. A nil author means
// the edit came from the server, so every client receives it as an op.
func (s *Session) publish(author *Client, op ot.Operation) {
	if op.IsNoop() {
		if author != nil {
			author.sendMsg(ServerMessage{Type: MsgAck, Revision: s.doc.Version})
		}
		return
	}

	if err := s.store.UpdateContent(s.ctx, s.docID, s.doc.Content, s.doc.Version); err != nil {
		s.logger.Error("persist content", zap.Int("version", s.doc.Version), zap.Error(err))
	}
	if err := s.store.AppendOperation(s.ctx, s.docID, op, s.doc.Version); err != nil {
		s.logger.Error("persist operation", zap.Int("version", s.doc.Version), zap.Error(err))
	}

	var authorID string
	if author != nil {
		authorID = author.ID
		author.sendMsg(ServerMessage{Type: MsgAck, Revision: s.doc.Version})
	}
	for c, surface := range s.clients {
		if c != author {
			c.sendMsg(ServerMessage{
				Type:     MsgOp,
				DocID:    s.docID,
				Revision: s.doc.Version,
				Op:       op,
				ClientID: authorID,
			})
		}
		before := surface.Status()
		surface.Rebase(op)
		if after := surface.Status(); !sameStatus(before, after) {
			c.sendMsg(stateMsg(s.docID, after))
		}
	}
	s.schedule()
}

func (s *Session) handleSelect(c *Client, surface *editor.Surface, msg ClientMessage) {
	start, end, err := s.engine.TransformRange(msg.Start, msg.End, msg.Revision, s.doc.History)
	if err != nil {
		c.sendError("selection error: " + err.Error())
		return
	}
	n := s.doc.Len()
	start = clamp(start, 0, n)
	end = clamp(end, start, n)
	surface.Select(editor.Range{Start: start, End: end})
	c.sendMsg(stateMsg(s.docID, surface.Status()))
}

// handleAction sends the selected text to the model. The result is spliced
// in at the position the selection has moved to by the time it arrives.
func (s *Session) handleAction(c *Client, surface *editor.Surface, msg ClientMessage) {
	if s.assistant == nil {
		c.sendError("assistant unavailable")
		return
	}
	kind, err := assistant.ParseAction(msg.Kind)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	req, err := surface.Begin()
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendMsg(stateMsg(s.docID, surface.Status()))

	selected, err := ot.Slice(s.doc.Content, req.Range.Start, req.Range.End)
	if err != nil {
		surface.Finish(req.Token)
		c.sendError(err.Error())
		c.sendMsg(stateMsg(s.docID, surface.Status()))
		return
	}
	action := assistant.ActionRequest{
		Kind:        kind,
		Selected:    selected,
		Context:     s.doc.Content,
		Instruction: msg.Instruction,
	}
	revision, baseLen := s.doc.Version, s.doc.Len()

	go func() {
		out, err := s.assistant.PerformAction(s.ctx, action)
		s.post(func() {
			s.finishAction(c, req, revision, baseLen, selected, out, err)
		})
	}()
}

func (s *Session) finishAction(c *Client, req editor.Request, revision, baseLen int, selected, out string, actionErr error) {
	surface, ok := s.clients[c]
	if !ok || !surface.Finish(req.Token) {
		s.logger.Debug("discarded action result", zap.String("client", c.ID), zap.Uint64("token", req.Token))
		return
	}
	defer func() { c.sendMsg(stateMsg(s.docID, surface.Status())) }()

	if actionErr != nil {
		c.sendError(actionErr.Error())
		return
	}
	if out == selected {
		return
	}

	op := ot.NewReplace(req.Range.Start, req.Range.Len(), out, baseLen)
	applied, err := s.doc.Rebase(s.engine, op, revision)
	if err != nil {
		s.logger.Error("splice action result", zap.Int("revision", revision), zap.Error(err))
		c.sendError("could not apply action result")
		return
	}
	s.publish(nil, applied)
}

// schedule restarts the quiet period after which proactive suggestions are
// requested. Only the most recent timer may fire.
func (s *Session) schedule() {
	if s.opts.SuggestionDelay <= 0 || s.assistant == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.tick++
	tick := s.tick
	s.timer = time.AfterFunc(s.opts.SuggestionDelay, func() {
		s.post(func() {
			if tick == s.tick {
				s.requestSuggestions()
			}
		})
	})
}

func (s *Session) requestSuggestions() {
	if s.suggesting || !s.reconciler.Pending.Empty() {
		return
	}
	s.suggesting = true
	content, lang := s.doc.Content, s.language()

	go func() {
		batch := s.assistant.Suggest(s.ctx, content, lang)
		s.post(func() { s.receiveSuggestions(batch) })
	}()
}

func (s *Session) receiveSuggestions(batch []suggest.Suggestion) {
	s.suggesting = false
	// The content may have changed while the model was thinking.
	batch = suggest.Locate(s.doc.Content, batch)
	if len(batch) == 0 {
		return
	}
	s.reconciler.Pending.Replace(batch)
	s.logger.Info("suggestions ready", zap.Int("count", len(batch)))
	s.broadcast(s.suggestionsMsg())
}

func (s *Session) applySuggestion(id string) (suggest.Result, error) {
	baseLen := s.doc.Len()
	res, err := s.reconciler.Apply(s.doc.Content, id)
	if err != nil {
		return res, err
	}
	defer s.suggestionsChanged()

	if !res.Applied {
		return res, nil
	}
	op := res.Op(baseLen)
	if err := s.doc.Apply(op); err != nil {
		return res, err
	}
	s.publish(nil, op)
	return res, nil
}

func (s *Session) dismissSuggestion(id string) error {
	if err := s.reconciler.Dismiss(id); err != nil {
		return err
	}
	s.suggestionsChanged()
	return nil
}

// suggestionsChanged tells every editor about the pending set. Once it is
// empty a fresh quiet period starts, even without an edit.
func (s *Session) suggestionsChanged() {
	s.broadcast(s.suggestionsMsg())
	if s.reconciler.Pending.Empty() {
		s.schedule()
	}
}

func (s *Session) replaceContent(content string) error {
	if content == s.doc.Content {
		return nil
	}
	op, err := s.doc.Replace(content)
	if err != nil {
		return err
	}
	s.publish(nil, op)
	return nil
}

func (s *Session) suggestionsMsg() ServerMessage {
	return ServerMessage{
		Type:        MsgSuggestions,
		DocID:       s.docID,
		Revision:    s.doc.Version,
		Suggestions: s.reconciler.Pending.List(),
	}
}

func (s *Session) broadcast(msg ServerMessage) {
	for c := range s.clients {
		c.sendMsg(msg)
	}
}

func (s *Session) clientInfos() []ClientInfo {
	infos := make([]ClientInfo, 0, len(s.clients))
	for c := range s.clients {
		infos = append(infos, c.Info())
	}
	return infos
}

func stateMsg(docID string, st editor.Status) ServerMessage {
	return ServerMessage{Type: MsgState, DocID: docID, Status: &st}
}

func sameStatus(a, b editor.Status) bool {
	if a.State != b.State || a.Processing != b.Processing {
		return false
	}
	if a.Selection == nil || b.Selection == nil {
		return a.Selection == b.Selection
	}
	return *a.Selection == *b.Selection
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
