package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/suggest"
)

func ctx() context.Context { return context.Background() }

// fakeAssistant answers actions from release, or upper-cases the selection
// when release is nil.
type fakeAssistant struct {
	release chan string

	mu           sync.Mutex
	actions      []assistant.ActionRequest
	batch        []suggest.Suggestion
	suggestCalls int
	langs        []i18n.Language
}

func (f *fakeAssistant) PerformAction(ctx context.Context, req assistant.ActionRequest) (string, error) {
	f.mu.Lock()
	f.actions = append(f.actions, req)
	f.mu.Unlock()
	if f.release == nil {
		return strings.ToUpper(req.Selected), nil
	}
	select {
	case out := <-f.release:
		return out, nil
	case <-ctx.Done():
		return req.Selected, nil
	}
}

func (f *fakeAssistant) Suggest(_ context.Context, content string, lang i18n.Language) []suggest.Suggestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestCalls++
	f.langs = append(f.langs, lang)
	return append([]suggest.Suggestion(nil), f.batch...)
}

func (f *fakeAssistant) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestCalls
}

// mockClient creates a client without a real WebSocket connection, for testing.
func mockClient(id string) *Client {
	return &Client{
		ID:    id,
		Name:  "Test " + id,
		Color: "#000000",
		send:  make(chan []byte, 256),
	}
}

// recvMsg reads one message from a mock client's send channel with timeout.
func recvMsg(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return ServerMessage{}
	}
}

// recvType reads one message and fails unless it has the given type.
func recvType(t *testing.T, c *Client, typ string) ServerMessage {
	t.Helper()
	msg := recvMsg(t, c)
	if msg.Type != typ {
		t.Fatalf("expected %s message, got %q (%s)", typ, msg.Type, msg.Message)
	}
	return msg
}

func expectNoMsg(t *testing.T, c *Client, wait time.Duration) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(wait):
	}
}

type sessionFixture struct {
	store *store.MemoryStore
	asst  *fakeAssistant
	hub   *Hub
	s     *Session
}

func newFixture(t *testing.T, content string, opts Options) *sessionFixture {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.Create(ctx(), "doc1", "Draft", content); err != nil {
		t.Fatal(err)
	}
	asst := &fakeAssistant{}
	hub := NewHub(st, &ot.JupiterEngine{}, asst, opts, zaptest.NewLogger(t))
	s, err := hub.session(ctx(), "doc1")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Stop)
	return &sessionFixture{store: st, asst: asst, hub: hub, s: s}
}

func (f *sessionFixture) join(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	f.s.join <- joinRequest{client: c, docID: f.s.docID}
	return recvType(t, c, MsgDoc)
}

func (f *sessionFixture) send(c *Client, msg ClientMessage) {
	f.s.incoming <- clientMessage{client: c, msg: msg}
}

// docState reads the document from inside the session loop.
func docState(t *testing.T, s *Session) (string, int) {
	t.Helper()
	var (
		content string
		version int
	)
	err := s.do(ctx(), func() error {
		content, version = s.doc.Content, s.doc.Version
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return content, version
}

func TestSession_JoinAndReceiveDoc(t *testing.T) {
	f := newFixture(t, "hello", Options{})
	c := mockClient("c1")
	msg := f.join(t, c)

	if msg.Content != "hello" {
		t.Errorf("content = %q, want %q", msg.Content, "hello")
	}
	if msg.Title != "Draft" {
		t.Errorf("title = %q, want %q", msg.Title, "Draft")
	}
	if msg.Revision != 0 {
		t.Errorf("revision = %d, want 0", msg.Revision)
	}
	if c.current() != f.s {
		t.Error("client not attached to session")
	}
}

func TestSession_OpTransformAndBroadcast(t *testing.T) {
	f := newFixture(t, "abc", Options{})
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	// c1 sends an insert at position 0
	f.send(c1, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(0, "X", 3)})

	ack := recvType(t, c1, MsgAck)
	if ack.Revision != 1 {
		t.Errorf("ack revision = %d, want 1", ack.Revision)
	}

	broadcast := recvType(t, c2, MsgOp)
	if broadcast.Revision != 1 {
		t.Errorf("broadcast revision = %d, want 1", broadcast.Revision)
	}
	if broadcast.ClientID != "c1" {
		t.Errorf("broadcast clientId = %q, want %q", broadcast.ClientID, "c1")
	}

	if content, _ := docState(t, f.s); content != "Xabc" {
		t.Errorf("doc content = %q, want %q", content, "Xabc")
	}
	info, err := f.store.Get(ctx(), "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "Xabc" || info.Version != 1 {
		t.Errorf("stored = %q v%d, want %q v1", info.Content, info.Version, "Xabc")
	}
}

func TestSession_ConcurrentOps(t *testing.T) {
	f := newFixture(t, "abc", Options{})
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	// Both at revision 0:
	// c1 inserts "X" at pos 0: "Xabc"
	// c2 inserts "Y" at pos 3: "abcY"
	f.send(c1, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(0, "X", 3)})
	recvType(t, c1, MsgAck)
	recvType(t, c2, MsgOp)

	f.send(c2, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(3, "Y", 3)})
	recvType(t, c2, MsgAck)
	recvType(t, c1, MsgOp)

	if content, _ := docState(t, f.s); content != "XabcY" {
		t.Errorf("doc content = %q, want %q", content, "XabcY")
	}
}

func TestSession_RestoresHistory(t *testing.T) {
	st := store.NewMemoryStore()
	st.Create(ctx(), "doc1", "Draft", "abc")
	st.AppendOperation(ctx(), "doc1", ot.NewInsert(0, "X", 3), 1)
	st.UpdateContent(ctx(), "doc1", "Xabc", 1)

	hub := NewHub(st, &ot.JupiterEngine{}, &fakeAssistant{}, Options{}, zaptest.NewLogger(t))
	s, err := hub.session(ctx(), "doc1")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	c := mockClient("c1")
	s.join <- joinRequest{client: c}
	doc := recvType(t, c, MsgDoc)
	if doc.Content != "Xabc" || doc.Revision != 1 {
		t.Fatalf("doc = %q r%d, want %q r1", doc.Content, doc.Revision, "Xabc")
	}

	// An edit made against the stored initial content is rebased.
	s.incoming <- clientMessage{client: c, msg: ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(3, "Y", 3)}}
	recvType(t, c, MsgAck)
	if content, _ := docState(t, s); content != "XabcY" {
		t.Errorf("content = %q, want %q", content, "XabcY")
	}
}

func TestSession_LeaveNotification(t *testing.T) {
	f := newFixture(t, "", Options{})
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	f.s.leave <- departure{client: c2, closeSend: true}
	msg := recvType(t, c1, MsgLeave)
	if msg.ClientID != "c2" {
		t.Errorf("leave clientId = %q, want %q", msg.ClientID, "c2")
	}
	if _, ok := <-c2.send; ok {
		t.Error("send channel of departed client still open")
	}
}

func TestSession_Select(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	c := mockClient("c1")
	f.join(t, c)

	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 6, End: 11})
	st := recvType(t, c, MsgState)
	if st.Status == nil || st.State != "selecting" || st.Selection == nil {
		t.Fatalf("state = %+v, want selecting", st.Status)
	}
	if st.Selection.Start != 6 || st.Selection.End != 11 {
		t.Errorf("selection = %+v, want [6,11)", *st.Selection)
	}

	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 4, End: 4})
	st = recvType(t, c, MsgState)
	if st.State != "idle" || st.Selection != nil {
		t.Errorf("state = %+v, want idle without selection", st.Status)
	}
}

func TestSession_SelectFromOldRevision(t *testing.T) {
	f := newFixture(t, "abcdef", Options{})
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	f.send(c1, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(0, "XX", 6)})
	recvType(t, c1, MsgAck)
	recvType(t, c2, MsgOp)

	// c2 has not seen the insert yet.
	f.send(c2, ClientMessage{Type: MsgSelect, Revision: 0, Start: 0, End: 3})
	st := recvType(t, c2, MsgState)
	if st.Selection == nil || st.Selection.Start != 2 || st.Selection.End != 5 {
		t.Errorf("selection = %+v, want [2,5)", st.Selection)
	}

	// Out of range offsets are clamped to the document.
	f.send(c2, ClientMessage{Type: MsgSelect, Revision: 1, Start: 4, End: 99})
	st = recvType(t, c2, MsgState)
	if st.Selection == nil || st.Selection.End != 8 {
		t.Errorf("selection = %+v, want end 8", st.Selection)
	}
}

func TestSession_SelectionFollowsEdits(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	f.send(c2, ClientMessage{Type: MsgSelect, Revision: 0, Start: 6, End: 11})
	recvType(t, c2, MsgState)

	f.send(c1, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(0, ">> ", 11)})
	recvType(t, c1, MsgAck)
	recvType(t, c2, MsgOp)
	st := recvType(t, c2, MsgState)
	if st.Selection == nil || st.Selection.Start != 9 || st.Selection.End != 14 {
		t.Errorf("selection = %+v, want [9,14)", st.Selection)
	}
}

func TestSession_InlineAction(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	f.asst.release = make(chan string)
	c := mockClient("c1")
	f.join(t, c)

	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 6, End: 11})
	recvType(t, c, MsgState)

	f.send(c, ClientMessage{Type: MsgAction, Kind: "rewrite"})
	st := recvType(t, c, MsgState)
	if st.State != "idle" || !st.Processing {
		t.Fatalf("state = %+v, want idle and processing", st.Status)
	}

	// Typing goes on while the model works.
	f.send(c, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(0, "Big ", 11)})
	recvType(t, c, MsgAck)

	f.asst.release <- "WORLD"

	op := recvType(t, c, MsgOp)
	if op.Revision != 2 || op.ClientID != "" {
		t.Errorf("op revision = %d clientId = %q, want 2 and none", op.Revision, op.ClientID)
	}
	st = recvType(t, c, MsgState)
	if st.Processing {
		t.Error("still processing after result")
	}
	if content, _ := docState(t, f.s); content != "Big hello WORLD" {
		t.Errorf("content = %q, want %q", content, "Big hello WORLD")
	}

	f.asst.mu.Lock()
	defer f.asst.mu.Unlock()
	if len(f.asst.actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(f.asst.actions))
	}
	req := f.asst.actions[0]
	if req.Kind != assistant.Rewrite || req.Selected != "world" || req.Context != "hello world" {
		t.Errorf("request = %+v", req)
	}
}

func TestSession_ActionWhileProcessing(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	f.asst.release = make(chan string)
	c := mockClient("c1")
	f.join(t, c)

	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 0, End: 5})
	recvType(t, c, MsgState)
	f.send(c, ClientMessage{Type: MsgAction, Kind: "SHORTEN"})
	recvType(t, c, MsgState)

	// Selecting is still allowed, dispatching is not.
	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 0, End: 5})
	st := recvType(t, c, MsgState)
	if st.State != "selecting" || !st.Processing {
		t.Fatalf("state = %+v, want selecting and processing", st.Status)
	}
	f.send(c, ClientMessage{Type: MsgAction, Kind: "EXPAND"})
	recvType(t, c, MsgError)

	// An unchanged result is not an edit.
	f.asst.release <- "hello"
	st = recvType(t, c, MsgState)
	if st.State != "selecting" || st.Processing {
		t.Errorf("state = %+v, want selecting, not processing", st.Status)
	}
	if _, version := docState(t, f.s); version != 0 {
		t.Errorf("version = %d, want 0", version)
	}
}

func TestSession_ActionErrors(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	c := mockClient("c1")
	f.join(t, c)

	f.send(c, ClientMessage{Type: MsgAction, Kind: "REWRITE"})
	if msg := recvType(t, c, MsgError); !strings.Contains(msg.Message, "no text selected") {
		t.Errorf("message = %q", msg.Message)
	}

	f.send(c, ClientMessage{Type: MsgSelect, Revision: 0, Start: 0, End: 5})
	recvType(t, c, MsgState)
	f.send(c, ClientMessage{Type: MsgAction, Kind: "SING"})
	recvType(t, c, MsgError)
}

func TestSession_ActionResultDiscardedAfterLeave(t *testing.T) {
	f := newFixture(t, "hello world", Options{})
	f.asst.release = make(chan string)
	c1 := mockClient("c1")
	c2 := mockClient("c2")
	f.join(t, c1)
	f.join(t, c2)
	recvType(t, c1, MsgJoin)

	f.send(c1, ClientMessage{Type: MsgSelect, Revision: 0, Start: 0, End: 5})
	recvType(t, c1, MsgState)
	f.send(c1, ClientMessage{Type: MsgAction, Kind: "REWRITE"})
	recvType(t, c1, MsgState)

	f.s.leave <- departure{client: c1}
	recvType(t, c2, MsgLeave)

	f.asst.release <- "HOWDY"
	expectNoMsg(t, c2, 200*time.Millisecond)
	if content, _ := docState(t, f.s); content != "hello world" {
		t.Errorf("content = %q, want unchanged", content)
	}
}

func TestSession_ProactiveSuggestions(t *testing.T) {
	f := newFixture(t, "teh cat sat on teh mat", Options{SuggestionDelay: 20 * time.Millisecond})
	f.asst.mu.Lock()
	f.asst.batch = []suggest.Suggestion{
		{ID: "s1", OriginalText: "teh cat", SuggestedText: "the cat"},
		{ID: "s2", OriginalText: "dog", SuggestedText: "hound"},
	}
	f.asst.mu.Unlock()

	c := mockClient("c1")
	f.s.join <- joinRequest{client: c, lang: i18n.Russian}
	recvType(t, c, MsgDoc)

	msg := recvType(t, c, MsgSuggestions)
	if len(msg.Suggestions) != 1 {
		t.Fatalf("suggestions = %+v, want only s1", msg.Suggestions)
	}
	got := msg.Suggestions[0]
	if got.ID != "s1" || got.StartIndex != 0 || got.EndIndex != 7 {
		t.Errorf("suggestion = %+v", got)
	}

	// Pending suggestions hold back new requests.
	f.send(c, ClientMessage{Type: MsgOp, Revision: 0, Op: ot.NewInsert(22, "!", 22)})
	recvType(t, c, MsgAck)
	expectNoMsg(t, c, 100*time.Millisecond)
	if n := f.asst.calls(); n != 1 {
		t.Errorf("suggest calls = %d, want 1", n)
	}

	f.send(c, ClientMessage{Type: MsgApply, SuggestionID: "s1"})
	recvType(t, c, MsgOp)
	if msg := recvType(t, c, MsgSuggestions); len(msg.Suggestions) != 0 {
		t.Errorf("suggestions after apply = %+v, want none", msg.Suggestions)
	}
	if content, _ := docState(t, f.s); content != "the cat sat on teh mat!" {
		t.Errorf("content = %q", content)
	}

	f.asst.mu.Lock()
	defer f.asst.mu.Unlock()
	if f.asst.langs[0] != i18n.Russian {
		t.Errorf("suggestion language = %q, want ru", f.asst.langs[0])
	}
}

// waitCalls polls until the assistant has been asked for n batches.
func waitCalls(t *testing.T, a *fakeAssistant, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("suggest calls = %d, want %d", a.calls(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_DismissLastSuggestionRequestsMore(t *testing.T) {
	f := newFixture(t, "teh cat sat on the mat", Options{SuggestionDelay: 20 * time.Millisecond})
	f.asst.mu.Lock()
	f.asst.batch = []suggest.Suggestion{{ID: "s1", OriginalText: "teh cat", SuggestedText: "the cat"}}
	f.asst.mu.Unlock()

	c := mockClient("c1")
	f.join(t, c)
	recvType(t, c, MsgSuggestions)
	waitCalls(t, f.asst, 1)

	f.send(c, ClientMessage{Type: MsgDismiss, SuggestionID: "s1"})
	select {
	case data := <-c.send:
		// Editors clear their list from an explicit empty one.
		if !strings.Contains(string(data), `"suggestions":[]`) {
			t.Fatalf("message after dismiss = %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for suggestions")
	}

	// No typing: the empty set alone starts the next quiet period.
	waitCalls(t, f.asst, 2)
	if msg := recvType(t, c, MsgSuggestions); len(msg.Suggestions) != 1 {
		t.Errorf("next batch = %+v", msg.Suggestions)
	}
}

func TestSession_StaleApplyRequestsMore(t *testing.T) {
	f := newFixture(t, "teh cat sat on the mat", Options{SuggestionDelay: 20 * time.Millisecond})
	f.asst.mu.Lock()
	f.asst.batch = []suggest.Suggestion{{ID: "s1", OriginalText: "teh cat", SuggestedText: "the cat"}}
	f.asst.mu.Unlock()

	c := mockClient("c1")
	f.join(t, c)
	recvType(t, c, MsgSuggestions)

	// The text goes away before the suggestion is applied.
	f.asst.mu.Lock()
	f.asst.batch = nil
	f.asst.mu.Unlock()
	if err := f.hub.ReplaceContent(ctx(), "doc1", "a dog sat on the mat"); err != nil {
		t.Fatal(err)
	}
	recvType(t, c, MsgOp)
	calls := f.asst.calls()

	res, err := f.hub.ApplySuggestion(ctx(), "doc1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied {
		t.Fatal("stale suggestion applied")
	}
	if msg := recvType(t, c, MsgSuggestions); len(msg.Suggestions) != 0 {
		t.Fatalf("suggestions after stale apply = %+v", msg.Suggestions)
	}
	waitCalls(t, f.asst, calls+1)
}

func TestSession_SuggestionDebounce(t *testing.T) {
	f := newFixture(t, "some content", Options{SuggestionDelay: 150 * time.Millisecond})
	c := mockClient("c1")
	f.join(t, c)

	// Each edit restarts the quiet period.
	for i := range 4 {
		time.Sleep(50 * time.Millisecond)
		f.send(c, ClientMessage{Type: MsgOp, Revision: i, Op: ot.NewInsert(0, "x", 12+i)})
		recvType(t, c, MsgAck)
	}
	if n := f.asst.calls(); n != 0 {
		t.Errorf("suggest calls while typing = %d, want 0", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.asst.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := f.asst.calls(); n != 1 {
		t.Errorf("suggest calls after quiet period = %d, want 1", n)
	}
}

func TestSession_SuggestionThroughHub(t *testing.T) {
	f := newFixture(t, "teh end", Options{})
	err := f.s.do(ctx(), func() error {
		f.s.reconciler.Pending.Replace([]suggest.Suggestion{
			{ID: "a", OriginalText: "teh", SuggestedText: "the"},
			{ID: "b", OriginalText: "gone", SuggestedText: "here"},
			{ID: "c", OriginalText: "end", SuggestedText: "finish"},
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.hub.ApplySuggestion(ctx(), "doc1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Content != "the end" {
		t.Errorf("result = %+v", res)
	}

	// Stale text leaves the content alone but still clears the suggestion.
	res, err = f.hub.ApplySuggestion(ctx(), "doc1", "b")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied {
		t.Error("applied a suggestion whose text is gone")
	}

	if err := f.hub.DismissSuggestion(ctx(), "doc1", "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.hub.ApplySuggestion(ctx(), "doc1", "c"); !errors.Is(err, suggest.ErrUnknown) {
		t.Errorf("apply dismissed: err = %v, want ErrUnknown", err)
	}

	list, err := f.hub.Suggestions(ctx(), "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("pending = %+v, want none", list)
	}
	if content, version := docState(t, f.s); content != "the end" || version != 1 {
		t.Errorf("doc = %q v%d, want %q v1", content, version, "the end")
	}
}

func TestSession_ReplaceContent(t *testing.T) {
	f := newFixture(t, "old text", Options{})
	c := mockClient("c1")
	f.join(t, c)

	if err := f.hub.ReplaceContent(ctx(), "doc1", "brand new"); err != nil {
		t.Fatal(err)
	}
	op := recvType(t, c, MsgOp)
	got, err := ot.Apply("old text", op.Op)
	if err != nil {
		t.Fatal(err)
	}
	if got != "brand new" {
		t.Errorf("client converges on %q, want %q", got, "brand new")
	}

	// Same content is not an edit.
	if err := f.hub.ReplaceContent(ctx(), "doc1", "brand new"); err != nil {
		t.Fatal(err)
	}
	expectNoMsg(t, c, 50*time.Millisecond)
}

func TestSession_StopNotifiesClients(t *testing.T) {
	f := newFixture(t, "bye", Options{})
	c := mockClient("c1")
	f.join(t, c)

	f.s.Stop()
	recvType(t, c, MsgClosed)
	if c.current() != nil {
		t.Error("client still attached to stopped session")
	}
	if err := f.s.do(ctx(), func() error { return nil }); !errors.Is(err, errSessionClosed) {
		t.Errorf("do after stop: err = %v, want errSessionClosed", err)
	}
}
