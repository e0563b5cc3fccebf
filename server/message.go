package server

import (
	"encoding/json"

	"github.com/alimasry/lumina/editor"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/suggest"
)

// Message types exchanged over WebSocket.
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
	MsgOp    = "op"
	MsgAck   = "ack"
	MsgDoc   = "doc"
	MsgError = "error"

	MsgSelect  = "select"
	MsgAction  = "action"
	MsgApply   = "apply"
	MsgDismiss = "dismiss"

	MsgState       = "state"
	MsgSuggestions = "suggestions"
	MsgClosed      = "closed"
)

// ClientMessage is a message from client to server. Start and End are
// code-point offsets valid at Revision.
type ClientMessage struct {
	Type         string       `json:"type"`
	DocID        string       `json:"docId,omitempty"`
	Language     string       `json:"language,omitempty"`
	Revision     int          `json:"revision"`
	Op           ot.Operation `json:"op,omitempty"`
	Start        int          `json:"start,omitempty"`
	End          int          `json:"end,omitempty"`
	Kind         string       `json:"kind,omitempty"`
	Instruction  string       `json:"instruction,omitempty"`
	SuggestionID string       `json:"suggestionId,omitempty"`
}

// ServerMessage is a message from server to client. State messages carry
// the editor status inline.
type ServerMessage struct {
	Type     string       `json:"type"`
	DocID    string       `json:"docId,omitempty"`
	Title    string       `json:"title,omitempty"`
	Content  string       `json:"content"`
	Revision int          `json:"revision"`
	Op       ot.Operation `json:"op,omitempty"`
	ClientID string       `json:"clientId,omitempty"`
	Name     string       `json:"name,omitempty"`
	Color    string       `json:"color,omitempty"`
	Message  string       `json:"message,omitempty"`
	Clients  []ClientInfo `json:"clients,omitempty"`

	*editor.Status
	Suggestions []suggest.Suggestion `json:"suggestions,omitzero"`
}

// ClientInfo describes a connected user.
type ClientInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
