// Package editor tracks what one connected editor is doing with its
// document: whether text is selected, and whether an inline action it asked
// for is still waiting on the model.
package editor

import (
	"errors"

	"github.com/alimasry/lumina/ot"
)

var (
	// ErrNoSelection is returned when an action is dispatched with nothing selected.
	ErrNoSelection = errors.New("no text selected")
	// ErrBusy is returned when an action is dispatched while another is in flight.
	ErrBusy = errors.New("an inline action is already in progress")
)

// State is the selection state of the surface. The command menu is shown
// exactly when the state is Selecting.
type State int

const (
	Idle State = iota
	Selecting
)

func (s State) String() string {
	if s == Selecting {
		return "selecting"
	}
	return "idle"
}

// Range is a span of code-point offsets into the document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Empty() bool { return r.End <= r.Start }
func (r Range) Len() int { return r.End - r.Start }

// Request is an inline action that has been dispatched. Token identifies it
// when its result comes back.
type Request struct {
	Token uint64
	Range Range
}

// Status is a snapshot of the surface for the client.
type Status struct {
	State      string `json:"state"`
	Processing bool   `json:"processing"`
	Selection  *Range `json:"selection,omitempty"`
}

// Surface is the state machine of one editor. It is not safe for concurrent
// use; the document session owns it.
type Surface struct {
	state      State
	selection  Range
	processing bool
	token      uint64
}

// State returns the current selection state.
func (s *Surface) State() State { return s.state }

// Processing reports whether an inline action is in flight.
func (s *Surface) Processing() bool { return s.processing }

// Selection returns the live selection; it is only meaningful while Selecting.
func (s *Surface) Selection() Range { return s.selection }

// Select records a new caret range. A non-empty range enters Selecting, a
// collapsed one returns to Idle. Selecting while an action is processing is
// allowed; only dispatching a second action is not.
func (s *Surface) Select(r Range) State {
	if r.Empty() {
		s.state = Idle
		s.selection = Range{}
		return s.state
	}
	s.state = Selecting
	s.selection = r
	return s.state
}

// Begin dispatches an action on the current selection. The surface returns
// to Idle and is marked processing until Finish is called with the token.
func (s *Surface) Begin() (Request, error) {
	if s.processing {
		return Request{}, ErrBusy
	}
	if s.state != Selecting {
		return Request{}, ErrNoSelection
	}
	s.token++
	req := Request{Token: s.token, Range: s.selection}
	s.processing = true
	s.state = Idle
	s.selection = Range{}
	return req, nil
}

// Finish ends the in-flight action identified by token. It returns false,
// and changes nothing, when token is not the action in flight; the caller
// must then discard the result.
func (s *Surface) Finish(token uint64) bool {
	if !s.processing || token != s.token {
		return false
	}
	s.processing = false
	return true
}

// Rebase moves the live selection through an edit made by someone else.
// A selection whose text was deleted collapses back to Idle.
func (s *Surface) Rebase(op ot.Operation) {
	if s.state != Selecting {
		return
	}
	start, end := ot.TransformRange(op, s.selection.Start, s.selection.End)
	s.Select(Range{Start: start, End: end})
}

// Status returns a snapshot for the client.
func (s *Surface) Status() Status {
	st := Status{State: s.state.String(), Processing: s.processing}
	if s.state == Selecting {
		sel := s.selection
		st.Selection = &sel
	}
	return st
}
