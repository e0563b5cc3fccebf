package ot

import "fmt"

// Engine abstracts the OT algorithm used to rebase work done against an
// older revision of a document onto its current state.
type Engine interface {
	// TransformIncoming transforms an operation created at the given revision
	// against all operations in the history since that revision.
	// Returns the operation transformed to apply at the current state.
	TransformIncoming(op Operation, revision int, history []Operation) (Operation, error)

	// TransformRange maps the span [start, end) taken at the given revision
	// onto the current state.
	TransformRange(start, end, revision int, history []Operation) (int, int, error)
}

// JupiterEngine implements the Jupiter OT algorithm.
// It sequentially transforms the incoming operation against each
// operation recorded since the sender's revision.
type JupiterEngine struct{}

func checkRevision(revision int, history []Operation) error {
	if revision < 0 || revision > len(history) {
		return fmt.Errorf("invalid revision %d (history len %d)", revision, len(history))
	}
	return nil
}

func (e *JupiterEngine) TransformIncoming(op Operation, revision int, history []Operation) (Operation, error) {
	if err := checkRevision(revision, history); err != nil {
		return Operation{}, err
	}

	transformed := op
	for i := revision; i < len(history); i++ {
		var err error
		transformed, _, err = Transform(transformed, history[i])
		if err != nil {
			return Operation{}, fmt.Errorf("transform against history[%d]: %w", i, err)
		}
	}
	return transformed, nil
}

func (e *JupiterEngine) TransformRange(start, end, revision int, history []Operation) (int, int, error) {
	if err := checkRevision(revision, history); err != nil {
		return 0, 0, err
	}
	for i := revision; i < len(history); i++ {
		start, end = TransformRange(history[i], start, end)
	}
	return start, end, nil
}
