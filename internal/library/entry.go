// Package library tracks the files a user has dropped and where each one is
// in its analysis lifecycle.
package library

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status change would move an entry
// backwards or out of a terminal phase.
var ErrIllegalTransition = errors.New("illegal status transition")

// ID identifies an entry. Allocated by Registry, never reused.
type ID uint64

// Phase is the lifecycle position of an entry.
type Phase int

const (
	Pending   Phase = iota // Registered, analysis not started
	Analyzing              // Analysis dispatched
	Analyzed               // Terminal: outcome attached
	Failed                 // Terminal: error attached
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Analyzing:
		return "analyzing"
	case Analyzed:
		return "analyzed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == Analyzed || p == Failed
}

// Status is the phase plus whatever the analyzer handed back.
// Outcome is opaque here; only the presentation layer looks inside.
type Status struct {
	Phase   Phase
	Outcome any
	Err     error
}

// Entry is one tracked media file.
type Entry struct {
	ID     ID
	Path   string
	Status Status
}

// canMove is the whole state machine. Pending may complete directly so a
// completion that races the start mark is still accepted.
func canMove(from, to Phase) bool {
	switch from {
	case Pending:
		return to == Analyzing || to == Analyzed || to == Failed
	case Analyzing:
		return to == Analyzed || to == Failed
	default:
		return false
	}
}

func (e *Entry) moveTo(to Phase) error {
	if !canMove(e.Status.Phase, to) {
		return fmt.Errorf("entry %d %s -> %s: %w", e.ID, e.Status.Phase, to, ErrIllegalTransition)
	}
	e.Status.Phase = to
	return nil
}

// start marks the entry as dispatched.
func (e *Entry) start() error {
	return e.moveTo(Analyzing)
}

// finish applies an analysis result. A non-nil err wins over outcome.
func (e *Entry) finish(outcome any, err error) error {
	if err != nil {
		if mErr := e.moveTo(Failed); mErr != nil {
			return mErr
		}
		e.Status.Err = err
		return nil
	}
	if mErr := e.moveTo(Analyzed); mErr != nil {
		return mErr
	}
	e.Status.Outcome = outcome
	return nil
}
