// Package kanban implements the application pipeline a tracked grant moves through.
package kanban

import (
	"errors"
	"fmt"

	"github.com/david/grantai/internal/models"
)

var (
	ErrUnknownStatus = errors.New("unknown status")
	ErrNotAdjacent   = errors.New("target is not adjacent to current status")
	ErrTerminal      = errors.New("cannot advance past a terminal status")
	ErrAtStart       = errors.New("already at the first status")
)

// Next returns the status after s. The forward control stops at
// under_review -> awarded; awarded and rejected do not advance.
func Next(s models.Status) (models.Status, bool) {
	i := s.Index()
	if i < 0 || i >= len(models.Statuses)-2 {
		return s, false
	}
	return models.Statuses[i+1], true
}

// Prev returns the status before s. Only discovered has no predecessor.
func Prev(s models.Status) (models.Status, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return models.Statuses[i-1], true
}

type Kind int

const (
	// Sequential moves one step along the pipeline.
	Sequential Kind = iota
	// Direct sets any status, as drag and drop does.
	Direct
)

func (k Kind) String() string {
	switch k {
	case Sequential:
		return "sequential"
	case Direct:
		return "direct"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Transition is a requested status change.
type Transition struct {
	Kind   Kind
	Target models.Status
}

// Forward builds the Sequential transition the "next" control issues from s.
func Forward(s models.Status) (Transition, error) {
	if !s.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	next, ok := Next(s)
	if !ok {
		return Transition{}, ErrTerminal
	}
	return Transition{Kind: Sequential, Target: next}, nil
}

// Backward builds the Sequential transition the "previous" control issues from s.
func Backward(s models.Status) (Transition, error) {
	if !s.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	prev, ok := Prev(s)
	if !ok {
		return Transition{}, ErrAtStart
	}
	return Transition{Kind: Sequential, Target: prev}, nil
}

// To builds a Direct transition.
func To(target models.Status) Transition {
	return Transition{Kind: Direct, Target: target}
}

// Apply validates t against the current status and returns the new status.
func (t Transition) Apply(current models.Status) (models.Status, error) {
	if !t.Target.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownStatus, t.Target)
	}
	switch t.Kind {
	case Direct:
		return t.Target, nil
	case Sequential:
		from := current.Index()
		if from < 0 {
			return current, fmt.Errorf("%w: %q", ErrUnknownStatus, current)
		}
		to := t.Target.Index()
		switch to - from {
		case 1:
			if next, ok := Next(current); !ok || next != t.Target {
				return current, ErrTerminal
			}
			return t.Target, nil
		case -1:
			return t.Target, nil
		}
		return current, fmt.Errorf("%w: %s -> %s", ErrNotAdjacent, current, t.Target)
	}
	return current, fmt.Errorf("unsupported transition kind %v", t.Kind)
}
