// Package board owns the live box collection and the responsive layout table
// for one persistence namespace. Every change goes through a pure reducer;
// the Engine serializes those changes and turns the reducer's effects into
// persistence writes.
package board

import (
	"errors"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

var (
	ErrBoxNotFound        = errors.New("board: box not found")
	ErrInvalidKind        = errors.New("board: invalid box kind")
	ErrUnknownBreakpoint  = errors.New("board: unknown breakpoint")
	ErrDuplicateID        = errors.New("board: duplicate box id")
	ErrAlreadyInitialized = errors.New("board: engine already initialized")
)

// State is the authoritative in-memory board plus session UI flags.
//
// State values are never modified in place. The reducer builds new maps and
// slices for whatever it changes and shares the rest with the previous value.
type State struct {
	Boxes       models.BoxSet
	Layouts     models.LayoutTable
	Breakpoint  models.Breakpoint
	Editing     bool
	ToolbarOpen bool
}

// EmptyState returns a state with no boxes and an empty sequence for every
// breakpoint.
func EmptyState() State {
	return State{
		Boxes:      models.BoxSet{},
		Layouts:    models.NewLayoutTable(),
		Breakpoint: models.SmallestBreakpoint,
	}
}

// Board returns a deep copy of the persisted part of the state.
func (s State) Board() *models.Board {
	return &models.Board{Boxes: s.Boxes.Clone(), Layouts: s.Layouts.Clone()}
}

// withBox returns a copy of boxes with id set to box, or removed when box is nil.
func withBox(boxes models.BoxSet, id string, box *models.Box) models.BoxSet {
	out := make(models.BoxSet, len(boxes)+1)
	for key, value := range boxes {
		out[key] = value
	}
	if box == nil {
		delete(out, id)
	} else {
		out[id] = *box
	}
	return out
}

// withSequence returns a table sharing every sequence with t except bp.
func withSequence(t models.LayoutTable, bp models.Breakpoint, items []models.LayoutItem) models.LayoutTable {
	out := make(models.LayoutTable, len(models.Breakpoints))
	for _, key := range models.Breakpoints {
		out[key] = t[key]
		if out[key] == nil {
			out[key] = []models.LayoutItem{}
		}
	}
	out[bp] = items
	return out
}
