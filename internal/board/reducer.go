package board

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/boxgrid/internal/grid"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// Action is one state transition understood by Reduce.
type Action interface {
	actionName() string
}

// AddBox inserts a new box with kind defaults. ID must already be unique.
type AddBox struct {
	ID   string
	Kind models.BoxKind
}

// UpdateBox replaces a box with Fn applied to its current value.
type UpdateBox struct {
	ID string
	Fn func(models.Box) models.Box
}

// RemoveBox deletes a box and every layout record that references it.
type RemoveBox struct {
	ID string
}

// Relayout replaces one breakpoint's sequence wholesale.
type Relayout struct {
	Breakpoint models.Breakpoint
	Items      []models.LayoutItem
}

type SetEditing struct{ Enabled bool }

type SetToolbarOpen struct{ Open bool }

type SetBreakpoint struct{ Breakpoint models.Breakpoint }

// Load replaces the persisted part of the state with a loaded board.
type Load struct{ Board *models.Board }

func (AddBox) actionName() string         { return "add_box" }
func (UpdateBox) actionName() string      { return "update_box" }
func (RemoveBox) actionName() string      { return "remove_box" }
func (Relayout) actionName() string       { return "relayout" }
func (SetEditing) actionName() string     { return "set_editing" }
func (SetToolbarOpen) actionName() string { return "set_toolbar_open" }
func (SetBreakpoint) actionName() string  { return "set_breakpoint" }
func (Load) actionName() string           { return "load" }

// EffectKind names a persistence write derived from a transition.
type EffectKind int

const (
	EffectPutBox EffectKind = iota
	EffectDeleteBox
	EffectPutLayout
)

func (k EffectKind) String() string {
	switch k {
	case EffectPutBox:
		return "put_box"
	case EffectDeleteBox:
		return "delete_box"
	case EffectPutLayout:
		return "put_layout"
	default:
		return "unknown"
	}
}

// Effect is a persistence write the Engine schedules after a transition.
type Effect struct {
	Kind       EffectKind
	BoxID      string
	Box        *models.Box
	Breakpoint models.Breakpoint
	Items      []models.LayoutItem
}

// Reduce computes the state that follows prev under a, together with the
// writes needed to persist it. prev is never modified. On error the returned
// state is prev and there are no effects.
func Reduce(prev State, a Action) (State, []Effect, error) {
	switch action := a.(type) {
	case AddBox:
		return reduceAdd(prev, action)
	case UpdateBox:
		return reduceUpdate(prev, action)
	case RemoveBox:
		return reduceRemove(prev, action)
	case Relayout:
		return reduceRelayout(prev, action)
	case SetEditing:
		next := prev
		next.Editing = action.Enabled
		return next, nil, nil
	case SetToolbarOpen:
		next := prev
		next.ToolbarOpen = action.Open
		return next, nil, nil
	case SetBreakpoint:
		if !action.Breakpoint.Valid() {
			return prev, nil, fmt.Errorf("%w: %q", ErrUnknownBreakpoint, action.Breakpoint)
		}
		next := prev
		next.Breakpoint = action.Breakpoint
		return next, nil, nil
	case Load:
		next := prev
		board := NormalizeBoard(action.Board)
		next.Boxes = board.Boxes
		next.Layouts = board.Layouts
		return next, nil, nil
	default:
		return prev, nil, fmt.Errorf("board: unsupported action %T", a)
	}
}

func reduceAdd(prev State, a AddBox) (State, []Effect, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return prev, nil, fmt.Errorf("board: box id is required")
	}
	if !a.Kind.Valid() {
		return prev, nil, fmt.Errorf("%w: %q", ErrInvalidKind, a.Kind)
	}
	if _, exists := prev.Boxes[id]; exists {
		return prev, nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	box := models.NewBox(id, a.Kind)
	seq := prev.Layouts[models.SmallestBreakpoint]
	items := make([]models.LayoutItem, 0, len(seq)+1)
	items = append(items, seq...)
	items = append(items, models.LayoutItem{BoxID: id, X: 0, Y: 0, W: 1, H: 1})

	next := prev
	next.Boxes = withBox(prev.Boxes, id, &box)
	next.Layouts = withSequence(prev.Layouts, models.SmallestBreakpoint, items)

	stored := box.Clone()
	return next, []Effect{
		{Kind: EffectPutBox, BoxID: id, Box: &stored},
		{Kind: EffectPutLayout, Breakpoint: models.SmallestBreakpoint, Items: append([]models.LayoutItem{}, items...)},
	}, nil
}

func reduceUpdate(prev State, a UpdateBox) (State, []Effect, error) {
	current, ok := prev.Boxes[a.ID]
	if !ok {
		return prev, nil, fmt.Errorf("%w: %s", ErrBoxNotFound, a.ID)
	}
	if a.Fn == nil {
		return prev, nil, nil
	}
	updated := a.Fn(current.Clone())
	updated.ID = a.ID
	if !updated.Kind.Valid() {
		return prev, nil, fmt.Errorf("%w: %q", ErrInvalidKind, updated.Kind)
	}

	next := prev
	next.Boxes = withBox(prev.Boxes, a.ID, &updated)

	stored := updated.Clone()
	return next, []Effect{{Kind: EffectPutBox, BoxID: a.ID, Box: &stored}}, nil
}

func reduceRemove(prev State, a RemoveBox) (State, []Effect, error) {
	if _, ok := prev.Boxes[a.ID]; !ok {
		return prev, nil, fmt.Errorf("%w: %s", ErrBoxNotFound, a.ID)
	}

	next := prev
	next.Boxes = withBox(prev.Boxes, a.ID, nil)
	effects := []Effect{{Kind: EffectDeleteBox, BoxID: a.ID}}

	layouts := prev.Layouts
	for _, bp := range models.Breakpoints {
		seq := layouts[bp]
		kept := make([]models.LayoutItem, 0, len(seq))
		for _, item := range seq {
			if item.BoxID != a.ID {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(seq) {
			continue
		}
		layouts = withSequence(layouts, bp, kept)
		effects = append(effects, Effect{Kind: EffectPutLayout, Breakpoint: bp, Items: append([]models.LayoutItem{}, kept...)})
	}
	next.Layouts = layouts
	return next, effects, nil
}

func reduceRelayout(prev State, a Relayout) (State, []Effect, error) {
	if !a.Breakpoint.Valid() {
		return prev, nil, fmt.Errorf("%w: %q", ErrUnknownBreakpoint, a.Breakpoint)
	}
	items := NormalizeSequence(a.Items, prev.Boxes, grid.Columns(a.Breakpoint))

	next := prev
	next.Layouts = withSequence(prev.Layouts, a.Breakpoint, items)
	return next, []Effect{{Kind: EffectPutLayout, Breakpoint: a.Breakpoint, Items: append([]models.LayoutItem{}, items...)}}, nil
}

// NormalizeSequence drops records whose box id is empty or unknown, keeps the
// first record per box id and clamps each record into cols columns.
func NormalizeSequence(items []models.LayoutItem, boxes models.BoxSet, cols int) []models.LayoutItem {
	out := make([]models.LayoutItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item.BoxID = strings.TrimSpace(item.BoxID)
		if item.BoxID == "" {
			continue
		}
		if _, ok := boxes[item.BoxID]; !ok {
			continue
		}
		if _, dup := seen[item.BoxID]; dup {
			continue
		}
		seen[item.BoxID] = struct{}{}
		out = append(out, grid.Clamp(item, cols))
	}
	return out
}

// NormalizeBoard returns a deep copy of b with every breakpoint present and
// with duplicate or dangling layout records removed. A nil board is empty.
func NormalizeBoard(b *models.Board) *models.Board {
	if b == nil {
		return EmptyState().Board()
	}
	boxes := models.BoxSet{}
	for key, box := range b.Boxes {
		id := strings.TrimSpace(box.ID)
		if id == "" {
			id = strings.TrimSpace(key)
		}
		if id == "" {
			continue
		}
		box = box.Clone()
		box.ID = id
		boxes[id] = box
	}
	layouts := models.NewLayoutTable()
	for _, bp := range models.Breakpoints {
		layouts[bp] = dedupe(b.Layouts[bp], boxes)
	}
	return &models.Board{Boxes: boxes, Layouts: layouts}
}

func dedupe(items []models.LayoutItem, boxes models.BoxSet) []models.LayoutItem {
	out := make([]models.LayoutItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := boxes[item.BoxID]; !ok {
			continue
		}
		if _, dup := seen[item.BoxID]; dup {
			continue
		}
		seen[item.BoxID] = struct{}{}
		out = append(out, item)
	}
	return out
}
