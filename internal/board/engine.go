package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/boxgrid/internal/grid"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// Persister is the durable side of a board. Writes are best effort: the
// engine logs failures and carries on with its in-memory state.
type Persister interface {
	// LoadInitialState returns the stored board, or nil when nothing is stored.
	LoadInitialState(ctx context.Context) (*models.Board, error)
	// WriteBox upserts a box. A nil box records a deletion.
	WriteBox(ctx context.Context, id string, box *models.Box) error
	// WriteLayout replaces one breakpoint's sequence.
	WriteLayout(ctx context.Context, bp models.Breakpoint, items []models.LayoutItem) error
}

// Flusher is implemented by persisters with writes still in flight.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Options configures an Engine.
type Options struct {
	Namespace string
	Persister Persister
	IDs       IDGenerator
	Logger    *slog.Logger
	Metrics   *Metrics
	RowHeight int
}

// Engine is the single owner of one namespace's board. All mutations are
// applied to the latest state in call order.
type Engine struct {
	mu          sync.Mutex
	state       State
	version     uint64
	initialized bool

	namespace string
	persister Persister
	ids       IDGenerator
	// retired holds ids deleted since the engine started. New boxes never
	// reuse them.
	retired   map[string]struct{}
	hub       *hub
	logger    *slog.Logger
	metrics   *Metrics
	rowHeight int
}

// NewEngine creates an engine with an empty board. Call Initialize before
// handing it to consumers.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := opts.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Engine{
		state:     EmptyState(),
		namespace: opts.Namespace,
		persister: opts.Persister,
		ids:       ids,
		retired:   make(map[string]struct{}),
		hub:       newHub(),
		logger:    logger.With("component", "board", "namespace", opts.Namespace),
		metrics:   opts.Metrics,
		rowHeight: opts.RowHeight,
	}
}

// Namespace returns the persistence namespace the engine writes to.
func (e *Engine) Namespace() string {
	return e.namespace
}

// Initialize sets the initial board. A non-nil bootstrap is used as is;
// otherwise the board is loaded from the persister. Load failures leave the
// board empty. Only the first call has any effect.
func (e *Engine) Initialize(ctx context.Context, bootstrap *models.Board) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}
	e.initialized = true

	source := "bootstrap"
	board := bootstrap
	if board == nil {
		source = "persister"
		board = e.load(ctx)
	}
	if err := e.applyLocked(Load{Board: board}); err != nil {
		return err
	}
	e.logger.Info("board initialized", "source", source, "boxes", len(e.state.Boxes))
	return nil
}

func (e *Engine) load(ctx context.Context) *models.Board {
	if e.persister == nil {
		return nil
	}
	board, err := e.persister.LoadInitialState(ctx)
	if err != nil {
		e.logger.Warn("initial load failed, starting empty", "error", err)
		return nil
	}
	return board
}

// Dispatch applies a to the current state.
func (e *Engine) Dispatch(a Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(a)
}

// AddBox creates a box of the given kind and returns its id.
func (e *Engine) AddBox(kind models.BoxKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.ids.NewID(e.takenLocked())
	if err := e.applyLocked(AddBox{ID: id, Kind: kind}); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateBox replaces box id with fn applied to its current value. fn must be
// pure. A missing id returns ErrBoxNotFound and changes nothing.
func (e *Engine) UpdateBox(id string, fn func(models.Box) models.Box) error {
	return e.Dispatch(UpdateBox{ID: id, Fn: fn})
}

// RemoveBox deletes box id and every layout record that references it.
func (e *Engine) RemoveBox(id string) error {
	return e.Dispatch(RemoveBox{ID: id})
}

// Relayout replaces the sequence for bp.
func (e *Engine) Relayout(bp models.Breakpoint, items []models.LayoutItem) error {
	return e.Dispatch(Relayout{Breakpoint: bp, Items: items})
}

func (e *Engine) SetEditing(enabled bool) {
	_ = e.Dispatch(SetEditing{Enabled: enabled})
}

func (e *Engine) SetToolbarOpen(open bool) {
	_ = e.Dispatch(SetToolbarOpen{Open: open})
}

// SetBreakpoint records the breakpoint the renderer is currently showing.
func (e *Engine) SetBreakpoint(bp models.Breakpoint) error {
	return e.Dispatch(SetBreakpoint{Breakpoint: bp})
}

// SetViewportWidth resolves width to a breakpoint and makes it current.
func (e *Engine) SetViewportWidth(width int) models.Breakpoint {
	bp := grid.Resolve(width)
	_ = e.Dispatch(SetBreakpoint{Breakpoint: bp})
	return bp
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Boxes returns the current boxes in id order.
func (e *Engine) Boxes() []models.Box {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Boxes.List()
}

// Box returns a copy of one box.
func (e *Engine) Box(id string) (models.Box, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	box, ok := e.state.Boxes[id]
	if !ok {
		return models.Box{}, false
	}
	return box.Clone(), true
}

// Layouts returns a copy of the layout table.
func (e *Engine) Layouts() models.LayoutTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Layouts.Clone()
}

// Board returns a copy of the persisted part of the state.
func (e *Engine) Board() *models.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Board()
}

// GridProps describes the grid for the current breakpoint and mode.
func (e *Engine) GridProps() grid.Props {
	e.mu.Lock()
	defer e.mu.Unlock()
	return grid.NewProps(e.state.Layouts, e.state.Breakpoint, e.state.Editing, e.rowHeight)
}

// Subscribe returns a channel that receives the current snapshot and then a
// snapshot after every change. A slow subscriber only sees the latest one.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, cancel := e.hub.subscribe()
	offer(ch, e.snapshotLocked())
	e.metrics.SubscriberAdded()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancel()
			e.metrics.SubscriberRemoved()
		})
	}
}

// Flush waits for in-flight persistence writes when the persister supports it.
func (e *Engine) Flush(ctx context.Context) error {
	if flusher, ok := e.persister.(Flusher); ok {
		return flusher.Flush(ctx)
	}
	return nil
}

func (e *Engine) applyLocked(a Action) error {
	next, effects, err := Reduce(e.state, a)
	e.metrics.RecordMutation(a.actionName(), err)
	if err != nil {
		return err
	}
	e.state = next
	e.version++
	for _, effect := range effects {
		if effect.Kind == EffectDeleteBox {
			e.retired[effect.BoxID] = struct{}{}
		}
	}
	e.persistLocked(effects)
	e.metrics.SetBoxes(e.namespace, len(e.state.Boxes))
	e.hub.broadcast(e.snapshotLocked())
	return nil
}

// takenLocked returns the ids a new box must not use.
func (e *Engine) takenLocked() models.BoxSet {
	if len(e.retired) == 0 {
		return e.state.Boxes
	}
	taken := make(models.BoxSet, len(e.state.Boxes)+len(e.retired))
	for id, box := range e.state.Boxes {
		taken[id] = box
	}
	for id := range e.retired {
		if _, ok := taken[id]; !ok {
			taken[id] = models.Box{ID: id}
		}
	}
	return taken
}

// persistLocked hands effects to the persister in order. Persisters mirror to
// their local cache synchronously and return before any remote write ends.
func (e *Engine) persistLocked(effects []Effect) {
	if e.persister == nil {
		return
	}
	ctx := context.Background()
	for _, effect := range effects {
		var err error
		var key string
		switch effect.Kind {
		case EffectPutBox:
			key = effect.BoxID
			err = e.persister.WriteBox(ctx, effect.BoxID, effect.Box)
		case EffectDeleteBox:
			key = effect.BoxID
			err = e.persister.WriteBox(ctx, effect.BoxID, nil)
		case EffectPutLayout:
			key = string(effect.Breakpoint)
			err = e.persister.WriteLayout(ctx, effect.Breakpoint, effect.Items)
		}
		if err != nil {
			e.metrics.RecordWriteError(effect.Kind)
			e.logger.Warn("persistence write failed",
				"target", effect.Kind.String(),
				"key", key,
				"error", err,
			)
		}
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Version:     e.version,
		Namespace:   e.namespace,
		Boxes:       e.state.Boxes.List(),
		Layouts:     e.state.Layouts.Clone(),
		Breakpoint:  e.state.Breakpoint,
		Editing:     e.state.Editing,
		ToolbarOpen: e.state.ToolbarOpen,
	}
}
