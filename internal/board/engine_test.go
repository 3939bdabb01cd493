package board

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

type recordingPersister struct {
	mu       sync.Mutex
	board    *models.Board
	loadErr  error
	writeErr error
	boxes    []string
	deleted  []string
	layouts  []models.Breakpoint
}

func (p *recordingPersister) LoadInitialState(ctx context.Context) (*models.Board, error) {
	return p.board, p.loadErr
}

func (p *recordingPersister) WriteBox(ctx context.Context, id string, box *models.Box) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if box == nil {
		p.deleted = append(p.deleted, id)
	} else {
		p.boxes = append(p.boxes, id)
	}
	return p.writeErr
}

func (p *recordingPersister) WriteLayout(ctx context.Context, bp models.Breakpoint, items []models.LayoutItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.layouts = append(p.layouts, bp)
	return p.writeErr
}

func newTestEngine(t *testing.T, p Persister) *Engine {
	t.Helper()
	engine := NewEngine(Options{Namespace: "test", Persister: p})
	if err := engine.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return engine
}

func TestEngineEndToEnd(t *testing.T) {
	persister := &recordingPersister{}
	engine := newTestEngine(t, persister)

	id, err := engine.AddBox(models.KindHeading)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	boxes := engine.Boxes()
	if len(boxes) != 1 || boxes[0].Kind != models.KindHeading {
		t.Fatalf("expected one heading box, got %+v", boxes)
	}
	if boxes[0].Text == nil || boxes[0].Text.Align != "left" || boxes[0].Text.Content != "Heading" {
		t.Fatalf("unexpected heading defaults %+v", boxes[0].Text)
	}
	if _, ok := engine.Layouts().Find(models.BreakpointXXS, id); !ok {
		t.Fatalf("expected xxs record for new box")
	}

	if err := engine.RemoveBox(id); err != nil {
		t.Fatalf("RemoveBox() error = %v", err)
	}
	if len(engine.Boxes()) != 0 {
		t.Fatalf("expected empty box collection")
	}
	if len(engine.Layouts()[models.BreakpointXXS]) != 0 {
		t.Fatalf("expected empty xxs sequence")
	}

	persister.mu.Lock()
	defer persister.mu.Unlock()
	if len(persister.boxes) != 1 || len(persister.deleted) != 1 || persister.deleted[0] != id {
		t.Fatalf("unexpected box writes %v / %v", persister.boxes, persister.deleted)
	}
	if len(persister.layouts) != 2 {
		t.Fatalf("expected two xxs layout writes, got %v", persister.layouts)
	}
}

func TestEngineConcurrentAddsAreUnique(t *testing.T) {
	for _, ids := range []IDGenerator{UUIDGenerator{}, SequenceGenerator{}} {
		engine := NewEngine(Options{IDs: ids})
		if err := engine.Initialize(context.Background(), nil); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := engine.AddBox(models.KindText); err != nil {
					t.Errorf("AddBox() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if got := len(engine.Boxes()); got != 50 {
			t.Fatalf("%T: expected 50 boxes, got %d", ids, got)
		}
		if got := len(engine.Layouts()[models.BreakpointXXS]); got != 50 {
			t.Fatalf("%T: expected 50 xxs records, got %d", ids, got)
		}
	}
}

func TestEngineLoadFailureStartsEmpty(t *testing.T) {
	engine := newTestEngine(t, &recordingPersister{loadErr: errors.New("boom")})
	if len(engine.Boxes()) != 0 {
		t.Fatalf("expected empty board after load failure")
	}
	if len(engine.Layouts()) != len(models.Breakpoints) {
		t.Fatalf("expected every breakpoint to be present")
	}
}

func TestEngineNormalizesMalformedLoad(t *testing.T) {
	var board models.Board
	data := `{"boxes":[{"id":"a","type":"text"},{"type":"image"}],"layouts":{"xxs":[{"i":"a","x":0,"y":0,"w":1,"h":1}]}}`
	if err := json.Unmarshal([]byte(data), &board); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	engine := newTestEngine(t, &recordingPersister{board: &board})

	boxes := engine.Boxes()
	if len(boxes) != 1 || boxes[0].ID != "a" {
		t.Fatalf("expected only box a, got %+v", boxes)
	}
}

func TestEngineInitializeOnce(t *testing.T) {
	engine := newTestEngine(t, nil)
	if err := engine.Initialize(context.Background(), nil); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestEngineBootstrapSkipsPersisterLoad(t *testing.T) {
	persister := &recordingPersister{board: &models.Board{Boxes: models.BoxSet{"stored": {ID: "stored", Kind: models.KindText}}}}
	engine := NewEngine(Options{Persister: persister})
	bootstrap := &models.Board{Boxes: models.BoxSet{"boot": {ID: "boot", Kind: models.KindMarkdown}}}
	if err := engine.Initialize(context.Background(), bootstrap); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	boxes := engine.Boxes()
	if len(boxes) != 1 || boxes[0].ID != "boot" {
		t.Fatalf("expected bootstrap board, got %+v", boxes)
	}
}

func TestEngineWriteFailuresDoNotSurface(t *testing.T) {
	engine := newTestEngine(t, &recordingPersister{writeErr: errors.New("disk full")})
	id, err := engine.AddBox(models.KindText)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	if err := engine.UpdateBox(id, SetTextContent("still here")); err != nil {
		t.Fatalf("UpdateBox() error = %v", err)
	}
	box, ok := engine.Box(id)
	if !ok || box.Text.Content != "still here" {
		t.Fatalf("expected in-memory state to keep the edit, got %+v", box)
	}
}

func TestEngineMissingIDSkipsPersistence(t *testing.T) {
	persister := &recordingPersister{}
	engine := newTestEngine(t, persister)
	if err := engine.UpdateBox("nope", SetTextColor("red")); !errors.Is(err, ErrBoxNotFound) {
		t.Fatalf("expected ErrBoxNotFound, got %v", err)
	}
	if err := engine.RemoveBox("nope"); !errors.Is(err, ErrBoxNotFound) {
		t.Fatalf("expected ErrBoxNotFound, got %v", err)
	}
	persister.mu.Lock()
	defer persister.mu.Unlock()
	if len(persister.boxes)+len(persister.deleted)+len(persister.layouts) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestEngineSubscribeReceivesLatest(t *testing.T) {
	engine := newTestEngine(t, nil)
	stream, cancel := engine.Subscribe()
	defer cancel()

	select {
	case snap := <-stream:
		if len(snap.Boxes) != 0 {
			t.Fatalf("expected initial empty snapshot")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected initial snapshot")
	}

	if _, err := engine.AddBox(models.KindText); err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	engine.SetEditing(true)

	select {
	case snap := <-stream:
		if !snap.Editing || len(snap.Boxes) != 1 {
			t.Fatalf("expected latest snapshot, got %+v", snap)
		}
		if snap.Version < 2 {
			t.Fatalf("expected version to advance, got %d", snap.Version)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected snapshot after mutation")
	}
}

func TestEngineViewportAndGridProps(t *testing.T) {
	engine := newTestEngine(t, nil)
	if bp := engine.SetViewportWidth(860); bp != models.BreakpointMD {
		t.Fatalf("SetViewportWidth(860) = %s", bp)
	}
	if bp := engine.SetViewportWidth(859); bp != models.BreakpointSM {
		t.Fatalf("SetViewportWidth(859) = %s", bp)
	}
	engine.SetEditing(true)
	props := engine.GridProps()
	if props.Breakpoint != models.BreakpointSM || !props.Draggable {
		t.Fatalf("unexpected props %+v", props)
	}
	if err := engine.SetBreakpoint("xxl"); !errors.Is(err, ErrUnknownBreakpoint) {
		t.Fatalf("expected ErrUnknownBreakpoint, got %v", err)
	}
}

func TestEngineSnapshotIsDetached(t *testing.T) {
	engine := newTestEngine(t, nil)
	id, err := engine.AddBox(models.KindText)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	snap := engine.Snapshot()
	snap.Boxes[0].Text.Content = "mutated"
	snap.Layouts[models.BreakpointXXS][0].W = 4

	box, _ := engine.Box(id)
	if box.Text.Content != "Text" {
		t.Fatalf("expected engine box to be unaffected")
	}
	if item, _ := engine.Layouts().Find(models.BreakpointXXS, id); item.W != 1 {
		t.Fatalf("expected engine layout to be unaffected")
	}
}

func TestEngineDoesNotReuseRemovedSequenceIDs(t *testing.T) {
	engine := NewEngine(Options{IDs: SequenceGenerator{}, Persister: &recordingPersister{}})
	if err := engine.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	var last string
	for i := 0; i < 3; i++ {
		id, err := engine.AddBox(models.KindText)
		if err != nil {
			t.Fatalf("AddBox() error = %v", err)
		}
		last = id
	}
	if last != "3" {
		t.Fatalf("third id = %q, want 3", last)
	}
	if err := engine.RemoveBox("3"); err != nil {
		t.Fatalf("RemoveBox() error = %v", err)
	}
	id, err := engine.AddBox(models.KindText)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	if id != "4" {
		t.Fatalf("id after removal = %q, want 4", id)
	}
	if got := len(engine.Boxes()); got != 3 {
		t.Fatalf("expected 3 boxes, got %d", got)
	}
}
