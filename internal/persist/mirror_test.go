package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// flakyStore wraps a MemoryStore and can fail or stall every call.
type flakyStore struct {
	*MemoryStore
	mu      sync.Mutex
	loadErr error
	putErr  error
	release chan struct{}
	puts    int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore()}
}

func (f *flakyStore) Load(ctx context.Context, namespace string) (*models.Board, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryStore.Load(ctx, namespace)
}

func (f *flakyStore) PutBox(ctx context.Context, namespace string, box models.Box) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.puts++
	f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.PutBox(ctx, namespace, box)
}

func TestMirrorLoadPrecedence(t *testing.T) {
	ctx := context.Background()
	remoteBoard := models.NewBox("remote", models.KindText)
	localBoard := models.NewBox("local", models.KindText)

	tests := []struct {
		name   string
		remote func() Store
		local  func() Store
		want   string
	}{
		{
			name: "remote wins",
			remote: func() Store {
				s := newFlakyStore()
				_ = s.MemoryStore.PutBox(ctx, "ns", remoteBoard)
				return s
			},
			local: func() Store {
				s := NewMemoryStore()
				_ = s.PutBox(ctx, "ns", localBoard)
				return s
			},
			want: "remote",
		},
		{
			name: "remote error falls back to local",
			remote: func() Store {
				s := newFlakyStore()
				s.loadErr = errors.New("unreachable")
				return s
			},
			local: func() Store {
				s := NewMemoryStore()
				_ = s.PutBox(ctx, "ns", localBoard)
				return s
			},
			want: "local",
		},
		{
			name:   "remote empty falls back to local",
			remote: func() Store { return newFlakyStore() },
			local: func() Store {
				s := NewMemoryStore()
				_ = s.PutBox(ctx, "ns", localBoard)
				return s
			},
			want: "local",
		},
		{
			name:   "nothing stored",
			remote: func() Store { return newFlakyStore() },
			local:  func() Store { return NewMemoryStore() },
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirror := NewMirror(MirrorOptions{Namespace: "ns", Local: tt.local(), Remote: tt.remote()})
			loaded, err := mirror.LoadInitialState(ctx)
			if err != nil {
				t.Fatalf("LoadInitialState() error = %v", err)
			}
			if tt.want == "" {
				if loaded != nil {
					t.Fatalf("expected nil board, got %+v", loaded)
				}
				return
			}
			if _, ok := loaded.Boxes[tt.want]; !ok || len(loaded.Boxes) != 1 {
				t.Fatalf("expected board from %s, got %+v", tt.want, loaded.Boxes)
			}
		})
	}
}

func TestMirrorWritesLocalSynchronously(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryStore()
	remote := newFlakyStore()
	remote.release = make(chan struct{})
	mirror := NewMirror(MirrorOptions{Namespace: "ns", Local: local, Remote: remote})

	box := models.NewBox("a", models.KindText)
	if err := mirror.WriteBox(ctx, "a", &box); err != nil {
		t.Fatalf("WriteBox() error = %v", err)
	}

	stored, err := local.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("local Load() error = %v", err)
	}
	if _, ok := stored.Boxes["a"]; !ok {
		t.Fatalf("expected local cache to hold the box before WriteBox returns")
	}
	if _, err := remote.MemoryStore.Load(ctx, "ns"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected remote write to still be pending")
	}

	close(remote.release)
	flushCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := mirror.Flush(flushCtx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := remote.MemoryStore.Load(ctx, "ns"); err != nil {
		t.Fatalf("expected remote write after flush, got %v", err)
	}
}

func TestMirrorRemoteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	remote := newFlakyStore()
	remote.putErr = errors.New("503")
	mirror := NewMirror(MirrorOptions{Namespace: "ns", Local: NewMemoryStore(), Remote: remote})

	box := models.NewBox("a", models.KindText)
	if err := mirror.WriteBox(ctx, "a", &box); err != nil {
		t.Fatalf("WriteBox() error = %v", err)
	}
	if err := mirror.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.puts != 1 {
		t.Fatalf("expected a single remote attempt, got %d", remote.puts)
	}
}

func TestMirrorRemoteWriteTimesOut(t *testing.T) {
	remote := newFlakyStore()
	remote.release = make(chan struct{})
	mirror := NewMirror(MirrorOptions{Namespace: "ns", Remote: remote, WriteTimeout: 20 * time.Millisecond})

	box := models.NewBox("a", models.KindText)
	if err := mirror.WriteBox(context.Background(), "a", &box); err != nil {
		t.Fatalf("WriteBox() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := mirror.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestMirrorBacksEngine(t *testing.T) {
	ctx := context.Background()
	local := newSQLiteForTest(t)
	remote := NewMemoryStore()

	first := board.NewEngine(board.Options{
		Namespace: "alice",
		Persister: NewMirror(MirrorOptions{Namespace: "alice", Local: local, Remote: remote}),
	})
	if err := first.Initialize(ctx, nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	keep, err := first.AddBox(models.KindMarkdown)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	drop, err := first.AddBox(models.KindImage)
	if err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	if err := first.Relayout(models.BreakpointMD, []models.LayoutItem{{BoxID: keep, W: 2, H: 2}, {BoxID: drop, X: 2, W: 1, H: 1}}); err != nil {
		t.Fatalf("Relayout() error = %v", err)
	}
	if err := first.RemoveBox(drop); err != nil {
		t.Fatalf("RemoveBox() error = %v", err)
	}
	if err := first.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	for name, store := range map[string]Store{"local": local, "remote": remote} {
		second := board.NewEngine(board.Options{
			Namespace: "alice",
			Persister: NewMirror(MirrorOptions{Namespace: "alice", Local: store}),
		})
		if err := second.Initialize(ctx, nil); err != nil {
			t.Fatalf("%s: Initialize() error = %v", name, err)
		}
		boxes := second.Boxes()
		if len(boxes) != 1 || boxes[0].ID != keep {
			t.Fatalf("%s: expected only %s, got %+v", name, keep, boxes)
		}
		layouts := second.Layouts()
		if len(layouts[models.BreakpointMD]) != 1 || len(layouts[models.BreakpointXXS]) != 1 {
			t.Fatalf("%s: unexpected layouts %+v", name, layouts)
		}
	}
}
