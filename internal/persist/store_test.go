package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

func newSQLiteForTest(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "boxgrid.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSQLiteForTest(t) },
		"s3":     func(t *testing.T) Store { return newS3Store(newFakeS3(), "bucket", "boards") },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			if _, err := store.Load(ctx, "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load() error = %v, want ErrNotFound", err)
			}

			box := models.NewBox("a", models.KindText)
			if err := store.PutBox(ctx, "alice", box); err != nil {
				t.Fatalf("PutBox() error = %v", err)
			}
			if err := store.PutBox(ctx, "alice", models.NewBox("b", models.KindImage)); err != nil {
				t.Fatalf("PutBox() error = %v", err)
			}
			items := []models.LayoutItem{{BoxID: "a", X: 1, Y: 2, W: 3, H: 4}}
			if err := store.PutLayout(ctx, "alice", models.BreakpointLG, items); err != nil {
				t.Fatalf("PutLayout() error = %v", err)
			}
			if err := store.DeleteBox(ctx, "alice", "b"); err != nil {
				t.Fatalf("DeleteBox() error = %v", err)
			}

			board, err := store.Load(ctx, "alice")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(board.Boxes) != 1 || board.Boxes["a"].Text.Content != "Text" {
				t.Fatalf("unexpected boxes %+v", board.Boxes)
			}
			if got, ok := board.Layouts.Find(models.BreakpointLG, "a"); !ok || got != items[0] {
				t.Fatalf("unexpected lg layout %+v", board.Layouts[models.BreakpointLG])
			}
			if len(board.Layouts) != len(models.Breakpoints) {
				t.Fatalf("expected every breakpoint to be present")
			}

			if _, err := store.Load(ctx, "bob"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected namespaces to be isolated, got %v", err)
			}
		})
	}
}

func TestSQLiteTombstonesArePurged(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteForTest(t)

	if err := store.PutBox(ctx, "ns", models.NewBox("a", models.KindText)); err != nil {
		t.Fatalf("PutBox() error = %v", err)
	}
	if err := store.DeleteBox(ctx, "ns", "a"); err != nil {
		t.Fatalf("DeleteBox() error = %v", err)
	}

	board, err := store.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(board.Boxes) != 0 {
		t.Fatalf("expected tombstoned box to be hidden")
	}

	n, err := store.PurgeTombstones(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeTombstones() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged tombstone, got %d", n)
	}
	if _, err := store.Load(ctx, "ns"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected namespace to be empty after purge, got %v", err)
	}
}

func TestSQLitePutRevivesTombstone(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteForTest(t)

	if err := store.DeleteBox(ctx, "ns", "a"); err != nil {
		t.Fatalf("DeleteBox() error = %v", err)
	}
	if err := store.PutBox(ctx, "ns", models.NewBox("a", models.KindHeading)); err != nil {
		t.Fatalf("PutBox() error = %v", err)
	}
	board, err := store.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if board.Boxes["a"].Kind != models.KindHeading {
		t.Fatalf("expected box to be restored, got %+v", board.Boxes)
	}
	namespaces, err := store.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	if len(namespaces) != 1 || namespaces[0] != "ns" {
		t.Fatalf("Namespaces() = %v", namespaces)
	}
}

func TestNamespaceFor(t *testing.T) {
	tests := []struct {
		name     string
		user     *models.User
		fallback string
		want     string
	}{
		{"anonymous", nil, "", DefaultNamespace},
		{"anonymous custom fallback", nil, "shared", "shared"},
		{"user", &models.User{ID: "u-1"}, "shared", "u-1"},
		{"user without id", &models.User{Email: "a@b.c"}, "", DefaultNamespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NamespaceFor(tt.user, tt.fallback); got != tt.want {
				t.Fatalf("NamespaceFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenRemote(t *testing.T) {
	ctx := context.Background()
	store, err := OpenRemote(ctx, RemoteOptions{Driver: "none"})
	if err != nil || store != nil {
		t.Fatalf("OpenRemote(none) = %v, %v", store, err)
	}
	store, err = OpenRemote(ctx, RemoteOptions{Driver: "memory"})
	if err != nil || store == nil {
		t.Fatalf("OpenRemote(memory) = %v, %v", store, err)
	}
	if _, err := OpenRemote(ctx, RemoteOptions{Driver: "postgres"}); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
	if _, err := OpenRemote(ctx, RemoteOptions{Driver: "redis"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
