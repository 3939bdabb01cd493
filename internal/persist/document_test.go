package persist

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     string
		wantBoxes   int
		wantRecords int
	}{
		{
			name:        "mapping",
			input:       `{"boxes":{"a":{"id":"a","type":"text"}},"layouts":{"xxs":[{"i":"a","x":0,"y":0,"w":1,"h":1}]}}`,
			wantBoxes:   1,
			wantRecords: 1,
		},
		{
			name:      "sequence of boxes",
			input:     `{"boxes":[{"id":1,"type":"heading"},{"type":"text"}],"layouts":{}}`,
			wantBoxes: 1,
		},
		{
			name:    "unknown kind",
			input:   `{"boxes":{"a":{"type":"video"}}}`,
			wantErr: "invalid document",
		},
		{
			name:    "negative width",
			input:   `{"boxes":{},"layouts":{"lg":[{"i":"a","x":0,"y":0,"w":-1,"h":1}]}}`,
			wantErr: "invalid document",
		},
		{
			name:    "not json",
			input:   `boxes`,
			wantErr: "parse document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := DecodeDocument([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("DecodeDocument() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDocument() error = %v", err)
			}
			if len(board.Boxes) != tt.wantBoxes {
				t.Fatalf("expected %d boxes, got %d", tt.wantBoxes, len(board.Boxes))
			}
			if got := len(board.Layouts[models.BreakpointXXS]); got != tt.wantRecords {
				t.Fatalf("expected %d xxs records, got %d", tt.wantRecords, got)
			}
		})
	}
}

func TestEncodeDocumentRoundTrip(t *testing.T) {
	board := newBoard()
	board.Boxes["a"] = models.NewBox("a", models.KindMarkdown)
	board.Layouts[models.BreakpointXXS] = []models.LayoutItem{{BoxID: "a", W: 1, H: 1}}

	data, err := EncodeDocument(board)
	if err != nil {
		t.Fatalf("EncodeDocument() error = %v", err)
	}
	decoded, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	if decoded.Boxes["a"].Text.Content != "### Markdown" {
		t.Fatalf("unexpected decoded board %+v", decoded.Boxes)
	}
}

func TestLoadBootstrap(t *testing.T) {
	dir := t.TempDir()
	boxes := filepath.Join(dir, "boxes.json")
	layouts := filepath.Join(dir, "layouts.json")
	if err := os.WriteFile(boxes, []byte(`[{"id":"1","type":"heading"},{"type":"text"}]`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(layouts, []byte(`{"xxs":[{"i":"1","x":0,"y":0,"w":1,"h":1}]}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	board, err := LoadBootstrap(boxes, layouts)
	if err != nil {
		t.Fatalf("LoadBootstrap() error = %v", err)
	}
	if len(board.Boxes) != 1 || len(board.Layouts[models.BreakpointXXS]) != 1 {
		t.Fatalf("unexpected bootstrap board %+v", board)
	}

	none, err := LoadBootstrap("", "")
	if err != nil || none != nil {
		t.Fatalf("LoadBootstrap(empty) = %v, %v", none, err)
	}
	if _, err := LoadBootstrap(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.PutBox(ctx, "ns", models.NewBox("old", models.KindText))

	next := newBoard()
	next.Boxes["new"] = models.NewBox("new", models.KindLink)
	if err := Replace(ctx, store, "ns", next); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	board, err := store.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := board.Boxes["old"]; ok || len(board.Boxes) != 1 {
		t.Fatalf("expected only the imported box, got %+v", board.Boxes)
	}
}

type countingPurger struct {
	cutoff time.Time
	n      int64
}

func (p *countingPurger) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	p.cutoff = before
	return p.n, nil
}

func TestJanitorRunOnce(t *testing.T) {
	purger := &countingPurger{n: 3}
	janitor, err := NewJanitor(purger, "@every 1h", 24*time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("NewJanitor() error = %v", err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	janitor.now = func() time.Time { return now }

	n, err := janitor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 purged, got %d", n)
	}
	if !purger.cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", purger.cutoff)
	}

	janitor.Start()
	if err := janitor.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestNewJanitorRejectsBadSchedule(t *testing.T) {
	if _, err := NewJanitor(&countingPurger{}, "every tuesday", time.Hour, nil, nil); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
	if _, err := NewJanitor(&countingPurger{}, "", 0, nil, nil); err == nil {
		t.Fatalf("expected error for zero retention")
	}
}
