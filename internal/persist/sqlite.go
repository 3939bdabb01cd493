package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// SQLiteStore is the local durable cache. Deleted boxes are kept as
// tombstones until PurgeTombstones removes them.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS boxes (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			doc TEXT,
			deleted_at INTEGER,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, id)
		)`,
		`CREATE TABLE IF NOT EXISTS layouts (
			namespace TEXT NOT NULL,
			breakpoint TEXT NOT NULL,
			doc TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, breakpoint)
		)`,
		`CREATE INDEX IF NOT EXISTS boxes_deleted_at ON boxes (deleted_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, namespace string) (*models.Board, error) {
	board := newBoard()
	// The pool holds a single connection, so each result set is drained and
	// closed before the next query.
	foundBoxes, err := s.loadBoxes(ctx, namespace, board)
	if err != nil {
		return nil, err
	}
	foundLayouts, err := s.loadLayouts(ctx, namespace, board)
	if err != nil {
		return nil, err
	}
	if !foundBoxes && !foundLayouts {
		return nil, ErrNotFound
	}
	return board, nil
}

func (s *SQLiteStore) loadBoxes(ctx context.Context, namespace string, board *models.Board) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc, deleted_at FROM boxes WHERE namespace = ?`, namespace)
	if err != nil {
		return false, fmt.Errorf("load boxes: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var id string
		var doc sql.NullString
		var deletedAt sql.NullInt64
		if err := rows.Scan(&id, &doc, &deletedAt); err != nil {
			return false, fmt.Errorf("scan box: %w", err)
		}
		found = true
		if deletedAt.Valid || !doc.Valid {
			continue
		}
		var box models.Box
		if err := json.Unmarshal([]byte(doc.String), &box); err != nil {
			continue
		}
		box.ID = id
		board.Boxes[id] = box
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("load boxes: %w", err)
	}
	return found, nil
}

func (s *SQLiteStore) loadLayouts(ctx context.Context, namespace string, board *models.Board) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT breakpoint, doc FROM layouts WHERE namespace = ?`, namespace)
	if err != nil {
		return false, fmt.Errorf("load layouts: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var bp, doc string
		if err := rows.Scan(&bp, &doc); err != nil {
			return false, fmt.Errorf("scan layout: %w", err)
		}
		found = true
		breakpoint, err := models.ParseBreakpoint(bp)
		if err != nil {
			continue
		}
		board.Layouts[breakpoint] = models.DecodeLayoutItems([]byte(doc))
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("load layouts: %w", err)
	}
	return found, nil
}

func (s *SQLiteStore) PutBox(ctx context.Context, namespace string, box models.Box) error {
	doc, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("encode box: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boxes (namespace, id, doc, deleted_at, updated_at)
		VALUES (?, ?, ?, NULL, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET doc = excluded.doc, deleted_at = NULL, updated_at = excluded.updated_at
	`, namespace, box.ID, string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put box: %w", err)
	}
	return nil
}

// DeleteBox records a tombstone for id.
func (s *SQLiteStore) DeleteBox(ctx context.Context, namespace string, id string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boxes (namespace, id, doc, deleted_at, updated_at)
		VALUES (?, ?, NULL, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET doc = NULL, deleted_at = excluded.deleted_at, updated_at = excluded.updated_at
	`, namespace, id, now, now)
	if err != nil {
		return fmt.Errorf("delete box: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutLayout(ctx context.Context, namespace string, bp models.Breakpoint, items []models.LayoutItem) error {
	if items == nil {
		items = []models.LayoutItem{}
	}
	doc, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO layouts (namespace, breakpoint, doc, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, breakpoint) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, namespace, string(bp), string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put layout: %w", err)
	}
	return nil
}

// PurgeTombstones removes tombstones recorded before the cutoff and reports
// how many were removed.
func (s *SQLiteStore) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM boxes WHERE deleted_at IS NOT NULL AND deleted_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	return result.RowsAffected()
}

// Namespaces lists every namespace with cached data.
func (s *SQLiteStore) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace FROM boxes UNION SELECT namespace FROM layouts ORDER BY namespace
	`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
