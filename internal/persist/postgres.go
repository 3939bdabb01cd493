package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// PoolConfig configures the remote database connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig returns default connection pool settings.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// PostgresStore is a remote store on Postgres or CockroachDB. Box and layout
// documents are stored as JSONB, one row per box and per breakpoint.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStoreFromDSN opens and pings the database, then creates the
// tables when missing.
func NewPostgresStoreFromDSN(dsn string, config *PoolConfig) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPoolConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the board tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS board_boxes (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (namespace, id)
		);
		CREATE TABLE IF NOT EXISTS board_layouts (
			namespace TEXT NOT NULL,
			breakpoint TEXT NOT NULL,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (namespace, breakpoint)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate board tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, namespace string) (*models.Board, error) {
	board := newBoard()
	found := false

	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM board_boxes WHERE namespace = $1`, namespace)
	if err != nil {
		return nil, fmt.Errorf("load board boxes: %w", err)
	}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan board box: %w", err)
		}
		found = true
		var box models.Box
		if err := json.Unmarshal(doc, &box); err != nil {
			continue
		}
		box.ID = id
		board.Boxes[id] = box
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("load board boxes: %w", err)
	}
	rows.Close()

	layoutRows, err := s.db.QueryContext(ctx, `SELECT breakpoint, doc FROM board_layouts WHERE namespace = $1`, namespace)
	if err != nil {
		return nil, fmt.Errorf("load board layouts: %w", err)
	}
	defer layoutRows.Close()
	for layoutRows.Next() {
		var bp string
		var doc []byte
		if err := layoutRows.Scan(&bp, &doc); err != nil {
			return nil, fmt.Errorf("scan board layout: %w", err)
		}
		found = true
		breakpoint, err := models.ParseBreakpoint(bp)
		if err != nil {
			continue
		}
		board.Layouts[breakpoint] = models.DecodeLayoutItems(doc)
	}
	if err := layoutRows.Err(); err != nil {
		return nil, fmt.Errorf("load board layouts: %w", err)
	}

	if !found {
		return nil, ErrNotFound
	}
	return board, nil
}

func (s *PostgresStore) PutBox(ctx context.Context, namespace string, box models.Box) error {
	doc, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("encode box: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO board_boxes (namespace, id, doc, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, namespace, box.ID, doc, time.Now())
	if err != nil {
		return fmt.Errorf("put board box: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBox(ctx context.Context, namespace string, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM board_boxes WHERE namespace = $1 AND id = $2`, namespace, id)
	if err != nil {
		return fmt.Errorf("delete board box: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutLayout(ctx context.Context, namespace string, bp models.Breakpoint, items []models.LayoutItem) error {
	if items == nil {
		items = []models.LayoutItem{}
	}
	doc, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO board_layouts (namespace, breakpoint, doc, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, breakpoint) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, namespace, string(bp), doc, time.Now())
	if err != nil {
		return fmt.Errorf("put board layout: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
