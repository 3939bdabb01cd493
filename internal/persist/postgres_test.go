package persist

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return db, mock, &PostgresStore{db: db}
}

func TestPostgresStore_Load(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		wantErr     error
		errContains string
		wantBoxes   int
		wantLG      int
	}{
		{
			name: "boxes and layouts",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, doc FROM board_boxes").
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).
						AddRow("a", []byte(`{"id":"a","type":"text","text":{"content":"hi"}}`)).
						AddRow("b", []byte(`not json`)))
				mock.ExpectQuery("SELECT breakpoint, doc FROM board_layouts").
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"breakpoint", "doc"}).
						AddRow("lg", []byte(`[{"i":"a","x":0,"y":0,"w":2,"h":2}]`)).
						AddRow("giant", []byte(`[]`)))
			},
			wantBoxes: 1,
			wantLG:    1,
		},
		{
			name: "empty namespace",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, doc FROM board_boxes").
					WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}))
				mock.ExpectQuery("SELECT breakpoint, doc FROM board_layouts").
					WillReturnRows(sqlmock.NewRows([]string{"breakpoint", "doc"}))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, doc FROM board_boxes").
					WillReturnError(errors.New("connection refused"))
			},
			errContains: "load board boxes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, store := setupMockDB(t)
			defer db.Close()
			tt.setupMock(mock)

			board, err := store.Load(context.Background(), "alice")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
			case tt.errContains != "":
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.errContains)
				}
			default:
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if len(board.Boxes) != tt.wantBoxes {
					t.Fatalf("expected %d boxes, got %d", tt.wantBoxes, len(board.Boxes))
				}
				if len(board.Layouts[models.BreakpointLG]) != tt.wantLG {
					t.Fatalf("expected %d lg records, got %d", tt.wantLG, len(board.Layouts[models.BreakpointLG]))
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresStore_PutBox(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO board_boxes").
		WithArgs("alice", "a", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.PutBox(context.Background(), "alice", models.NewBox("a", models.KindText)); err != nil {
		t.Fatalf("PutBox() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_DeleteBox(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM board_boxes").
		WithArgs("alice", "a").
		WillReturnError(errors.New("timeout"))

	err := store.DeleteBox(context.Background(), "alice", "a")
	if err == nil || !strings.Contains(err.Error(), "delete board box") {
		t.Fatalf("DeleteBox() error = %v", err)
	}
}

func TestPostgresStore_PutLayout(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO board_layouts").
		WithArgs("alice", "md", []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.PutLayout(context.Background(), "alice", models.BreakpointMD, nil); err != nil {
		t.Fatalf("PutLayout() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}
