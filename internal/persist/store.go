// Package persist stores boards. A Mirror combines a local durable cache with
// an optional remote per-user store and implements board.Persister.
package persist

import (
	"context"
	"errors"
	"strings"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

var ErrNotFound = errors.New("persist: not found")

// DefaultNamespace scopes storage for unauthenticated sessions.
const DefaultNamespace = "default"

// Store is one storage backend. Every call is scoped to a namespace.
type Store interface {
	// Load returns the stored board, or ErrNotFound when the namespace has
	// never been written.
	Load(ctx context.Context, namespace string) (*models.Board, error)
	PutBox(ctx context.Context, namespace string, box models.Box) error
	DeleteBox(ctx context.Context, namespace string, id string) error
	PutLayout(ctx context.Context, namespace string, bp models.Breakpoint, items []models.LayoutItem) error
	Close() error
}

// NamespaceFor returns the namespace for an authenticated user, or fallback
// when there is none. An empty fallback means DefaultNamespace.
func NamespaceFor(user *models.User, fallback string) string {
	if user != nil {
		if id := strings.TrimSpace(user.ID); id != "" {
			return id
		}
	}
	if strings.TrimSpace(fallback) == "" {
		return DefaultNamespace
	}
	return strings.TrimSpace(fallback)
}

func newBoard() *models.Board {
	return &models.Board{Boxes: models.BoxSet{}, Layouts: models.NewLayoutTable()}
}
