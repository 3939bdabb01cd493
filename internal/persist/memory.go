package persist

import (
	"context"
	"sync"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// MemoryStore keeps boards in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]*models.Board
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boards: make(map[string]*models.Board)}
}

func (s *MemoryStore) Load(ctx context.Context, namespace string) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	return board.Clone(), nil
}

func (s *MemoryStore) PutBox(ctx context.Context, namespace string, box models.Box) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardLocked(namespace).Boxes[box.ID] = box.Clone()
	return nil
}

func (s *MemoryStore) DeleteBox(ctx context.Context, namespace string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boardLocked(namespace).Boxes, id)
	return nil
}

func (s *MemoryStore) PutLayout(ctx context.Context, namespace string, bp models.Breakpoint, items []models.LayoutItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardLocked(namespace).Layouts[bp] = append([]models.LayoutItem{}, items...)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) boardLocked(namespace string) *models.Board {
	board, ok := s.boards[namespace]
	if !ok {
		board = newBoard()
		s.boards[namespace] = board
	}
	return board
}
