package board

import (
	"sync"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// Snapshot is an immutable view of the engine state published to consumers.
// Consumers must not modify the values it references.
type Snapshot struct {
	Version     uint64             `json:"version"`
	Namespace   string             `json:"namespace"`
	Boxes       []models.Box       `json:"boxes"`
	Layouts     models.LayoutTable `json:"layouts"`
	Breakpoint  models.Breakpoint  `json:"breakpoint"`
	Editing     bool               `json:"editing"`
	ToolbarOpen bool               `json:"toolbarOpen"`
}

// hub fans snapshots out to subscribers. Each subscriber holds at most one
// pending snapshot; a newer snapshot replaces an unread one.
type hub struct {
	mu          sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan Snapshot]struct{})}
}

func (h *hub) subscribe() (chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *hub) broadcast(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		offer(ch, snap)
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
