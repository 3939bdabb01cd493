package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/boxgrid/internal/board"
)

const (
	wsMaxPayloadBytes = 4 << 10
	wsPingInterval    = 15 * time.Second
	wsPongWait        = 45 * time.Second
	wsWriteWait       = 10 * time.Second
)

// streamFrame is one message on /api/stream.
type streamFrame struct {
	Type     string          `json:"type"`
	Snapshot *board.Snapshot `json:"snapshot,omitempty"`
}

// apiStream handles GET /api/stream. The connection receives the current
// snapshot and then one per change; a slow client skips to the latest.
// Client messages are ignored.
func (h *Handler) apiStream(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	snapshots, cancel := engine.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn)
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			payload, err := json.Marshal(streamFrame{Type: "snapshot", Snapshot: &snap})
			if err != nil {
				h.logger.Error("encode snapshot", "error", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(wsMaxPayloadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
