package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/internal/grid"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// BoardResponse is the full state returned by GET /api/board and by every
// mutation.
type BoardResponse struct {
	board.Snapshot
	Grid grid.Props `json:"grid"`
}

// AddBoxRequest is the body of POST /api/boxes.
type AddBoxRequest struct {
	Kind string `json:"type"`
}

// AddBoxResponse names the new box alongside the resulting board.
type AddBoxResponse struct {
	ID    string        `json:"id"`
	Board BoardResponse `json:"board"`
}

// ModeRequest is the body of PUT /api/mode. Omitted fields are unchanged.
type ModeRequest struct {
	Editing     *bool `json:"editing,omitempty"`
	ToolbarOpen *bool `json:"toolbarOpen,omitempty"`
}

// ViewportRequest is the body of PUT /api/viewport. Width wins over
// Breakpoint when both are given.
type ViewportRequest struct {
	Width      *int   `json:"width,omitempty"`
	Breakpoint string `json:"breakpoint,omitempty"`
}

func boardResponse(engine *board.Engine) BoardResponse {
	return BoardResponse{Snapshot: engine.Snapshot(), Grid: engine.GridProps()}
}

// apiBoard handles GET /api/board.
func (h *Handler) apiBoard(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, boardResponse(engine))
}

// apiAddBox handles POST /api/boxes.
func (h *Handler) apiAddBox(w http.ResponseWriter, r *http.Request) {
	var req AddBoxRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	kind, err := models.ParseBoxKind(req.Kind)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := engine.AddBox(kind)
	if err != nil {
		h.mutationError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusCreated, AddBoxResponse{ID: id, Board: boardResponse(engine)})
}

// apiUpdateBox handles PATCH /api/boxes/{id} with a BoxPatch body.
func (h *Handler) apiUpdateBox(w http.ResponseWriter, r *http.Request) {
	var patch models.BoxPatch
	if err := decodeBody(w, r, &patch); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		h.jsonError(w, "patch changes nothing", http.StatusBadRequest)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := engine.UpdateBox(id, board.ApplyPatch(patch)); err != nil {
		h.mutationError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, boardResponse(engine))
}

// apiRemoveBox handles DELETE /api/boxes/{id}.
func (h *Handler) apiRemoveBox(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := engine.RemoveBox(r.PathValue("id")); err != nil {
		h.mutationError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, boardResponse(engine))
}

// apiBoxHTML handles GET /api/boxes/{id}/html. The editing query parameter
// overrides the board's current mode.
func (h *Handler) apiBoxHTML(w http.ResponseWriter, r *http.Request) {
	if h.config.Renderer == nil {
		h.jsonError(w, "rendering is not configured", http.StatusNotImplemented)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	box, found := engine.Box(r.PathValue("id"))
	if !found {
		h.mutationError(w, board.ErrBoxNotFound)
		return
	}
	editing := engine.Snapshot().Editing
	if raw := r.URL.Query().Get("editing"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.jsonError(w, "editing must be a boolean", http.StatusBadRequest)
			return
		}
		editing = parsed
	}

	fragment, err := h.config.Renderer.Render(r.Context(), box, editing)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "render failed", "box_id", box.ID, "error", err)
		h.jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fragment)) //nolint:errcheck
}

// apiRelayout handles PUT /api/layouts/{breakpoint} with the renderer's
// layout sequence as the body.
func (h *Handler) apiRelayout(w http.ResponseWriter, r *http.Request) {
	bp, err := models.ParseBreakpoint(r.PathValue("breakpoint"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var items []models.LayoutItem
	if err := decodeBody(w, r, &items); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := engine.Relayout(bp, items); err != nil {
		h.mutationError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, boardResponse(engine))
}

// apiMode handles PUT /api/mode.
func (h *Handler) apiMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	if req.Editing != nil {
		engine.SetEditing(*req.Editing)
	}
	if req.ToolbarOpen != nil {
		engine.SetToolbarOpen(*req.ToolbarOpen)
	}
	h.jsonResponse(w, http.StatusOK, boardResponse(engine))
}

// apiViewport handles PUT /api/viewport.
func (h *Handler) apiViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	switch {
	case req.Width != nil:
		engine.SetViewportWidth(*req.Width)
	case strings.TrimSpace(req.Breakpoint) != "":
		bp, err := models.ParseBreakpoint(req.Breakpoint)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := engine.SetBreakpoint(bp); err != nil {
			h.mutationError(w, err)
			return
		}
	default:
		h.jsonError(w, "width or breakpoint is required", http.StatusBadRequest)
		return
	}
	h.jsonResponse(w, http.StatusOK, engine.GridProps())
}
