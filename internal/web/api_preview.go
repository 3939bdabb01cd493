package web

import (
	"net/http"
	"strings"

	"github.com/haasonsaas/boxgrid/internal/preview"
)

// apiPreview handles GET /api/preview?url=. Lookups are best effort, so any
// failure still answers 200 with empty fields.
func (h *Handler) apiPreview(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		h.jsonError(w, "url is required", http.StatusBadRequest)
		return
	}
	var result preview.Result
	if h.config.Previews != nil {
		result = h.config.Previews.Fetch(r.Context(), target)
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	h.jsonResponse(w, http.StatusOK, result)
}
