// Package web serves the board over HTTP: a JSON API for mutations, HTML
// fragments for boxes and a websocket stream of snapshots.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/boxgrid/internal/auth"
	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/internal/observability"
	"github.com/haasonsaas/boxgrid/internal/persist"
	"github.com/haasonsaas/boxgrid/internal/preview"
	"github.com/haasonsaas/boxgrid/internal/ratelimit"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// BoxRenderer turns a box into an HTML fragment.
type BoxRenderer interface {
	Render(ctx context.Context, box models.Box, editing bool) (template.HTML, error)
}

// PreviewFetcher looks up link metadata. Failures yield an empty result.
type PreviewFetcher interface {
	Fetch(ctx context.Context, url string) preview.Result
}

// Config holds the handler's collaborators.
type Config struct {
	// Registry hands out the engine for the caller's namespace. Required.
	Registry *board.Registry
	// AuthService issues and checks sessions (optional).
	AuthService *auth.Service
	Renderer    BoxRenderer
	Previews    PreviewFetcher
	// DefaultNamespace serves anonymous callers.
	DefaultNamespace string
	AllowedOrigins   []string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Metrics        *observability.HTTPMetrics
	// RateLimiter guards preview lookups and sign-in (optional).
	RateLimiter *ratelimit.Limiter
	Logger      *slog.Logger
}

// Handler is the root HTTP handler.
type Handler struct {
	config   *Config
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the handler and its routes.
func NewHandler(cfg *Config) (*Handler, error) {
	if cfg == nil || cfg.Registry == nil {
		return nil, errors.New("web: board registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = persist.DefaultNamespace
	}

	h := &Handler{
		config: cfg,
		mux:    http.NewServeMux(),
		logger: cfg.Logger.With("component", "web"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 8192,
		CheckOrigin:     h.checkOrigin,
	}
	h.setupRoutes()

	var root http.Handler = h.mux
	root = auth.Middleware(cfg.AuthService, h.logger)(root)
	root = CORSMiddleware(cfg.AllowedOrigins)(root)
	root = LoggingMiddleware(h.logger)(root)
	root = RequestIDMiddleware(root)
	h.handler = root
	return h, nil
}

func (h *Handler) setupRoutes() {
	h.handle("GET /healthz", h.handleHealthz)
	if h.config.MetricsHandler != nil {
		h.mux.Handle("GET /metrics", h.config.MetricsHandler)
	}

	h.handle("GET /api/board", h.apiBoard)
	h.handle("POST /api/boxes", h.apiAddBox)
	h.handle("PATCH /api/boxes/{id}", h.apiUpdateBox)
	h.handle("DELETE /api/boxes/{id}", h.apiRemoveBox)
	h.handle("GET /api/boxes/{id}/html", h.apiBoxHTML)
	h.handle("PUT /api/layouts/{breakpoint}", h.apiRelayout)
	h.handle("PUT /api/mode", h.apiMode)
	h.handle("PUT /api/viewport", h.apiViewport)
	h.handleLimited("GET /api/preview", h.apiPreview)
	h.handle("GET /api/stream", h.apiStream)

	h.handleLimited("POST /api/session", h.apiSignIn)
	h.handle("DELETE /api/session", h.apiSignOut)
	h.mux.Handle("GET /api/session", h.instrument("GET /api/session", auth.RequireUser(http.HandlerFunc(h.apiWhoAmI))))
}

func (h *Handler) handle(pattern string, fn http.HandlerFunc) {
	h.mux.Handle(pattern, h.instrument(pattern, fn))
}

// handleLimited registers a route behind the per-client rate limiter.
func (h *Handler) handleLimited(pattern string, fn http.HandlerFunc) {
	var next http.Handler = fn
	if h.config.RateLimiter != nil {
		next = ratelimit.Middleware(h.config.RateLimiter, rateKey)(next)
	}
	h.mux.Handle(pattern, h.instrument(pattern, next))
}

// rateKey buckets signed-in callers by user and everyone else by address.
func rateKey(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		return "user:" + user.ID
	}
	return "ip:" + ratelimit.ClientIP(r)
}

// instrument records request metrics under the route pattern.
func (h *Handler) instrument(pattern string, next http.Handler) http.Handler {
	if h.config.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)
		h.config.Metrics.RecordHTTPRequest(r.Method, pattern, wrapped.status, start)
	})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"namespaces": len(h.config.Registry.Namespaces()),
	})
}

// namespace returns the persistence namespace for the caller.
func (h *Handler) namespace(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return persist.NamespaceFor(user, h.config.DefaultNamespace)
}

// engine returns the caller's engine, answering 503 when it cannot be built.
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*board.Engine, bool) {
	ns := h.namespace(r)
	engine, err := h.config.Registry.Get(r.Context(), ns)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "board unavailable", "namespace", ns, "error", err)
		h.jsonError(w, "board unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return engine, true
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("json encode error", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	h.jsonResponse(w, code, map[string]string{"error": message})
}

// mutationError maps engine errors to responses.
func (h *Handler) mutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrBoxNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, board.ErrInvalidKind), errors.Is(err, board.ErrUnknownBreakpoint):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, board.ErrDuplicateID):
		h.jsonError(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("mutation failed", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
