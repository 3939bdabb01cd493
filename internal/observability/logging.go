// Package observability holds the logging, metrics and tracing setup shared
// by the server and the CLI.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const redacted = "[REDACTED]"

// DefaultRedactPatterns match credentials that must never reach a log sink.
var DefaultRedactPatterns = []string{
	// Bearer tokens in headers or free text.
	`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
	// secret=..., password: ..., token=...
	`(?i)(secret|password|passwd|token|api[_-]?key)["']?\s*[:=]\s*["']?[^\s"',;&]+`,
	// JWTs, including session artifacts.
	`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`,
}

var sensitiveKeys = map[string]bool{
	"password":          true,
	"passwd":            true,
	"secret":            true,
	"session_secret":    true,
	"token":             true,
	"id_token":          true,
	"authorization":     true,
	"cookie":            true,
	"api_key":           true,
	"hmac_secret":       true,
	"secret_key":        true,
	"secret_access_key": true,
}

// LogConfig configures NewLogger.
type LogConfig struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is json or text. Defaults to json.
	Format string
	// LevelVar, when set, is initialized from Level and used as the handler
	// level so it can be changed after construction.
	LevelVar *slog.LevelVar
	// Output defaults to stderr.
	Output    io.Writer
	AddSource bool
	// RedactPatterns are appended to DefaultRedactPatterns.
	RedactPatterns []string
}

// NewLogger builds a slog logger whose handler redacts secrets from the
// message and from string attributes.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var level slog.Leveler = LogLevelFromString(cfg.Level)
	if cfg.LevelVar != nil {
		cfg.LevelVar.Set(LogLevelFromString(cfg.Level))
		level = cfg.LevelVar
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		inner = slog.NewTextHandler(out, opts)
	} else {
		inner = slog.NewJSONHandler(out, opts)
	}

	patterns := append(append([]string{}, DefaultRedactPatterns...), cfg.RedactPatterns...)
	redacts := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}
	return slog.New(&redactingHandler{inner: inner, redacts: redacts})
}

// redactingHandler rewrites records before handing them to inner.
type redactingHandler struct {
	inner   slog.Handler
	redacts []*regexp.Regexp
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.redactString(record.Message), record.PC)
	if id := RequestIDFromContext(ctx); id != "" {
		out.AddAttrs(slog.String("request_id", id))
	}
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		cleaned[i] = h.redactAttr(attr)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(cleaned), redacts: h.redacts}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redacts: h.redacts}
}

func (h *redactingHandler) redactAttr(attr slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(strings.ReplaceAll(attr.Key, "-", "_"))] {
		return slog.String(attr.Key, redacted)
	}
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, h.redactString(value.String()))
	case slog.KindGroup:
		group := value.Group()
		cleaned := make([]any, len(group))
		for i, inner := range group {
			cleaned[i] = h.redactAttr(inner)
		}
		return slog.Group(attr.Key, cleaned...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, h.redactString(err.Error()))
		}
	}
	return slog.Attr{Key: attr.Key, Value: value}
}

func (h *redactingHandler) redactString(s string) string {
	for _, re := range h.redacts {
		s = re.ReplaceAllString(s, redacted)
	}
	return s
}

// LogLevelFromString converts a string to a slog.Level.
// Returns LevelInfo if the string is not recognized.
func LogLevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID stores a request id that the logger attaches to records
// logged with the returned context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
