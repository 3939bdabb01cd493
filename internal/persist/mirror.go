package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultLoadTimeout  = 10 * time.Second
)

var _ board.Persister = (*Mirror)(nil)
var _ board.Flusher = (*Mirror)(nil)

// MirrorOptions configures a Mirror.
type MirrorOptions struct {
	Namespace    string
	Local        Store
	Remote       Store
	WriteTimeout time.Duration
	LoadTimeout  time.Duration
	Logger       *slog.Logger
	Metrics      *Metrics
	Tracer       trace.Tracer
}

// Mirror persists one namespace. Every write reaches the local store before
// the call returns; the remote copy is written in the background and is not
// ordered with respect to other remote writes.
type Mirror struct {
	namespace    string
	local        Store
	remote       Store
	writeTimeout time.Duration
	loadTimeout  time.Duration
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	wg           sync.WaitGroup
}

func NewMirror(opts MirrorOptions) *Mirror {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/haasonsaas/boxgrid/internal/persist")
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Mirror{
		namespace:    namespace,
		local:        opts.Local,
		remote:       opts.Remote,
		writeTimeout: writeTimeout,
		loadTimeout:  loadTimeout,
		logger:       logger.With("component", "persist", "namespace", namespace),
		metrics:      opts.Metrics,
		tracer:       tracer,
	}
}

// LoadInitialState reads the remote store first, then the local cache. It
// returns nil without error when neither holds the namespace.
func (m *Mirror) LoadInitialState(ctx context.Context) (*models.Board, error) {
	if m.remote != nil {
		loaded, err := m.loadRemote(ctx)
		switch {
		case err == nil:
			m.metrics.RecordLoad("remote")
			return loaded, nil
		case errors.Is(err, ErrNotFound):
		default:
			m.logger.Warn("remote load failed, falling back to local cache", "error", err)
		}
	}
	if m.local != nil {
		loaded, err := m.local.Load(ctx, m.namespace)
		switch {
		case err == nil:
			m.metrics.RecordLoad("local")
			return loaded, nil
		case errors.Is(err, ErrNotFound):
		default:
			return nil, fmt.Errorf("load local cache: %w", err)
		}
	}
	m.metrics.RecordLoad("empty")
	return nil, nil
}

func (m *Mirror) loadRemote(ctx context.Context) (*models.Board, error) {
	ctx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()
	ctx, span := m.tracer.Start(ctx, "persist.remote_load", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("boxgrid.namespace", m.namespace)))
	defer span.End()

	loaded, err := m.remote.Load(ctx, m.namespace)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return loaded, err
}

// WriteBox upserts box, or records a deletion when box is nil.
func (m *Mirror) WriteBox(ctx context.Context, id string, box *models.Box) error {
	if box == nil {
		return m.write(ctx, "delete_box", id, func(ctx context.Context, store Store) error {
			return store.DeleteBox(ctx, m.namespace, id)
		})
	}
	stored := box.Clone()
	return m.write(ctx, "put_box", id, func(ctx context.Context, store Store) error {
		return store.PutBox(ctx, m.namespace, stored)
	})
}

// WriteLayout replaces the stored sequence for bp.
func (m *Mirror) WriteLayout(ctx context.Context, bp models.Breakpoint, items []models.LayoutItem) error {
	items = append([]models.LayoutItem{}, items...)
	return m.write(ctx, "put_layout", string(bp), func(ctx context.Context, store Store) error {
		return store.PutLayout(ctx, m.namespace, bp, items)
	})
}

func (m *Mirror) write(ctx context.Context, op, key string, fn func(context.Context, Store) error) error {
	var err error
	if m.local != nil {
		started := time.Now()
		err = fn(ctx, m.local)
		m.metrics.RecordWrite("local", op, started, err)
		if err != nil {
			err = fmt.Errorf("local %s %s: %w", op, key, err)
		}
	}
	if m.remote != nil {
		m.writeRemote(ctx, op, key, fn)
	}
	return err
}

func (m *Mirror) writeRemote(ctx context.Context, op, key string, fn func(context.Context, Store) error) {
	m.wg.Add(1)
	m.metrics.RemoteStarted()
	go func() {
		defer m.wg.Done()
		defer m.metrics.RemoteFinished()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.writeTimeout)
		defer cancel()
		ctx, span := m.tracer.Start(ctx, "persist.remote_write", trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("boxgrid.namespace", m.namespace),
				attribute.String("boxgrid.op", op),
				attribute.String("boxgrid.key", key),
			))
		defer span.End()

		started := time.Now()
		err := fn(ctx, m.remote)
		m.metrics.RecordWrite("remote", op, started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.logger.Warn("remote write failed",
				"target", op,
				"key", key,
				"error", err,
			)
		}
	}()
}

// Flush waits for background remote writes to finish or for ctx to end.
func (m *Mirror) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
