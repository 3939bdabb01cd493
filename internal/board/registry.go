package board

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// PersisterFactory builds the persister for one namespace.
type PersisterFactory func(namespace string) (Persister, error)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Persisters PersisterFactory
	IDs        IDGenerator
	Logger     *slog.Logger
	Metrics    *Metrics
	RowHeight  int

	// InitTimeout bounds the initial load of a namespace. The load ignores the
	// caller's cancellation.
	InitTimeout time.Duration

	// Bootstrap, when set, initializes the engine for BootstrapNamespace
	// instead of loading it from its persister.
	Bootstrap          *models.Board
	BootstrapNamespace string
}

const defaultInitTimeout = 30 * time.Second

// Registry hands out one initialized engine per namespace.
type Registry struct {
	opts    RegistryOptions
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	once   sync.Once
	engine *Engine
	err    error
}

func NewRegistry(opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		opts:    opts,
		logger:  logger.With("component", "board-registry"),
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the engine for namespace, creating and initializing it on first
// use. Concurrent callers for the same namespace share one initialization.
func (r *Registry) Get(ctx context.Context, namespace string) (*Engine, error) {
	r.mu.Lock()
	entry, ok := r.entries[namespace]
	if !ok {
		entry = &registryEntry{}
		r.entries[namespace] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		engine, err := r.build(ctx, namespace)
		r.mu.Lock()
		entry.engine, entry.err = engine, err
		r.mu.Unlock()
	})
	if entry.err != nil {
		r.mu.Lock()
		if r.entries[namespace] == entry {
			delete(r.entries, namespace)
		}
		r.mu.Unlock()
		return nil, entry.err
	}
	return entry.engine, nil
}

func (r *Registry) build(ctx context.Context, namespace string) (*Engine, error) {
	var persister Persister
	if r.opts.Persisters != nil {
		p, err := r.opts.Persisters(namespace)
		if err != nil {
			return nil, err
		}
		persister = p
	}
	engine := NewEngine(Options{
		Namespace: namespace,
		Persister: persister,
		IDs:       r.opts.IDs,
		Logger:    r.opts.Logger,
		Metrics:   r.opts.Metrics,
		RowHeight: r.opts.RowHeight,
	})
	var bootstrap *models.Board
	if r.opts.Bootstrap != nil && namespace == r.opts.BootstrapNamespace {
		bootstrap = r.opts.Bootstrap
	}
	timeout := r.opts.InitTimeout
	if timeout <= 0 {
		timeout = defaultInitTimeout
	}
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := engine.Initialize(initCtx, bootstrap); err != nil {
		return nil, err
	}
	r.logger.Debug("engine created", "namespace", namespace)
	return engine, nil
}

// Namespaces lists namespaces with a live engine.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for ns, entry := range r.entries {
		if entry.engine != nil {
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out
}

// Close flushes every engine's in-flight writes.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.engine != nil {
			engines = append(engines, entry.engine)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, engine := range engines {
		if err := engine.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
