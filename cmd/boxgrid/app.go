package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/internal/config"
	"github.com/haasonsaas/boxgrid/internal/observability"
	"github.com/haasonsaas/boxgrid/internal/persist"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// resolveConfigPath picks the flag, then BOXGRID_CONFIG, then the default
// file name.
func resolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("BOXGRID_CONFIG")); p != "" {
		return p
	}
	return defaultConfigName
}

// loadConfig loads the resolved config file. A missing default file yields
// the built-in defaults; a missing explicit file is an error.
func loadConfig(opts *globalOptions) (*config.Config, string, error) {
	path := resolveConfigPath(opts.configPath)
	explicit := strings.TrimSpace(opts.configPath) != "" || strings.TrimSpace(os.Getenv("BOXGRID_CONFIG")) != ""
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

// logLevel backs the process logger so config reloads can change it.
var logLevel = new(slog.LevelVar)

// newLogger builds the process logger from config; debug forces debug level.
func newLogger(cfg *config.Config, debug bool) *slog.Logger {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:    level,
		LevelVar: logLevel,
		Format:   cfg.Logging.Format,
	})
	slog.SetDefault(logger)
	return logger
}

// stores holds the opened persistence backends.
type stores struct {
	local  persist.Store
	remote persist.Store
	purger persist.Purger
}

// openStores opens the local cache and the remote store named by cfg.
func openStores(ctx context.Context, cfg config.StorageConfig) (*stores, error) {
	s := &stores{}
	if strings.EqualFold(strings.TrimSpace(cfg.Local.Path), "memory") {
		s.local = persist.NewMemoryStore()
	} else {
		sqlite, err := persist.NewSQLiteStore(cfg.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("open local cache: %w", err)
		}
		s.local = sqlite
		s.purger = sqlite
	}

	remote, err := persist.OpenRemote(ctx, persist.RemoteOptions{
		Driver: cfg.Remote.Driver,
		DSN:    cfg.Remote.DSN,
		Pool: &persist.PoolConfig{
			MaxOpenConns:    cfg.Remote.MaxConnections,
			MaxIdleConns:    max(1, cfg.Remote.MaxConnections/5),
			ConnMaxLifetime: cfg.Remote.ConnMaxLifetime,
		},
		S3: &persist.S3StoreConfig{
			Bucket:          cfg.Remote.S3.Bucket,
			Region:          cfg.Remote.S3.Region,
			Endpoint:        cfg.Remote.S3.Endpoint,
			Prefix:          cfg.Remote.S3.Prefix,
			AccessKeyID:     cfg.Remote.S3.AccessKeyID,
			SecretAccessKey: cfg.Remote.S3.SecretAccessKey,
			UsePathStyle:    cfg.Remote.S3.UsePathStyle,
		},
	})
	if err != nil {
		_ = s.local.Close()
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	s.remote = remote
	return s, nil
}

func (s *stores) Close() error {
	var errs []error
	if s.remote != nil {
		errs = append(errs, s.remote.Close())
	}
	errs = append(errs, s.local.Close())
	return errors.Join(errs...)
}

// registryOptions collects what newRegistry needs beyond the stores.
type registryOptions struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	boardMetrics   *board.Metrics
	persistMetrics *persist.Metrics
	bootstrap      *models.Board
}

// newRegistry wires one Mirror per namespace over the shared stores.
func newRegistry(cfg *config.Config, st *stores, opts registryOptions) (*board.Registry, error) {
	ids, err := board.NewIDGenerator(cfg.Board.IDStrategy)
	if err != nil {
		return nil, err
	}
	storage := cfg.Storage
	return board.NewRegistry(board.RegistryOptions{
		Persisters: func(namespace string) (board.Persister, error) {
			return persist.NewMirror(persist.MirrorOptions{
				Namespace:    namespace,
				Local:        st.local,
				Remote:       st.remote,
				WriteTimeout: storage.WriteTimeout,
				LoadTimeout:  storage.LoadTimeout,
				Logger:       opts.logger,
				Metrics:      opts.persistMetrics,
				Tracer:       opts.tracer,
			}), nil
		},
		IDs:                ids,
		Logger:             opts.logger,
		Metrics:            opts.boardMetrics,
		RowHeight:          cfg.Board.RowHeight,
		InitTimeout:        2 * storage.LoadTimeout,
		Bootstrap:          opts.bootstrap,
		BootstrapNamespace: storage.NamespaceDefault,
	}), nil
}

// offlineSession is an engine for one namespace opened by a CLI command.
type offlineSession struct {
	cfg      *config.Config
	stores   *stores
	registry *board.Registry
	engine   *board.Engine
}

// openOffline opens the stores and the engine for the selected namespace.
// Bootstrap files are not applied offline; commands act on stored state.
func openOffline(ctx context.Context, opts *globalOptions) (*offlineSession, error) {
	cfg, _, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, opts.debug)
	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry(cfg, st, registryOptions{logger: logger})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	engine, err := registry.Get(ctx, offlineNamespace(cfg, opts))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &offlineSession{cfg: cfg, stores: st, registry: registry, engine: engine}, nil
}

func offlineNamespace(cfg *config.Config, opts *globalOptions) string {
	if ns := strings.TrimSpace(opts.namespace); ns != "" {
		return ns
	}
	return cfg.Storage.NamespaceDefault
}

// Close waits for remote writes and closes the stores.
func (s *offlineSession) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Storage.WriteTimeout)
	defer cancel()
	return errors.Join(s.registry.Close(ctx), s.stores.Close())
}
