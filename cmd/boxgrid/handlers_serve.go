package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/boxgrid/internal/auth"
	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/internal/config"
	"github.com/haasonsaas/boxgrid/internal/observability"
	"github.com/haasonsaas/boxgrid/internal/persist"
	"github.com/haasonsaas/boxgrid/internal/preview"
	"github.com/haasonsaas/boxgrid/internal/ratelimit"
	"github.com/haasonsaas/boxgrid/internal/render"
	"github.com/haasonsaas/boxgrid/internal/web"
)

const shutdownTimeout = 30 * time.Second

// runServe implements the serve command: it wires config, stores, engines and
// the HTTP server, then waits for a shutdown signal.
func runServe(ctx context.Context, opts *globalOptions) error {
	cfg, configPath, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.debug)
	logger.Info("starting boxgrid",
		"version", version,
		"commit", commit,
		"config", configPath,
		"debug", opts.debug,
	)

	tracing := cfg.Observability.Tracing
	tracer, shutdownTracer, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName:    tracing.ServiceName,
		ServiceVersion: version,
		Environment:    tracing.Environment,
		Endpoint:       tracing.Endpoint,
		SamplingRate:   tracing.SamplingRate,
		Attributes:     tracing.Attributes,
		Insecure:       tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing stores", "error", err)
		}
	}()

	bootstrap, err := persist.LoadBootstrap(cfg.Storage.Bootstrap.BoxesFile, cfg.Storage.Bootstrap.LayoutsFile)
	if err != nil {
		return err
	}
	if bootstrap != nil {
		logger.Info("bootstrap files configured", "namespace", cfg.Storage.NamespaceDefault, "boxes", len(bootstrap.Boxes))
	}

	var (
		boardMetrics   *board.Metrics
		persistMetrics *persist.Metrics
		httpMetrics    *observability.HTTPMetrics
		metricsHandler http.Handler
	)
	if cfg.Observability.MetricsOn() {
		boardMetrics = board.NewMetrics()
		persistMetrics = persist.NewMetrics()
		httpMetrics = observability.NewHTTPMetrics()
		metricsHandler = observability.MetricsHandler()
	}

	registry, err := newRegistry(cfg, st, registryOptions{
		logger:         logger,
		tracer:         tracer,
		boardMetrics:   boardMetrics,
		persistMetrics: persistMetrics,
		bootstrap:      bootstrap,
	})
	if err != nil {
		return err
	}

	var janitor *persist.Janitor
	if st.purger != nil {
		janitor, err = persist.NewJanitor(st.purger, cfg.Storage.Local.CompactionSchedule,
			cfg.Storage.Local.TombstoneRetention, logger, persistMetrics)
		if err != nil {
			return err
		}
		janitor.Start()
	}

	authService, err := auth.NewService(auth.Config{
		Enabled:       cfg.Auth.Enabled,
		SessionSecret: cfg.Auth.SessionSecret,
		SessionTTL:    cfg.Auth.SessionTTL,
		CookieName:    cfg.Auth.CookieName,
		CookieSecure:  cfg.Auth.CookieSecure,
		Identity: auth.IdentityConfig{
			Mode:          cfg.Auth.Identity.Mode,
			Issuer:        cfg.Auth.Identity.Issuer,
			Audience:      cfg.Auth.Identity.Audience,
			HMACSecret:    cfg.Auth.Identity.HMACSecret,
			PublicKeyFile: cfg.Auth.Identity.PublicKeyFile,
			UserInfoURL:   cfg.Auth.Identity.UserInfoURL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	previews := preview.NewFetcher(preview.Options{
		Timeout:      cfg.Preview.Timeout,
		CacheTTL:     cfg.Preview.CacheTTL,
		MaxBodyBytes: cfg.Preview.MaxBodyBytes,
		AllowPrivate: cfg.Preview.AllowPrivate,
		Logger:       logger,
	})

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Enabled:           cfg.Server.RateLimit.On(),
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	})

	handler, err := web.NewHandler(&web.Config{
		Registry:         registry,
		AuthService:      authService,
		Renderer:         render.NewHTMLRenderer(previews),
		Previews:         previews,
		DefaultNamespace: cfg.Storage.NamespaceDefault,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		MetricsHandler:   metricsHandler,
		Metrics:          httpMetrics,
		RateLimiter:      limiter,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("web handler: %w", err)
	}

	// Warm the default board so bootstrap or load problems show up at start.
	if _, err := registry.Get(ctx, cfg.Storage.NamespaceDefault); err != nil {
		return fmt.Errorf("initialize default board: %w", err)
	}

	server := web.NewServer(handler, web.ServerOptions{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, 0, logger, func(next *config.Config) {
			if !opts.debug {
				logLevel.Set(observability.LogLevelFromString(next.Logging.Level))
			}
			logger.Info("logging level applied; other changes take effect on restart", "level", next.Logging.Level)
		})
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Close()
		}
	}

	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("boxgrid started", "http_addr", server.Addr(), "auth", authService.Enabled())

	<-ctx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	errs = append(errs, server.Shutdown(shutdownCtx))
	if janitor != nil {
		errs = append(errs, janitor.Stop(shutdownCtx))
	}
	errs = append(errs, registry.Close(shutdownCtx))
	errs = append(errs, shutdownTracer(shutdownCtx))
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("boxgrid stopped gracefully")
	return nil
}
