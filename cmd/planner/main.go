package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"planner/internal/backend"
	"planner/internal/cache"
	"planner/internal/cli"
	"planner/internal/dashboard"
	apphttp "planner/internal/http"
	"planner/internal/log"
	"planner/internal/shell"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = time.Minute
	chartTTL        = time.Hour
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", log.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	// The cards show literals; say so when they disagree with the rows.
	if diffs := dashboard.Derive(dashboard.SampleRows()).Mismatches(dashboard.StaticSummary()); len(diffs) > 0 {
		logger.Warn("Dashboard summary literals differ from category data", "mismatches", diffs)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}()

	registry := shell.NewRegistry(result.Identity, cfg.MaxShells, cfg.ShellTTL, logger.Logger.With(log.FieldComponent, log.ComponentShell))
	charts := dashboard.NewChartCache(dashboard.SampleRows(), chartTTL)

	checks := make(map[string]apphttp.Checker, len(result.Checks))
	for name, c := range result.Checks {
		checks[name] = c
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr: ":" + cfg.Port,
		Cookie: apphttp.CookieConfig{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
			MaxAge: int(cfg.SessionTTL.Seconds()),
		},
		AuthRateLimit:  cfg.AuthRateLimit,
		Checks:         checks,
		Logger:         logger,
		TrustedProxies: cfg.TrustedProxies,
	}, registry, charts)
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}

	janitor := cache.NewJanitor(janitorInterval, logger.Logger.With(log.FieldComponent, log.ComponentCache))
	janitor.Register("shells", registry.Cache())
	janitor.Register("charts", charts.Cache())
	for name, c := range result.Cleaners() {
		janitor.Register(name, c)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting planner server",
			"port", cfg.Port,
			"auth_backend", cfg.AuthBackend,
			"session_backend", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Planner stopped with error", "error", err)
		return
	}
	logger.Info("Server stopped gracefully")
}
