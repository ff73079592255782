// Command g4-plugins serves the plugin-management HTTP surface: manifest
// lookup, macro resolution, and Action plugin invocation against mounted
// browser sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/g4-api/g4-plugins-go/manifests"
	"github.com/g4-api/g4-plugins-go/pkg/browser"
	"github.com/g4-api/g4-plugins-go/pkg/config"
	"github.com/g4-api/g4-plugins-go/pkg/dispatch"
	"github.com/g4-api/g4-plugins-go/pkg/history"
	"github.com/g4-api/g4-plugins-go/pkg/logging"
	"github.com/g4-api/g4-plugins-go/pkg/macro"
	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/metrics"
	"github.com/g4-api/g4-plugins-go/pkg/params"
	"github.com/g4-api/g4-plugins-go/pkg/plugins/actions"
	"github.com/g4-api/g4-plugins-go/pkg/plugins/macros"
	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/server"
	"github.com/g4-api/g4-plugins-go/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "g4-plugins: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// Manifests: the embedded built-ins plus any extra manifest directory.
	builtins, err := manifest.LoadFS(manifests.FS)
	if err != nil {
		return fmt.Errorf("failed to load built-in manifests: %w", err)
	}
	builder := registry.NewBuilder().AddManifests(builtins...)
	if cfg.Plugins.ManifestDir != "" {
		extra, err := manifest.LoadDir(cfg.Plugins.ManifestDir)
		if err != nil {
			return err
		}
		builder.AddManifests(extra...)
	}
	macros.Register(builder)
	actions.Register(builder, cfg.Sessions.WaitTimeout.Std())

	reg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build plugin registry: %w", err)
	}
	logger.Info("plugin registry built", slog.Int("manifests", len(reg.Manifests())))

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(promRegistry)

	store := params.NewStore()
	resolver := macro.New(reg, store,
		macro.WithMaxDepth(cfg.Macros.MaxDepth),
		macro.WithMaxSubstitutions(cfg.Macros.MaxSubstitutions),
	)
	guards := session.NewGuardSet(cfg.Sessions.GuardTimeout.Std())

	dispatchOpts := []dispatch.Option{
		dispatch.WithParams(store),
		dispatch.WithMetrics(recorder),
		dispatch.WithLogger(logger),
	}
	patterns, err := dispatch.WithInvocationPatterns(cfg.Plugins.Allow, cfg.Plugins.Deny)
	if err != nil {
		return err
	}
	dispatchOpts = append(dispatchOpts, patterns)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMetricsGatherer(promRegistry),
	}
	if cfg.History.Enabled {
		audit, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer audit.Close()
		dispatchOpts = append(dispatchOpts, dispatch.WithHistory(audit))
		serverOpts = append(serverOpts, server.WithHistory(audit, cfg.History.Limit))
	}

	mounter := browser.NewMounter()
	if err := mounter.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := mounter.Shutdown(); err != nil {
			logger.Warn("mounter shutdown", slog.Any("error", err))
		}
	}()

	dispatcher := dispatch.New(reg, resolver, guards, dispatchOpts...)
	srv := server.New(reg, dispatcher, mounter, serverOpts...)

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     http.TimeoutHandler(srv.Handler(), cfg.Server.RequestTimeout.Std(), "request deadline exceeded"),
		ReadTimeout: cfg.Server.RequestTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
