package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/V4T54L/logsink/internal/adapter/api"
	"github.com/V4T54L/logsink/internal/adapter/levelwatch"
	"github.com/V4T54L/logsink/internal/pkg/config"
	"github.com/V4T54L/logsink/internal/pkg/selflog"
	"github.com/V4T54L/logsink/internal/usecase"
	"github.com/V4T54L/logsink/pkg/sink"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingest front-end feeding one sink",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root)
		},
	}
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	cfg, logger, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SinkOptions()
	if err != nil {
		return err
	}

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	levels := sink.NewLevelSwitch(opts.MinimumLevel)
	opts.LevelSwitch = levels

	s, err := sink.New(ctx, opts,
		sink.WithDiagnostics(selflog.Default()),
		sink.WithMetrics(sink.NewMetrics(reg)),
		sink.WithLogger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start sink")
	}
	logger.Info("sink started", "sink_id", s.ID(), "destination", opts.Destination, "batch_size", opts.BatchSize)

	if root.configPath != "" {
		w := levelwatch.New(root.configPath, levels, config.ReadMinimumLevel, 0, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("level watcher stopped", "error", err)
			}
		}()
	}

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:    cfg.Ingest.MetricsAddr,
		Handler: metricsMux,
	}

	// --- Ingest Server ---
	ingestUseCase := usecase.NewIngestLogUseCase(s, logger)
	ingestServer := &http.Server{
		Addr:         cfg.Ingest.Addr,
		Handler:      api.NewRouter(cfg.Ingest, logger, ingestUseCase),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	for _, srv := range []struct {
		name   string
		server *http.Server
	}{{"metrics", metricsServer}, {"ingest", ingestServer}} {
		go func() {
			logger.Info("starting server", "server", srv.name, "addr", srv.server.Addr)
			if err := srv.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", "server", srv.name, "error", err)
				stop() // Trigger shutdown on server error
			}
		}()
	}

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout+5*time.Second)
	defer cancel()

	// Stop accepting requests before the sink flushes so nothing arrives after Close.
	if err := ingestServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingest server shutdown failed", "error", err)
	}
	if err := s.Close(shutdownCtx); err != nil {
		logger.Error("sink close failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	logger.Info("shut down gracefully")
	return nil
}
