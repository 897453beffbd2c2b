package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/fyrsmithlabs/textpack/internal/http"
	"github.com/fyrsmithlabs/textpack/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the compression API until SIGINT or SIGTERM.

Endpoints:
  POST /api/v1/compress      compress one text
  POST /api/v1/decompress    decode a payload
  POST /api/v1/batch         compress several texts
  GET  /api/v1/profiles      built-in domains and custom profiles
  GET  /api/v1/history       recent compressions (history.enabled)
  GET  /health               health with dependency checks
  GET  /metrics              Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg.Observability))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	a, err := newApp(cfg, tel)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info(ctx, "starting textpack",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("telemetry", cfg.Observability.EnableTelemetry),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	opts := []httpapi.Option{
		httpapi.WithMeter(tel.Meter("github.com/fyrsmithlabs/textpack/internal/http")),
	}
	if !cfg.Observability.Prometheus {
		opts = append(opts, httpapi.WithoutMetricsEndpoint())
	}
	if cfg.Observability.EnableTelemetry {
		opts = append(opts, httpapi.WithHealthCheck("telemetry", func(context.Context) error {
			if h := tel.Health(); h.Degraded {
				return errors.New(h.DegradedReason)
			}
			return nil
		}))
	}

	reg := a.profileRegistry(ctx)
	opts = append(opts, httpapi.WithProfiles(reg))

	store, err := a.historyStore("")
	if err != nil {
		return err
	}
	if store != nil {
		opts = append(opts, httpapi.WithHistory(store))
	}

	srv, err := httpapi.NewServer(a.svc, a.logger, serverConfig(cfg.Server, cfg.Engine), opts...)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Profiles.Watch {
		g.Go(func() error {
			return reg.Watch(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info(context.Background(), "server shutdown complete")
	return nil
}
