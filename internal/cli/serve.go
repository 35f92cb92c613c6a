package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/gifcut/internal/deps"
	"github.com/forPelevin/gifcut/internal/httpapi"
	"github.com/forPelevin/gifcut/internal/pipeline"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}
			svc, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), svc)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Override listen_addr")
	return cmd
}

func serve(parent context.Context, svc *pipeline.Service) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := svc.Config
	logger := svc.Logger

	if missing := deps.MissingRequired(deps.CheckBinaries(cfg.Requirements())); len(missing) > 0 {
		logger.Warn("required tools not found; conversions will fail", "missing", missing)
	}

	api := httpapi.New(httpapi.Config{
		Version:        Version,
		PublicPrefix:   cfg.PublicPrefix,
		RequestTimeout: cfg.RequestTimeout.Duration,
		MetricsEnabled: cfg.MetricsEnabled,
		Health: func(ctx context.Context) []deps.Status {
			return deps.CheckVersions(ctx, nil, cfg.Requirements())
		},
	}, svc, svc.Store, svc.Sweeper, logger.With("component", "http"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      cfg.RequestTimeout.Duration + time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go svc.Sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "data_dir", cfg.DataDir, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return err
	}
	<-svc.Sweeper.Done()
	logger.Info("stopped")
	return nil
}
