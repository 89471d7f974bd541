package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/api"
	"github.com/sells-group/vendor-pipeline/internal/monitoring"
	"github.com/sells-group/vendor-pipeline/internal/orchestrate"
)

const shutdownGrace = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		phaseTimeout := cfg.Server.PhaseTimeout()
		if phaseTimeout <= 0 {
			phaseTimeout = orchestrate.DefaultTimeout
		}
		shell := orchestrate.New(env.Pipeline, orchestrate.WithTimeout(phaseTimeout))

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(env.Collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		server := api.New(env.Store, shell, env.Pipeline,
			api.WithStats(env.Collector),
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := server.HTTPServer(fmt.Sprintf(":%d", port), phaseTimeout)

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server", zap.Int("port", port), zap.String("llm_provider", env.Gateway.Provider()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return eris.Wrap(err, "server listen")
			}
			return nil
		case <-ctx.Done():
		}

		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
		// Let detached phase handlers finish their writes before the store closes.
		if err := shell.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("phase handlers still running at shutdown", zap.Error(err))
		}
		zap.L().Info("llm usage", zap.Any("usage", env.Gateway.Usage()))
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
