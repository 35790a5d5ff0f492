package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	agentservice "github.com/Lifelong-Learning-Assisttant/agent-service"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/presentation/tui"
	httpadapter "github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/http"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/observability"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the agent service HTTP API with live progress streams, metrics and the idle session sweeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		logger := logging.FromConfig(cfg.Log.Level, cfg.Log.Format)

		metrics := observability.NewMetrics()
		svc, err := agentservice.NewFromConfig(cfg,
			agentservice.WithLogger(logger),
			agentservice.WithMetrics(metrics),
		)
		if err != nil {
			return err
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(os.Stderr, agentservice.Version)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		svc.Start(ctx)

		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpadapter.NewHandler(svc,
				httpadapter.WithStreams(svc.Streams()),
				httpadapter.WithMetricsHandler(metrics.Handler()),
				httpadapter.WithMaxInputSize(cfg.MaxInputSize),
				httpadapter.WithVersion(agentservice.Version),
				httpadapter.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("agent service listening", "address", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		var serveErr error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				serveErr = fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			_ = srv.Close()
		}
		if err := svc.Close(shutdownCtx); err != nil {
			logger.Warn("service close did not complete", "err", err)
		}
		logger.Info("agent service stopped")
		return serveErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the startup banner")
}
