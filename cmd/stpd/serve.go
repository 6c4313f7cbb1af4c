package main

import (
	"cashflow_stp/internal/api"
	"cashflow_stp/internal/service"
	"cashflow_stp/pkg/crypto"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the cashflow HTTP API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger.Info("Starting application", slog.String("name", appName))

			a, err := openApp(cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.close()

			var signer *crypto.Signer
			if cfg.HTTP.SigningSecret != "" {
				signer = crypto.NewSigner(cfg.HTTP.SigningSecret, logger)
			}

			notificationService := newNotificationService(cfg, logger)
			stp := a.stpProcessor().WithNotifier(notificationService)
			apiHandler := api.NewAPIHandler(a.store.Cashflows(), stp, a.nettingProcessor(), cfg.STP.Checks, a.metrics, signer, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metricsServer := a.metrics.StartMetricsServer(cfg.Metrics.Addr)
			httpServer, serverErr := startHTTPServer(cfg.HTTP.Addr, apiHandler, logger)

			select {
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			case err := <-serverErr:
				logger.Error("HTTP server failed", slog.String("error", err.Error()))
			}

			shutdown(logger, httpServer, a, metricsServer, notificationService)
			logger.Info("Application shutdown complete")
			return nil
		},
	}
}

func startHTTPServer(addr string, apiHandler *api.APIHandler, logger *slog.Logger) (*http.Server, <-chan error) {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	return server, errs
}

func shutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	a *app,
	metricsServer *http.Server,
	notificationService *service.NotificationService,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.metrics.Shutdown(ctx, metricsServer); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := notificationService.Shutdown(ctx); err != nil {
		logger.Error("Notification service shutdown failed", slog.String("error", err.Error()))
	}
}
