package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/departures"
	"github.com/rycus86/tuebus/pkg/logging"
	"github.com/rycus86/tuebus/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

func newServeCommand(opts *options) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serves departure boards over HTTP, scraping on every request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveDepartures(cmd, opts)
		},
	}

	serve.Flags().StringVar(&opts.listen, "listen", ":8080", "Address to listen on")

	return serve
}

func serveDepartures(cmd *cobra.Command, opts *options) error {
	logger, err := logging.New(opts.verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	scraper := departures.NewScraper(client.NewHttpClient(cfg.RequestTimeout(), logger), cfg, logger)

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           server.NewRouter(scraper, cfg.Filters, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting HTTP server on", opts.listen, "...")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
