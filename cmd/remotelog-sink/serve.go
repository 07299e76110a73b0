package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tarmac-project/remotelog/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Accept batches over HTTP",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			logger, err := a.buildLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8080", "listen on `ADDR`")
	flags.String("path", "/v1/logs", "accept batches on `PATH`")
	flags.Int64("max-body-bytes", server.DefaultMaxBodyBytes, "reject bodies larger than `BYTES`")
	flags.Duration("read-timeout", 0, "abort requests not read within `DURATION`")
	flags.Duration("shutdown-timeout", 0, "wait up to `DURATION` for requests on shutdown")
	_ = a.v.BindPFlag("listen", flags.Lookup("listen"))
	_ = a.v.BindPFlag("path", flags.Lookup("path"))
	_ = a.v.BindPFlag("max_body_bytes", flags.Lookup("max-body-bytes"))
	_ = a.v.BindPFlag("read_timeout", flags.Lookup("read-timeout"))
	_ = a.v.BindPFlag("shutdown_timeout", flags.Lookup("shutdown-timeout"))
	return cmd
}

func newHTTPServer(cfg Config, logger *zap.Logger) (*http.Server, error) {
	srv, err := server.New(server.Config{
		Logger:             logger,
		LoggerNameOverride: cfg.LoggerName,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, srv.HTTPHandler())

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}, nil
}

func serve(ctx context.Context, cfg Config, logger *zap.Logger) error {
	hs, err := newHTTPServer(cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting remotelog sink", zap.String("listen", cfg.Listen), zap.String("path", cfg.Path))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down remotelog sink")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
