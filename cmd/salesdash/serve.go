package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/salesdash/server"
	"github.com/spektr-org/salesdash/source"
)

// openSource opens the configured source and starts its file watcher when
// there is one. The returned func releases it.
func (a *app) openSource(ctx context.Context) (source.Source, func(), error) {
	src, err := source.Open(ctx, a.cfg.SourceOptions(a.logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data source: %w", err)
	}

	release := func() {}
	switch s := src.(type) {
	case *source.Watched:
		if err := s.Start(ctx); err != nil {
			a.logger.Warn("file watch unavailable, reading on every run", zap.Error(err))
		} else {
			release = s.Stop
		}
	case io.Closer:
		release = func() {
			if err := s.Close(); err != nil {
				a.logger.Warn("closing data source", zap.Error(err))
			}
		}
	}
	return src, release, nil
}

// serve runs the web dashboard until SIGINT or SIGTERM.
func (a *app) serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, release, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	handler := server.New(src, a.cfg.Dashboard,
		server.WithLogger(a.logger),
		server.WithAllowedOrigins(a.cfg.Server.AllowedOrigins))

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       a.cfg.GetReadTimeout(),
		ReadHeaderTimeout: a.cfg.GetReadTimeout(),
		WriteTimeout:      a.cfg.GetWriteTimeout(),
	}

	a.logger.Info("serving dashboard",
		zap.String("addr", ln.Addr().String()),
		zap.String("source", src.Name()))

	if err := server.Run(ctx, srv, ln, a.cfg.GetShutdownTimeout()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
