// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/httpapi"
	"github.com/authlib/authlib/internal/observability"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with metrics and health probes",
		Long: `Serve the JSON API under /v1/ together with /metrics and
/healthz/{liveness,readiness} until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}
	cmd.Flags().String("addr", "", "listen address (host:port)")
	return cmd
}

// runServe blocks until ctx is done or the server fails.
func runServe(ctx context.Context, cmd *cobra.Command, opts *globalOptions) error {
	a, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := observability.NewServer(a.cfg.Server.Addr,
		observability.WithHandler("/v1/", httpapi.NewHandler(a.svc, a.logger)),
		observability.WithReadiness(a.store.Ping),
		observability.WithLogger(a.logger),
	)
	errCh, err := srv.Start()
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "authlib serving",
		"addr", srv.Addr(),
		"datastore", a.cfg.Datastore.Type)
	if opts.deps.Ready != nil {
		opts.deps.Ready <- srv.Addr()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			serveErr = oops.Code("SERVER_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Warn("error stopping http server", "error", err)
	}
	return serveErr
}
