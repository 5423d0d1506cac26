// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plexdesk/plexdesk/internal/observability"
	"github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/internal/xdg"
	"github.com/plexdesk/plexdesk/pkg/errutil"
)

// shutdownTimeout bounds plugin teardown and server stop.
const shutdownTimeout = 30 * time.Second

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the manifest and run plugins until interrupted",
		Long: `Run scans the plugins directory, writes the manifest and starts every
enabled plugin. SIGHUP rescans and reconciles the running set against the
new manifest; SIGINT or SIGTERM shuts down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(signals)
			return a.run(cmd.Context(), signals)
		},
	}
}

// run serves until ctx is done or a terminating signal arrives.
func (a *app) run(ctx context.Context, signals <-chan os.Signal) error {
	if err := xdg.EnsureDir(a.cfg.PluginsDir); err != nil {
		return err
	}
	if _, err := a.writeManifest(); err != nil {
		return err
	}

	rt, err := a.newRuntime(logRenderer{logger: a.logger})
	if err != nil {
		return err
	}

	var serverErrs <-chan error
	var srv *observability.Server
	if a.cfg.MetricsAddr != "" {
		srv = observability.NewServer(a.cfg.MetricsAddr, rt.orch.Ready,
			registry.RegisterMetrics, plugin.RegisterMetrics)
		srv.Handle("/plugins", rt.pluginsHandler())
		if serverErrs, err = srv.Start(); err != nil {
			return err
		}
	}

	if err := rt.orch.BootstrapFile(ctx, a.cfg.ManifestPath); err != nil {
		a.stop(rt, srv)
		return err
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err, ok := <-serverErrs:
			if ok && err != nil {
				runErr = err
				break loop
			}
			serverErrs = nil
		case sig := <-signals:
			if sig != syscall.SIGHUP {
				a.logger.Info("shutting down", "signal", sig.String())
				break loop
			}
			a.reload(ctx, rt)
		}
	}

	return errors.Join(runErr, a.stop(rt, srv))
}

// reload rescans plugins and reconciles against the new manifest. Errors
// leave the running set as it was.
func (a *app) reload(ctx context.Context, rt *runtime) {
	if _, err := a.writeManifest(); err != nil {
		errutil.LogError(a.logger, "manifest rebuild failed", err)
		return
	}
	report, err := rt.orch.ReconcileFile(ctx, a.cfg.ManifestPath)
	if err != nil {
		errutil.LogError(a.logger, "reconcile failed", err)
		return
	}
	a.logger.Info("plugins reconciled",
		"started", report.Started,
		"failed", report.Failed,
		"updated", report.Updated,
		"removed", report.Removed)
}

func (a *app) stop(rt *runtime, srv *observability.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := rt.orch.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
