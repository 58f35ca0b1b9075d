// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os/signal"
	"syscall"

	"github.com/ManuGH/bouquetmaker/internal/config"
	"github.com/ManuGH/bouquetmaker/internal/daemon"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/spf13/cobra"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the control API and scheduled builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := daemon.NewApp(runCtx, config.NewConfigHolder(cfg, ctx.loader))
			if err != nil {
				return err
			}
			xglog.WithComponent("daemon").Info().
				Str(xglog.FieldEvent, "daemon.start").
				Str("config", ctx.loader.Path()).
				Bool("api", cfg.API.Enabled).
				Bool("autoupdate", cfg.AutoUpdate.Enabled).
				Msg("starting bouquetmaker daemon")
			return app.Run(runCtx)
		},
	}
}
