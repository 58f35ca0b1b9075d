// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/spf13/cobra"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build bouquets for the given playlists, or for every playlist that has bouquets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return ctx.withContainer(runCtx, func(c *bootstrap.Container) error {
				return runBuild(runCtx, cmd, c, names)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&names, "playlist", "p", nil, "Playlist name (repeatable)")
	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, c *bootstrap.Container, names []string) error {
	unlock, err := c.Store.TryLock()
	if err != nil {
		return err
	}
	defer unlock()

	logger := xglog.WithComponent("cli")
	obs := jobs.ObserverFunc(func(p jobs.Progress) {
		logger.Debug().
			Str(xglog.FieldPlaylist, p.Playlist).
			Str("stage", string(p.Stage)).
			Int("value", p.Value).
			Int("range", p.Range).
			Msg("progress")
	})

	b := jobs.NewBuild(c.Deps(obs), c.BuildOptions(names, jobs.TriggerCLI))
	if err := b.Run(ctx); err != nil {
		return err
	}

	p := b.Progress()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Playlists", "Categories", "Result"},
		[][]string{{b.ID(), strconv.Itoa(p.Playlists), strconv.Itoa(p.Categories), buildResult(p)}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
	if p.Error != "" {
		return fmt.Errorf("build finished with errors: %s", p.Error)
	}
	return nil
}

func buildResult(p jobs.Progress) string {
	if p.Error != "" {
		return "failed"
	}
	return "ok"
}
