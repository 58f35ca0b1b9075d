// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/spf13/cobra"
)

func newPiconsCommand(ctx *commandContext) *cobra.Command {
	var name string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "picons",
		Short: "Download and normalize channel logos of a playlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--playlist is required")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withContainer(runCtx, func(c *bootstrap.Container) error {
				cfg := bootstrap.PiconConfig(c.Config)
				if cmd.Flags().Changed("overwrite") {
					cfg.Overwrite = overwrite
				}
				m := jobs.NewManager(runCtx, c.Deps(nil), nil)
				batch, err := m.StartPicons(runCtx, name, cfg, c.Config.DataDir)
				if err != nil {
					return err
				}
				if err := batch.Wait(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), piconTable(batch.Stats()))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "playlist", "p", "", "Playlist name")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing picons")
	return cmd
}

func piconTable(st picons.Stats) string {
	rows := [][]string{
		{"total", strconv.Itoa(st.Total)},
		{"written", strconv.Itoa(st.Written)},
		{"exists", strconv.Itoa(st.Exists)},
		{"blocked", strconv.Itoa(st.Blocked)},
		{"rejected", strconv.Itoa(st.Rejected)},
		{"failed", strconv.Itoa(st.Failed)},
		{"cancelled", strconv.Itoa(st.Cancelled)},
	}
	return renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
