// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	"github.com/spf13/cobra"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME...",
		Short: "Remove the bouquets of playlists and mark them as not built",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd.Context(), func(c *bootstrap.Container) error {
				unlock, err := c.Store.TryLock()
				if err != nil {
					return err
				}
				defer unlock()
				if err := jobs.Delete(cmd.Context(), c.Deps(nil), args); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed bouquets of %d playlist(s)\n", len(args))
				return nil
			})
		},
	}
}
