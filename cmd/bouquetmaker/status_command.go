// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/history"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd.Context(), func(c *bootstrap.Container) error {
				if c.History == nil {
					return errors.New("run history is unavailable")
				}
				runs, err := c.History.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "no builds recorded")
					return nil
				}
				fmt.Fprintln(out, runsTable(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func runsTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Trigger,
			strconv.Itoa(len(r.Playlists)),
			strconv.Itoa(r.Categories),
			r.Duration().Round(time.Millisecond).String(),
			status,
		})
	}
	return renderTable(
		[]string{"Started", "Trigger", "Playlists", "Categories", "Duration", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
