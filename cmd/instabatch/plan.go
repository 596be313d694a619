package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"instabatch/internal/app"
)

func newPlanCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Simulate the schedule and print the first fires",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			start := time.Now().Truncate(time.Second)
			fires, _, err := app.Plan(cmd.Context(), cfg, start, count)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SIGNATURE\tSTART\tCOMPLETE\tDURATION\tWEIGHT")
			for _, f := range fires {
				fmt.Fprintf(tw, "%s\t+%s\t+%s\t%s\t%d\n",
					f.Signature,
					f.ExpectedStart.Sub(start).Round(time.Millisecond),
					f.Deadline.Sub(start).Round(time.Millisecond),
					f.Duration,
					f.Request.Weight,
				)
			}
			return tw.Flush()
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&count, "count", 16, "number of fires to print")
	return cmd
}
